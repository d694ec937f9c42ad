package lightgbm

import (
	"fmt"
	"math"
	"testing"
)

func newTrainDataset(t *testing.T, data []float32, nrow, ncol int, labels []float32) *Dataset {
	t.Helper()
	dataset, err := NewDatasetFromMat(data, nrow, ncol, "")
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	if labels != nil {
		if err := dataset.SetField("label", labels); err != nil {
			t.Fatalf("failed to set label: %v", err)
		}
	}
	return dataset
}

func TestNewBooster(t *testing.T) {
	dataset := newTrainDataset(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3, []float32{0.5, 1.5})

	tests := []struct {
		name   string
		config string
		check  func(*Booster) error
	}{
		{
			name:   "regression default",
			config: "",
			check: func(b *Booster) error {
				if b.Params.Objective != "regression" {
					return fmt.Errorf("expected regression objective, got %s", b.Params.Objective)
				}
				if b.NumClasses() != 1 {
					return fmt.Errorf("expected 1 class for regression, got %d", b.NumClasses())
				}
				if math.Abs(b.InitScore-1.0) > 1e-9 {
					return fmt.Errorf("init score should be the label mean, got %f", b.InitScore)
				}
				return nil
			},
		},
		{
			name:   "binary classification",
			config: "objective=binary",
			check: func(b *Booster) error {
				if b.Params.Objective != "binary" {
					return fmt.Errorf("expected binary objective, got %s", b.Params.Objective)
				}
				if b.NumClasses() != 1 {
					return fmt.Errorf("expected 1 class for binary, got %d", b.NumClasses())
				}
				return nil
			},
		},
		{
			name:   "multiclass",
			config: "objective=multiclass num_class=3",
			check: func(b *Booster) error {
				if b.NumClasses() != 3 {
					return fmt.Errorf("expected 3 classes, got %d", b.NumClasses())
				}
				return nil
			},
		},
		{
			name:   "custom learning rate",
			config: "learning_rate=0.05",
			check: func(b *Booster) error {
				if b.Params.LearningRate != 0.05 {
					return fmt.Errorf("expected learning_rate=0.05, got %f", b.Params.LearningRate)
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booster, err := NewBooster(dataset, tt.config)
			if err != nil {
				t.Fatalf("failed to create booster: %v", err)
			}
			if err := tt.check(booster); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestNewBoosterErrors(t *testing.T) {
	if _, err := NewBooster(nil, ""); err == nil {
		t.Error("nil dataset should be rejected")
	}

	noLabel, err := NewDatasetFromMat([]float32{1, 2, 3, 4}, 2, 2, "")
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	if _, err := NewBooster(noLabel, ""); err == nil {
		t.Error("dataset without label should be rejected")
	}

	withLabel := newTrainDataset(t, []float32{1, 2, 3, 4}, 2, 2, []float32{0, 1})
	if _, err := NewBooster(withLabel, "objective=not_a_thing"); err == nil {
		t.Error("unknown objective should be rejected")
	}
}

func TestUpdateOneIterGrowsTrees(t *testing.T) {
	// Labels are determined by the second feature, so the first split
	// should separate the two label groups.
	data := []float32{
		1.0, 1.0,
		2.0, 1.0,
		3.0, 1.0,
		1.0, 2.0,
		2.0, 2.0,
		3.0, 2.0,
	}
	labels := []float32{1, 1, 1, 2, 2, 2}
	dataset := newTrainDataset(t, data, 6, 2, labels)

	booster, err := NewBooster(dataset, "objective=regression num_leaves=4 max_depth=2 min_data_in_leaf=1")
	if err != nil {
		t.Fatalf("failed to create booster: %v", err)
	}

	finished, err := booster.UpdateOneIter()
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if finished {
		t.Error("training should not be finished after a productive iteration")
	}
	if len(booster.Trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(booster.Trees))
	}
	if booster.NumIterations() != 1 {
		t.Errorf("iteration count = %d, want 1", booster.NumIterations())
	}

	preds, err := booster.PredictForMat(data, 6, 2, PredictNormal, 0, "")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	avgFirst := (preds[0] + preds[1] + preds[2]) / 3
	avgLast := (preds[3] + preds[4] + preds[5]) / 3
	if avgLast <= avgFirst {
		t.Errorf("y=2 group should predict higher than y=1 group: %f vs %f", avgLast, avgFirst)
	}
}

func TestUpdateOneIterConverged(t *testing.T) {
	// Constant labels: the init score already fits perfectly, so the first
	// tree degenerates to a zero stump and training reports finished.
	dataset := newTrainDataset(t, []float32{1, 2, 3, 4, 5, 6}, 3, 2, []float32{2, 2, 2})
	booster, err := NewBooster(dataset, "objective=regression")
	if err != nil {
		t.Fatalf("failed to create booster: %v", err)
	}

	finished, err := booster.UpdateOneIter()
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !finished {
		t.Error("expected convergence on constant labels")
	}
}

func TestUpdateOneIterMulticlass(t *testing.T) {
	data := []float32{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		2, 0,
		2, 1,
	}
	labels := []float32{0, 0, 1, 1, 2, 2}
	dataset := newTrainDataset(t, data, 6, 2, labels)

	booster, err := NewBooster(dataset, "objective=multiclass num_class=3 min_data_in_leaf=1 max_depth=3")
	if err != nil {
		t.Fatalf("failed to create booster: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := booster.UpdateOneIter(); err != nil {
			t.Fatalf("update %d failed: %v", i+1, err)
		}
	}
	if len(booster.Trees) != 9 {
		t.Errorf("expected 3 trees per iteration, got %d total", len(booster.Trees))
	}

	preds, err := booster.PredictForMat(data, 6, 2, PredictNormal, 0, "")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(preds) != 18 {
		t.Fatalf("expected 6*3 probabilities, got %d", len(preds))
	}
	for i := 0; i < 6; i++ {
		rowSum := preds[i*3] + preds[i*3+1] + preds[i*3+2]
		if math.Abs(rowSum-1.0) > 1e-9 {
			t.Errorf("row %d probabilities sum to %f", i, rowSum)
		}
	}
}

func TestSampleWeightInfluence(t *testing.T) {
	// With all the weight on the second half, a stump's value follows the
	// weighted residual mean.
	data := []float32{1, 2, 3, 4}
	labels := []float32{0, 0, 10, 10}
	dataset := newTrainDataset(t, data, 4, 1, labels)
	if err := dataset.SetField("weight", []float32{0.001, 0.001, 10, 10}); err != nil {
		t.Fatalf("set weight: %v", err)
	}

	booster, err := NewBooster(dataset, "objective=regression num_leaves=1 learning_rate=1.0")
	if err != nil {
		t.Fatalf("failed to create booster: %v", err)
	}
	if _, err := booster.UpdateOneIter(); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	preds, err := booster.PredictForMat(data, 4, 1, PredictNormal, 0, "")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	// Unweighted fit would stay at the plain mean (5.0); the weighted stump
	// must move predictions toward the heavy group's target.
	if preds[0] < 9.0 {
		t.Errorf("weighted prediction = %f, expected close to 10", preds[0])
	}
}
