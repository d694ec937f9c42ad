package lightgbm

import (
	"strings"
	"testing"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

func TestSaveModelHeader(t *testing.T) {
	booster, _, _, _ := trainedBooster(t, "objective=regression num_leaves=4 max_depth=2 min_data_in_leaf=1", 2)

	text := booster.SaveModelToString()
	if !strings.HasPrefix(text, "tree\n") {
		t.Errorf("model text should start with the tree magic, got %q", text[:min(len(text), 20)])
	}
	for _, want := range []string{
		"num_class=1",
		"num_iterations=2",
		"objective=regression",
		"Tree=0",
		"Tree=1",
		"end of trees",
		"feature_importances:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("model text missing %q", want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		config string
		labels []float32
		iters  int
	}{
		{
			name:   "regression",
			config: "objective=regression num_leaves=4 max_depth=2 min_data_in_leaf=1",
			labels: []float32{1.0, 1.2, 1.4, 2.6, 2.8, 3.0},
			iters:  3,
		},
		{
			name:   "binary",
			config: "objective=binary num_leaves=4 max_depth=2 min_data_in_leaf=1",
			labels: []float32{0, 0, 0, 1, 1, 1},
			iters:  3,
		},
		{
			name:   "multiclass",
			config: "objective=multiclass num_class=3 num_leaves=4 max_depth=2 min_data_in_leaf=1",
			labels: []float32{0, 0, 1, 1, 2, 2},
			iters:  2,
		},
	}
	data := []float32{
		1.0, 5.0,
		2.0, 4.0,
		3.0, 3.0,
		4.0, 2.0,
		5.0, 1.0,
		6.0, 0.0,
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset := newTrainDataset(t, data, 6, 2, tt.labels)
			booster, err := NewBooster(dataset, tt.config)
			if err != nil {
				t.Fatalf("failed to create booster: %v", err)
			}
			for i := 0; i < tt.iters; i++ {
				if _, err := booster.UpdateOneIter(); err != nil {
					t.Fatalf("update failed: %v", err)
				}
			}

			loaded, err := LoadModelFromString(booster.SaveModelToString())
			if err != nil {
				t.Fatalf("failed to load model: %v", err)
			}
			if loaded.NumClasses() != booster.NumClasses() {
				t.Errorf("NumClasses = %d, want %d", loaded.NumClasses(), booster.NumClasses())
			}
			if loaded.NumIterations() != booster.NumIterations() {
				t.Errorf("NumIterations = %d, want %d", loaded.NumIterations(), booster.NumIterations())
			}

			for _, predictType := range []int{PredictNormal, PredictRawScore, PredictLeafIndex} {
				want, err := booster.PredictForMat(data, 6, 2, predictType, 0, "")
				if err != nil {
					t.Fatalf("predict on original failed: %v", err)
				}
				got, err := loaded.PredictForMat(data, 6, 2, predictType, 0, "")
				if err != nil {
					t.Fatalf("predict on loaded failed: %v", err)
				}
				if len(got) != len(want) {
					t.Fatalf("predict type %d: length %d, want %d", predictType, len(got), len(want))
				}
				for i := range want {
					if got[i] != want[i] {
						t.Errorf("predict type %d: result[%d] = %v, want %v (must round-trip bit-exactly)",
							predictType, i, got[i], want[i])
					}
				}
			}
		})
	}
}

func TestSaveLoadTwiceIsStable(t *testing.T) {
	booster, _, _, _ := trainedBooster(t, "objective=regression num_leaves=4 max_depth=2 min_data_in_leaf=1", 3)

	first := booster.SaveModelToString()
	loaded, err := LoadModelFromString(first)
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	second := loaded.SaveModelToString()
	if first != second {
		t.Error("saving a loaded model should reproduce the same text")
	}
}

func TestLoadModelFromStringErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"wrong magic", "forest\nnum_class=1\n"},
		{"truncated tree block", "tree\nnum_class=1\nnum_iterations=1\n\nTree=0\nnum_leaves=2\n"},
		{"garbage", "not a model at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModelFromString(tt.text)
			if err == nil {
				t.Fatal("expected an error")
			}
			var modelErr *scierr.ModelError
			if !scierr.As(err, &modelErr) {
				t.Errorf("error should be a ModelError, got %T: %v", err, err)
			}
		})
	}
}

// hostileModelText assembles model text around one handcrafted tree block.
func hostileModelText(treeBlock string) string {
	return "tree\n" +
		"version=v4\n" +
		"num_class=1\n" +
		"num_iterations=1\n" +
		"objective=regression\n" +
		"learning_rate=0.1\n" +
		"init_score=0\n" +
		"max_feature_idx=0\n" +
		"feature_names=Column_0\n" +
		"\n" +
		treeBlock +
		"\nend of trees\n"
}

func TestLoadModelRejectsMalformedTreeGraphs(t *testing.T) {
	tests := []struct {
		name      string
		treeBlock string
	}{
		{
			// A node referencing itself must not recurse forever.
			name: "self referencing node",
			treeBlock: "Tree=0\n" +
				"num_leaves=2\n" +
				"shrinkage=1\n" +
				"split_feature=0\n" +
				"split_gain=1\n" +
				"threshold=0.5\n" +
				"left_child=0\n" +
				"right_child=-1\n" +
				"internal_value=0\n" +
				"internal_count=2\n" +
				"leaf_value=1 2\n" +
				"leaf_count=1 1\n",
		},
		{
			name: "node cycle",
			treeBlock: "Tree=0\n" +
				"num_leaves=3\n" +
				"shrinkage=1\n" +
				"split_feature=0 0\n" +
				"split_gain=1 1\n" +
				"threshold=0.5 0.25\n" +
				"left_child=1 0\n" +
				"right_child=-1 -2\n" +
				"internal_value=0 0\n" +
				"internal_count=3 2\n" +
				"leaf_value=1 2 3\n" +
				"leaf_count=1 1 1\n",
		},
		{
			name: "leaf referenced twice",
			treeBlock: "Tree=0\n" +
				"num_leaves=2\n" +
				"shrinkage=1\n" +
				"split_feature=0\n" +
				"split_gain=1\n" +
				"threshold=0.5\n" +
				"left_child=-1\n" +
				"right_child=-1\n" +
				"internal_value=0\n" +
				"internal_count=2\n" +
				"leaf_value=1 2\n" +
				"leaf_count=1 1\n",
		},
		{
			name: "split feature beyond max_feature_idx",
			treeBlock: "Tree=0\n" +
				"num_leaves=2\n" +
				"shrinkage=1\n" +
				"split_feature=7\n" +
				"split_gain=1\n" +
				"threshold=0.5\n" +
				"left_child=-1\n" +
				"right_child=-2\n" +
				"internal_value=0\n" +
				"internal_count=2\n" +
				"leaf_value=1 2\n" +
				"leaf_count=1 1\n",
		},
		{
			name: "negative split feature",
			treeBlock: "Tree=0\n" +
				"num_leaves=2\n" +
				"shrinkage=1\n" +
				"split_feature=-1\n" +
				"split_gain=1\n" +
				"threshold=0.5\n" +
				"left_child=-1\n" +
				"right_child=-2\n" +
				"internal_value=0\n" +
				"internal_count=2\n" +
				"leaf_value=1 2\n" +
				"leaf_count=1 1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModelFromString(hostileModelText(tt.treeBlock))
			if err == nil {
				t.Fatal("expected an error")
			}
			var modelErr *scierr.ModelError
			if !scierr.As(err, &modelErr) {
				t.Errorf("error should be a ModelError, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadedBoosterCannotTrain(t *testing.T) {
	booster, _, _, _ := trainedBooster(t, "objective=regression min_data_in_leaf=1", 1)

	loaded, err := LoadModelFromString(booster.SaveModelToString())
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	if _, err := loaded.UpdateOneIter(); err == nil {
		t.Error("a loaded booster has no training data and must refuse to update")
	}
}

func TestFeatureImportance(t *testing.T) {
	booster, _, _, ncol := trainedBooster(t, "objective=regression num_leaves=4 max_depth=2 min_data_in_leaf=1", 3)

	split := booster.FeatureImportance("split")
	gain := booster.FeatureImportance("gain")
	if len(split) != ncol || len(gain) != ncol {
		t.Fatalf("importance lengths = %d/%d, want %d", len(split), len(gain), ncol)
	}
	totalSplits := 0.0
	for j := 0; j < ncol; j++ {
		if split[j] < 0 || gain[j] < 0 {
			t.Errorf("importance must be non-negative: split[%d]=%f gain[%d]=%f", j, split[j], j, gain[j])
		}
		totalSplits += split[j]
	}
	if totalSplits == 0 {
		t.Error("a trained model should have at least one split")
	}
}
