package lightgbm

import (
	"math"
	"testing"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

func TestNewDatasetFromMat(t *testing.T) {
	data := []float32{
		1.0, 2.0, 3.0,
		4.0, 5.0, 6.0,
		7.0, 8.0, 9.0,
		10.0, 11.0, 12.0,
	}

	dataset, err := NewDatasetFromMat(data, 4, 3, "")
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	if dataset.NumData() != 4 {
		t.Errorf("NumData = %d, want 4", dataset.NumData())
	}
	if dataset.NumFeatures() != 3 {
		t.Errorf("NumFeatures = %d, want 3", dataset.NumFeatures())
	}

	// Row-major layout is fixed; verify values were widened in place.
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			want := float64(data[i*3+j])
			got := dataset.Data.At(i, j)
			if math.Abs(want-got) > 1e-6 {
				t.Errorf("data mismatch at [%d,%d]: want %f, got %f", i, j, want, got)
			}
		}
	}
}

func TestNewDatasetFromMatErrors(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}

	if _, err := NewDatasetFromMat(data, 4, 2, ""); err == nil {
		t.Error("size mismatch should be rejected")
	} else {
		var dimErr *scierr.DimensionError
		if !scierr.As(err, &dimErr) {
			t.Errorf("expected DimensionError, got %v", err)
		}
	}

	if _, err := NewDatasetFromMat(data, 0, 6, ""); err == nil {
		t.Error("zero rows should be rejected")
	}
	if _, err := NewDatasetFromMat(data, -3, -2, ""); err == nil {
		t.Error("negative dimensions should be rejected")
	}
	if _, err := NewDatasetFromMat(data, 3, 2, "bad config token"); err == nil {
		t.Error("malformed config should be rejected")
	}
}

func TestDatasetSetField(t *testing.T) {
	dataset, err := NewDatasetFromMat([]float32{1, 2, 3, 4, 5, 6}, 3, 2, "")
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}

	if err := dataset.SetField("label", []float32{0.5, 1.5, 2.5}); err != nil {
		t.Fatalf("set label: %v", err)
	}
	if err := dataset.SetField("weight", []float32{1, 1, 2}); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	if err := dataset.SetField("init_score", []float64{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("set init_score: %v", err)
	}
	if err := dataset.SetField("group", []int32{2, 1}); err != nil {
		t.Fatalf("set group: %v", err)
	}

	if len(dataset.Label) != 3 || dataset.Label[1] != 1.5 {
		t.Errorf("label not stored: %v", dataset.Label)
	}

	// Length must match row count.
	if err := dataset.SetField("label", []float32{0.5, 1.5}); err == nil {
		t.Error("short label should be rejected")
	}
	if err := dataset.SetField("group", []int32{5}); err == nil {
		t.Error("group sizes not summing to row count should be rejected")
	}

	// Element type is fixed per field.
	if err := dataset.SetField("label", []float64{0.5, 1.5, 2.5}); err == nil {
		t.Error("float64 label should be rejected")
	}
	if err := dataset.SetField("unknown_field", []float32{1, 2, 3}); err == nil {
		t.Error("unknown field should be rejected")
	}
}
