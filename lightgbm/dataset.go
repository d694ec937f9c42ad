package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// Dataset holds a prepared feature matrix plus the per-row fields used for
// training. Feature data is ingested as float32 (the boundary payload
// convention) and widened to float64 for the internal gonum matrix.
type Dataset struct {
	// Data matrix (samples x features)
	Data *mat.Dense
	// Labels for supervised learning (float32 per the C API requirement)
	Label []float32
	// Per-row sample weights
	Weight []float32
	// Per-row initial scores added to every prediction during training
	InitScore []float64
	// Query group sizes for ranking objectives
	Group []int32

	numData     int
	numFeatures int
}

// NewDatasetFromMat creates a dataset from a row-major dense float32 matrix.
// The layout is fixed to row-major. The configuration string is parsed for
// well-formedness; dataset-level keys are currently accepted and ignored.
func NewDatasetFromMat(data []float32, nrow, ncol int, config string) (*Dataset, error) {
	if nrow <= 0 || ncol <= 0 {
		return nil, scierr.NewValidationError("nrow/ncol", "must be positive", []int{nrow, ncol})
	}
	if len(data) != nrow*ncol {
		return nil, scierr.NewDimensionError("NewDatasetFromMat", nrow*ncol, len(data), 0)
	}
	if _, err := parseConfig(config); err != nil {
		return nil, err
	}

	matData := make([]float64, len(data))
	for i, v := range data {
		matData[i] = float64(v)
	}

	return &Dataset{
		Data:        mat.NewDense(nrow, ncol, matData),
		numData:     nrow,
		numFeatures: ncol,
	}, nil
}

// NumData returns the number of rows in the dataset.
func (d *Dataset) NumData() int { return d.numData }

// NumFeatures returns the number of feature columns in the dataset.
func (d *Dataset) NumFeatures() int { return d.numFeatures }

// SetField sets a named per-row field. Recognized fields and their element
// types follow the LightGBM C API: "label" and "weight" take float32,
// "init_score" takes float64, "group" takes int32. Field length must match
// the dataset row count (group sizes must sum to it).
func (d *Dataset) SetField(field string, data interface{}) error {
	switch field {
	case "label":
		values, ok := data.([]float32)
		if !ok {
			return scierr.NewValueError("SetField", "field 'label' requires float32 data")
		}
		if len(values) != d.numData {
			return scierr.NewDimensionError("SetField(label)", d.numData, len(values), 0)
		}
		d.Label = append([]float32(nil), values...)

	case "weight":
		values, ok := data.([]float32)
		if !ok {
			return scierr.NewValueError("SetField", "field 'weight' requires float32 data")
		}
		if len(values) != d.numData {
			return scierr.NewDimensionError("SetField(weight)", d.numData, len(values), 0)
		}
		d.Weight = append([]float32(nil), values...)

	case "init_score":
		values, ok := data.([]float64)
		if !ok {
			return scierr.NewValueError("SetField", "field 'init_score' requires float64 data")
		}
		if len(values) != d.numData {
			return scierr.NewDimensionError("SetField(init_score)", d.numData, len(values), 0)
		}
		d.InitScore = append([]float64(nil), values...)

	case "group":
		values, ok := data.([]int32)
		if !ok {
			return scierr.NewValueError("SetField", "field 'group' requires int32 data")
		}
		total := 0
		for _, g := range values {
			total += int(g)
		}
		if total != d.numData {
			return scierr.NewDimensionError("SetField(group)", d.numData, total, 0)
		}
		d.Group = append([]int32(nil), values...)

	default:
		return scierr.NewValueError("SetField", "unknown field name: "+field)
	}
	return nil
}

// weightsOrUniform returns the sample weights, defaulting to 1.0 per row.
func (d *Dataset) weightsOrUniform() []float64 {
	w := make([]float64, d.numData)
	if d.Weight == nil {
		for i := range w {
			w[i] = 1.0
		}
		return w
	}
	for i, v := range d.Weight {
		w[i] = float64(v)
	}
	return w
}
