package lightgbm

import (
	"math"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// ObjectiveFunction defines the per-sample loss interface for scalar
// objectives. Multiclass softmax needs the full score vector and is handled
// directly by the booster.
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// GetInitScore returns the initial raw score for this objective
	GetInitScore(targets []float32) float64

	// TransformScore converts a raw score into the output space
	TransformScore(rawScore float64) float64

	// Name returns the canonical objective name
	Name() string
}

// objectiveFromName resolves an objective name from the configuration
// string. Aliases follow LightGBM.
func objectiveFromName(name string) (ObjectiveFunction, error) {
	switch name {
	case "regression", "regression_l2", "mean_squared_error", "mse", "l2":
		return &L2Objective{}, nil
	case "binary", "binary_logloss":
		return &BinaryObjective{}, nil
	case "multiclass", "multiclassova":
		// Handled by the booster's softmax path.
		return nil, nil
	default:
		return nil, scierr.NewValidationError("objective", "unknown objective", name)
	}
}

// L2Objective implements squared-error loss.
type L2Objective struct{}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) GetInitScore(targets []float32) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += float64(t)
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) TransformScore(rawScore float64) float64 {
	return rawScore
}

func (o *L2Objective) Name() string {
	return "regression"
}

// BinaryObjective implements binary log loss with a log-odds init score.
type BinaryObjective struct{}

func (o *BinaryObjective) CalculateGradient(prediction, target float64) float64 {
	return stableSigmoid(prediction) - target
}

func (o *BinaryObjective) CalculateHessian(prediction, target float64) float64 {
	p := stableSigmoid(prediction)
	return p * (1.0 - p)
}

func (o *BinaryObjective) GetInitScore(targets []float32) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	positive := 0
	for _, t := range targets {
		if t > 0.5 {
			positive++
		}
	}
	ratio := float64(positive) / float64(len(targets))
	if ratio <= 0 {
		ratio = 1e-10
	} else if ratio >= 1 {
		ratio = 1 - 1e-10
	}
	return math.Log(ratio / (1 - ratio))
}

func (o *BinaryObjective) TransformScore(rawScore float64) float64 {
	return stableSigmoid(rawScore)
}

func (o *BinaryObjective) Name() string {
	return "binary"
}

// stableSigmoid avoids overflow for large negative inputs.
func stableSigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	expX := math.Exp(x)
	return expX / (1.0 + expX)
}

// stableSoftmax normalizes a score vector with the max-subtraction trick.
func stableSoftmax(scores []float64) []float64 {
	maxVal := scores[0]
	for _, v := range scores[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	expSum := 0.0
	result := make([]float64, len(scores))
	for i, v := range scores {
		result[i] = math.Exp(v - maxVal)
		expSum += result[i]
	}
	for i := range result {
		result[i] /= expSum
	}
	return result
}
