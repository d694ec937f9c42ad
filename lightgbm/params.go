package lightgbm

import (
	"strconv"
	"strings"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// Params holds the training hyperparameters recognized by the engine.
// Unknown keys are retained verbatim so configuration strings survive a
// save/load round trip.
type Params struct {
	Objective      string
	NumClass       int
	NumLeaves      int
	MaxDepth       int
	LearningRate   float64
	MinDataInLeaf  int
	LambdaL1       float64
	LambdaL2       float64
	MinGainToSplit float64

	raw map[string]string
}

// parseConfig splits a LightGBM-style configuration string into key=value
// pairs. Pairs are separated by spaces or newlines. A token without '='
// is a configuration error.
func parseConfig(config string) (map[string]string, error) {
	params := make(map[string]string)
	for _, pair := range strings.Fields(config) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, scierr.NewValidationError(pair, "expected key=value pair", config)
		}
		params[kv[0]] = kv[1]
	}
	return params, nil
}

func defaultParams() *Params {
	return &Params{
		Objective:      "regression",
		NumClass:       1,
		NumLeaves:      31,
		MaxDepth:       -1,
		LearningRate:   0.1,
		MinDataInLeaf:  20,
		LambdaL1:       0.0,
		LambdaL2:       0.0,
		MinGainToSplit: 0.0,
		raw:            make(map[string]string),
	}
}

// newParams parses a configuration string and merges it over the defaults.
func newParams(config string) (*Params, error) {
	raw, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	p := defaultParams()
	p.raw = raw

	for key, value := range raw {
		switch key {
		case "objective":
			p.Objective = value
		case "num_class":
			if p.NumClass, err = parseIntParam(key, value); err != nil {
				return nil, err
			}
		case "num_leaves":
			if p.NumLeaves, err = parseIntParam(key, value); err != nil {
				return nil, err
			}
		case "max_depth":
			if p.MaxDepth, err = parseIntParam(key, value); err != nil {
				return nil, err
			}
		case "min_data_in_leaf":
			if p.MinDataInLeaf, err = parseIntParam(key, value); err != nil {
				return nil, err
			}
		case "learning_rate":
			if p.LearningRate, err = parseFloatParam(key, value); err != nil {
				return nil, err
			}
		case "lambda_l1":
			if p.LambdaL1, err = parseFloatParam(key, value); err != nil {
				return nil, err
			}
		case "lambda_l2":
			if p.LambdaL2, err = parseFloatParam(key, value); err != nil {
				return nil, err
			}
		case "min_gain_to_split":
			if p.MinGainToSplit, err = parseFloatParam(key, value); err != nil {
				return nil, err
			}
		}
	}

	if p.LearningRate <= 0 {
		return nil, scierr.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	}
	if p.NumLeaves < 1 {
		return nil, scierr.NewValidationError("num_leaves", "must be at least 1", p.NumLeaves)
	}
	if isMulticlass(p.Objective) && p.NumClass < 2 {
		return nil, scierr.NewValidationError("num_class", "multiclass objective requires num_class >= 2", p.NumClass)
	}

	return p, nil
}

func parseIntParam(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, scierr.NewValidationError(key, "must be an integer", value)
	}
	return n, nil
}

func parseFloatParam(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, scierr.NewValidationError(key, "must be numeric", value)
	}
	return f, nil
}

func isMulticlass(objective string) bool {
	return objective == "multiclass" || objective == "multiclassova"
}
