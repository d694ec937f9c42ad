package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// Booster is a trained or in-training ensemble of decision trees. For
// multiclass objectives the ensemble holds NumClass trees per iteration,
// interleaved so tree t contributes to class t % NumClass.
type Booster struct {
	Params      *Params
	TrainSet    *Dataset
	Trees       []Tree
	CurrentIter int
	NumClass    int
	NumFeatures int
	InitScore   float64

	objective ObjectiveFunction // nil for multiclass softmax
}

// NewBooster creates a booster positioned at iteration zero from a training
// dataset and a configuration string. The dataset must have its label field
// set before the booster is created.
func NewBooster(train *Dataset, config string) (*Booster, error) {
	if train == nil {
		return nil, scierr.NewValueError("NewBooster", "training dataset is required")
	}
	if train.Label == nil {
		return nil, scierr.NewValueError("NewBooster", "training dataset has no label field")
	}

	params, err := newParams(config)
	if err != nil {
		return nil, err
	}
	objective, err := objectiveFromName(params.Objective)
	if err != nil {
		return nil, err
	}

	numClass := 1
	initScore := 0.0
	if isMulticlass(params.Objective) {
		numClass = params.NumClass
	} else {
		initScore = objective.GetInitScore(train.Label)
	}

	return &Booster{
		Params:      params,
		TrainSet:    train,
		Trees:       make([]Tree, 0),
		NumClass:    numClass,
		NumFeatures: train.NumFeatures(),
		InitScore:   initScore,
		objective:   objective,
	}, nil
}

// NumClasses returns the number of predicted classes (1 for regression and
// binary classification).
func (b *Booster) NumClasses() int {
	return b.NumClass
}

// NumIterations returns the number of completed boosting iterations.
func (b *Booster) NumIterations() int {
	return b.CurrentIter
}

// UpdateOneIter runs one boosting iteration, adding NumClass trees. It
// returns true when boosting has converged: every tree grown this iteration
// degenerated to a single leaf contributing nothing.
func (b *Booster) UpdateOneIter() (bool, error) {
	if b.TrainSet == nil {
		return false, scierr.NewValueError("UpdateOneIter", "booster has no training dataset")
	}

	nrow := b.TrainSet.NumData()
	raw := b.trainRawScores()
	weights := b.TrainSet.weightsOrUniform()
	firstNew := len(b.Trees)

	for k := 0; k < b.NumClass; k++ {
		gradients := make([]float64, nrow)
		hessians := make([]float64, nrow)

		if b.objective != nil {
			for i := 0; i < nrow; i++ {
				target := float64(b.TrainSet.Label[i])
				gradients[i] = b.objective.CalculateGradient(raw[i][0], target) * weights[i]
				hessians[i] = b.objective.CalculateHessian(raw[i][0], target) * weights[i]
			}
		} else {
			for i := 0; i < nrow; i++ {
				probs := stableSoftmax(raw[i])
				target := 0.0
				if int(b.TrainSet.Label[i]) == k {
					target = 1.0
				}
				gradients[i] = (probs[k] - target) * weights[i]
				hessians[i] = probs[k] * (1.0 - probs[k]) * weights[i]
			}
		}

		tree := buildTree(b.TrainSet.Data, gradients, hessians, b.Params, b.Params.LearningRate)
		tree.TreeIndex = len(b.Trees)
		b.Trees = append(b.Trees, tree)
	}
	b.CurrentIter++

	finished := true
	for _, tree := range b.Trees[firstNew:] {
		if tree.NumLeaves != 1 || absFloat(tree.Nodes[0].LeafValue) > 1e-10 {
			finished = false
			break
		}
	}
	return finished, nil
}

// trainRawScores evaluates the current ensemble on the training matrix.
func (b *Booster) trainRawScores() [][]float64 {
	nrow := b.TrainSet.NumData()
	raw := make([][]float64, nrow)
	features := make([]float64, b.TrainSet.NumFeatures())
	for i := 0; i < nrow; i++ {
		mat.Row(features, i, b.TrainSet.Data)
		raw[i] = b.rawScore(features, len(b.Trees))
		if b.TrainSet.InitScore != nil {
			for k := range raw[i] {
				raw[i][k] += b.TrainSet.InitScore[i]
			}
		}
	}
	return raw
}

// rawScore accumulates untransformed per-class scores over the first
// numTrees trees of the ensemble.
func (b *Booster) rawScore(features []float64, numTrees int) []float64 {
	scores := make([]float64, b.NumClass)
	for k := range scores {
		scores[k] = b.InitScore
	}
	if numTrees > len(b.Trees) {
		numTrees = len(b.Trees)
	}
	for t := 0; t < numTrees; t++ {
		scores[t%b.NumClass] += b.Trees[t].Predict(features)
	}
	return scores
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
