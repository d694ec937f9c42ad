package lightgbm

import (
	"github.com/shiroyagi-lab/lgbridge/internal/parallel"
	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// Rows per predict call below which scoring stays on one goroutine.
const parallelRowThreshold = 256

// Predict type selectors, matching the LightGBM C API values.
const (
	// PredictNormal applies the objective's output transformation
	// (identity, sigmoid, or softmax).
	PredictNormal = 0
	// PredictRawScore returns untransformed ensemble scores.
	PredictRawScore = 1
	// PredictLeafIndex returns the leaf ordinal per sample per tree used.
	PredictLeafIndex = 2
	// PredictContrib returns per-feature contributions plus a bias term.
	PredictContrib = 3
)

// PredictForMat predicts for a row-major dense float32 matrix and returns
// float64 results. Scoring always starts at iteration zero; numIteration
// limits how many iterations are used, with zero or negative meaning all.
//
// Result sizing per predict type (k = NumClass):
//
//	PredictNormal, PredictRawScore: nrow * k
//	PredictLeafIndex:               nrow * numIterationUsed * k
//	PredictContrib:                 nrow * k * (ncol + 1)
func (b *Booster) PredictForMat(data []float32, nrow, ncol int, predictType int, numIteration int, config string) ([]float64, error) {
	if nrow <= 0 || ncol <= 0 {
		return nil, scierr.NewValidationError("nrow/ncol", "must be positive", []int{nrow, ncol})
	}
	if len(data) != nrow*ncol {
		return nil, scierr.NewDimensionError("PredictForMat", nrow*ncol, len(data), 0)
	}
	if b.NumFeatures > 0 && ncol != b.NumFeatures {
		return nil, scierr.NewDimensionError("PredictForMat", b.NumFeatures, ncol, 1)
	}
	if _, err := parseConfig(config); err != nil {
		return nil, err
	}

	numIterUsed := numIteration
	if numIterUsed <= 0 || numIterUsed > b.CurrentIter {
		numIterUsed = b.CurrentIter
	}
	numTrees := numIterUsed * b.NumClass

	switch predictType {
	case PredictNormal, PredictRawScore:
		out := make([]float64, nrow*b.NumClass)
		parallel.ForRange(nrow, parallelRowThreshold, func(start, end int) {
			features := make([]float64, ncol)
			for i := start; i < end; i++ {
				for j := 0; j < ncol; j++ {
					features[j] = float64(data[i*ncol+j])
				}
				scores := b.rawScore(features, numTrees)
				if predictType == PredictNormal {
					scores = b.transformScores(scores)
				}
				copy(out[i*b.NumClass:], scores)
			}
		})
		return out, nil

	case PredictLeafIndex:
		out := make([]float64, nrow*numTrees)
		parallel.ForRange(nrow, parallelRowThreshold, func(start, end int) {
			features := make([]float64, ncol)
			for i := start; i < end; i++ {
				for j := 0; j < ncol; j++ {
					features[j] = float64(data[i*ncol+j])
				}
				for t := 0; t < numTrees; t++ {
					out[i*numTrees+t] = float64(b.Trees[t].PredictLeaf(features))
				}
			}
		})
		return out, nil

	case PredictContrib:
		return b.predictContrib(data, nrow, ncol, numTrees)

	default:
		return nil, scierr.NewValidationError("predict_type", "unknown predict type", predictType)
	}
}

func (b *Booster) transformScores(scores []float64) []float64 {
	if b.objective != nil {
		scores[0] = b.objective.TransformScore(scores[0])
		return scores
	}
	return stableSoftmax(scores)
}

// predictContrib attributes each prediction across features using the path
// decomposition of every tree: walking from the root, the change in the
// subtree's expected value at each split is credited to the split feature.
// The per-class layout is ncol feature contributions followed by one bias
// term; bias plus contributions reproduces the raw score.
func (b *Booster) predictContrib(data []float32, nrow, ncol, numTrees int) ([]float64, error) {
	expected := make([][]float64, numTrees)
	for t := 0; t < numTrees; t++ {
		expected[t] = b.Trees[t].expectedValues()
	}

	out := make([]float64, nrow*b.NumClass*(ncol+1))
	features := make([]float64, ncol)
	for i := 0; i < nrow; i++ {
		for j := 0; j < ncol; j++ {
			features[j] = float64(data[i*ncol+j])
		}
		rowBase := i * b.NumClass * (ncol + 1)
		for k := 0; k < b.NumClass; k++ {
			out[rowBase+k*(ncol+1)+ncol] = b.InitScore
		}

		for t := 0; t < numTrees; t++ {
			tree := &b.Trees[t]
			if len(tree.Nodes) == 0 {
				continue
			}
			classBase := rowBase + (t%b.NumClass)*(ncol+1)
			shrink := tree.ShrinkageRate

			out[classBase+ncol] += expected[t][0] * shrink
			nodeID := 0
			for !tree.Nodes[nodeID].IsLeaf() {
				node := &tree.Nodes[nodeID]
				next := node.RightChild
				if features[node.SplitFeature] <= node.Threshold {
					next = node.LeftChild
				}
				delta := expected[t][next] - expected[t][nodeID]
				out[classBase+node.SplitFeature] += delta * shrink
				nodeID = next
			}
		}
	}
	return out, nil
}
