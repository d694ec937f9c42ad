package lightgbm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is a single node in a decision tree. Children reference positions in
// the tree's Nodes slice; -1 marks a missing child, and a node with both
// children missing is a leaf.
type Node struct {
	LeftChild  int
	RightChild int

	// Split information (internal nodes)
	SplitFeature int
	Threshold    float64
	Gain         float64

	// Leaf information
	LeafValue float64

	// Statistics captured during training
	InternalValue float64
	Count         int
}

// IsLeaf returns true when the node has no children.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a single decision tree in the ensemble. Leaf values are stored
// unscaled; ShrinkageRate is applied at prediction time.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64
	Nodes         []Node
}

// Predict returns the shrinkage-scaled output for one sample.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// PredictLeaf returns the ordinal leaf index the sample lands in. Leaves are
// numbered in node-storage order, matching the serialized leaf arrays.
func (t *Tree) PredictLeaf(features []float64) int {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return t.leafOrdinal(nodeID)
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

func (t *Tree) leafOrdinal(nodeID int) int {
	ordinal := 0
	for i := 0; i < nodeID; i++ {
		if t.Nodes[i].IsLeaf() {
			ordinal++
		}
	}
	return ordinal
}

// expectedValues computes, for every node, the count-weighted average leaf
// value of its subtree. Used by contribution predictions. Falls back to an
// unweighted average when counts are unavailable (loaded models).
func (t *Tree) expectedValues() []float64 {
	expected := make([]float64, len(t.Nodes))
	var walk func(nodeID int) (float64, float64)
	walk = func(nodeID int) (float64, float64) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			expected[nodeID] = node.LeafValue
			return node.LeafValue, math.Max(float64(node.Count), 1.0)
		}
		lv, lc := walk(node.LeftChild)
		rv, rc := walk(node.RightChild)
		expected[nodeID] = (lv*lc + rv*rc) / (lc + rc)
		return expected[nodeID], lc + rc
	}
	if len(t.Nodes) > 0 {
		walk(0)
	}
	return expected
}

// treeBuilder grows one tree from per-sample gradients and hessians using
// exact greedy depth-wise splitting.
type treeBuilder struct {
	data      *mat.Dense
	gradients []float64
	hessians  []float64

	maxDepth       int
	minDataInLeaf  int
	maxLeaves      int
	lambdaL2       float64
	minGainToSplit float64

	nodes     []Node
	numLeaves int
}

func buildTree(data *mat.Dense, gradients, hessians []float64, p *Params, shrinkage float64) Tree {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}
	minDataInLeaf := p.MinDataInLeaf
	if minDataInLeaf <= 0 {
		minDataInLeaf = 20
	}
	maxLeaves := p.NumLeaves
	if maxLeaves <= 0 {
		maxLeaves = 31
	}

	nrow, _ := data.Dims()
	indices := make([]int, nrow)
	for i := range indices {
		indices[i] = i
	}

	b := &treeBuilder{
		data:           data,
		gradients:      gradients,
		hessians:       hessians,
		maxDepth:       maxDepth,
		minDataInLeaf:  minDataInLeaf,
		maxLeaves:      maxLeaves,
		lambdaL2:       p.LambdaL2,
		minGainToSplit: p.MinGainToSplit,
	}
	b.buildNode(indices, 0)

	return Tree{
		NumLeaves:     b.numLeaves,
		ShrinkageRate: shrinkage,
		Nodes:         b.nodes,
	}
}

// buildNode appends the subtree rooted at the given sample partition and
// returns its node position.
func (b *treeBuilder) buildNode(indices []int, depth int) int {
	sumGrad := 0.0
	sumHess := 0.0
	for _, idx := range indices {
		sumGrad += b.gradients[idx]
		sumHess += b.hessians[idx]
	}
	internalValue := -sumGrad / (sumHess + b.lambdaL2)

	makeLeaf := func() int {
		nodeID := len(b.nodes)
		b.nodes = append(b.nodes, Node{
			LeftChild:     -1,
			RightChild:    -1,
			LeafValue:     internalValue,
			InternalValue: internalValue,
			Count:         len(indices),
		})
		b.numLeaves++
		return nodeID
	}

	if depth >= b.maxDepth || len(indices) < 2*b.minDataInLeaf || b.numLeaves+1 >= b.maxLeaves {
		return makeLeaf()
	}

	best := b.findBestSplit(indices, sumGrad, sumHess)
	if best.gain <= b.minGainToSplit {
		return makeLeaf()
	}

	leftIndices, rightIndices := b.partition(indices, best.feature, best.threshold)

	nodeID := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		SplitFeature:  best.feature,
		Threshold:     best.threshold,
		Gain:          best.gain,
		InternalValue: internalValue,
		Count:         len(indices),
	})
	// Children are appended after their parent, so positions are resolved
	// once the recursive calls return.
	left := b.buildNode(leftIndices, depth+1)
	right := b.buildNode(rightIndices, depth+1)
	b.nodes[nodeID].LeftChild = left
	b.nodes[nodeID].RightChild = right
	return nodeID
}

type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) findBestSplit(indices []int, totalGrad, totalHess float64) splitInfo {
	best := splitInfo{gain: -math.MaxFloat64}
	_, numFeatures := b.data.Dims()

	sorted := make([]int, len(indices))
	for feature := 0; feature < numFeatures; feature++ {
		copy(sorted, indices)
		sort.Slice(sorted, func(i, j int) bool {
			return b.data.At(sorted[i], feature) < b.data.At(sorted[j], feature)
		})

		leftGrad := 0.0
		leftHess := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			idx := sorted[i]
			leftGrad += b.gradients[idx]
			leftHess += b.hessians[idx]

			leftCount := i + 1
			rightCount := len(sorted) - leftCount
			if leftCount < b.minDataInLeaf || rightCount < b.minDataInLeaf {
				continue
			}

			currentVal := b.data.At(sorted[i], feature)
			nextVal := b.data.At(sorted[i+1], feature)
			if currentVal == nextVal {
				continue
			}

			gain := splitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess, b.lambdaL2)
			if gain > best.gain {
				best.feature = feature
				best.threshold = (currentVal + nextVal) / 2.0
				best.gain = gain
			}
		}
	}
	return best
}

func splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess, lambdaL2 float64) float64 {
	leftScore := (leftGrad * leftGrad) / (leftHess + lambdaL2)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambdaL2)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambdaL2)
	return 0.5 * (leftScore + rightScore - totalScore)
}

func (b *treeBuilder) partition(indices []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if b.data.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}
