package lightgbm

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// The text model format follows the LightGBM convention: a key=value header,
// one "Tree=i" block per tree with space-separated array fields, and a
// trailing feature_importances section. Internal nodes and leaves are
// numbered separately; child references >= 0 point at internal nodes and
// negative references encode leaf index ~ref.
//
// Floats are formatted with strconv 'g'/-1 so that a save/load round trip
// reproduces predictions bit for bit.

// SaveModelToString serializes the full ensemble to text. Feature
// importance is reported as split counts.
func (b *Booster) SaveModelToString() string {
	var sb strings.Builder

	sb.WriteString("tree\n")
	sb.WriteString("version=v4\n")
	fmt.Fprintf(&sb, "num_class=%d\n", b.NumClass)
	fmt.Fprintf(&sb, "num_iterations=%d\n", b.CurrentIter)
	fmt.Fprintf(&sb, "objective=%s\n", b.objectiveName())
	fmt.Fprintf(&sb, "learning_rate=%s\n", formatFloat(b.Params.LearningRate))
	fmt.Fprintf(&sb, "init_score=%s\n", formatFloat(b.InitScore))
	fmt.Fprintf(&sb, "max_feature_idx=%d\n", b.NumFeatures-1)
	fmt.Fprintf(&sb, "feature_names=%s\n", strings.Join(b.featureNames(), " "))

	for i := range b.Trees {
		sb.WriteString("\n")
		b.writeTree(&sb, i)
	}

	sb.WriteString("\nend of trees\n")
	b.writeFeatureImportances(&sb)
	return sb.String()
}

func (b *Booster) objectiveName() string {
	if b.Params != nil {
		return b.Params.Objective
	}
	return "regression"
}

func (b *Booster) featureNames() []string {
	names := make([]string, b.NumFeatures)
	for i := range names {
		names[i] = fmt.Sprintf("Column_%d", i)
	}
	return names
}

// writeTree emits one Tree block. Node references are assigned in preorder
// so the parser rebuilds the exact storage layout.
func (b *Booster) writeTree(sb *strings.Builder, treeIdx int) {
	tree := &b.Trees[treeIdx]

	internalRef := make(map[int]int)
	leafRef := make(map[int]int)
	var order func(nodeID int)
	order = func(nodeID int) {
		node := &tree.Nodes[nodeID]
		if node.IsLeaf() {
			leafRef[nodeID] = len(leafRef)
			return
		}
		internalRef[nodeID] = len(internalRef)
		order(node.LeftChild)
		order(node.RightChild)
	}
	if len(tree.Nodes) > 0 {
		order(0)
	}

	ref := func(nodeID int) int {
		if leaf, ok := leafRef[nodeID]; ok {
			return ^leaf
		}
		return internalRef[nodeID]
	}

	numInternal := len(internalRef)
	splitFeature := make([]string, numInternal)
	splitGain := make([]string, numInternal)
	threshold := make([]string, numInternal)
	leftChild := make([]string, numInternal)
	rightChild := make([]string, numInternal)
	internalValue := make([]string, numInternal)
	internalCount := make([]string, numInternal)
	leafValue := make([]string, len(leafRef))
	leafCount := make([]string, len(leafRef))

	for nodeID, idx := range internalRef {
		node := &tree.Nodes[nodeID]
		splitFeature[idx] = strconv.Itoa(node.SplitFeature)
		splitGain[idx] = formatFloat(node.Gain)
		threshold[idx] = formatFloat(node.Threshold)
		leftChild[idx] = strconv.Itoa(ref(node.LeftChild))
		rightChild[idx] = strconv.Itoa(ref(node.RightChild))
		internalValue[idx] = formatFloat(node.InternalValue)
		internalCount[idx] = strconv.Itoa(node.Count)
	}
	for nodeID, idx := range leafRef {
		node := &tree.Nodes[nodeID]
		leafValue[idx] = formatFloat(node.LeafValue)
		leafCount[idx] = strconv.Itoa(node.Count)
	}

	fmt.Fprintf(sb, "Tree=%d\n", treeIdx)
	fmt.Fprintf(sb, "num_leaves=%d\n", len(leafRef))
	fmt.Fprintf(sb, "shrinkage=%s\n", formatFloat(tree.ShrinkageRate))
	if numInternal > 0 {
		fmt.Fprintf(sb, "split_feature=%s\n", strings.Join(splitFeature, " "))
		fmt.Fprintf(sb, "split_gain=%s\n", strings.Join(splitGain, " "))
		fmt.Fprintf(sb, "threshold=%s\n", strings.Join(threshold, " "))
		fmt.Fprintf(sb, "left_child=%s\n", strings.Join(leftChild, " "))
		fmt.Fprintf(sb, "right_child=%s\n", strings.Join(rightChild, " "))
		fmt.Fprintf(sb, "internal_value=%s\n", strings.Join(internalValue, " "))
		fmt.Fprintf(sb, "internal_count=%s\n", strings.Join(internalCount, " "))
	}
	fmt.Fprintf(sb, "leaf_value=%s\n", strings.Join(leafValue, " "))
	fmt.Fprintf(sb, "leaf_count=%s\n", strings.Join(leafCount, " "))
}

func (b *Booster) writeFeatureImportances(sb *strings.Builder) {
	importance := b.FeatureImportance("split")
	type featImp struct {
		name  string
		value float64
	}
	ranked := make([]featImp, 0, len(importance))
	names := b.featureNames()
	for i, v := range importance {
		if v > 0 {
			ranked = append(ranked, featImp{names[i], v})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })

	sb.WriteString("\nfeature_importances:\n")
	for _, fi := range ranked {
		fmt.Fprintf(sb, "%s=%d\n", fi.name, int(fi.value))
	}
}

// FeatureImportance computes per-feature importance: "split" counts how
// often a feature is used, "gain" sums the split gains.
func (b *Booster) FeatureImportance(importanceType string) []float64 {
	importance := make([]float64, b.NumFeatures)
	for _, tree := range b.Trees {
		for i := range tree.Nodes {
			node := &tree.Nodes[i]
			if node.IsLeaf() || node.SplitFeature >= len(importance) {
				continue
			}
			switch importanceType {
			case "gain":
				importance[node.SplitFeature] += node.Gain
			default:
				importance[node.SplitFeature]++
			}
		}
	}
	return importance
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LoadModelFromString reconstructs a booster from text produced by
// SaveModelToString. The returned booster has no training dataset and
// cannot be updated further.
func LoadModelFromString(modelStr string) (*Booster, error) {
	scanner := bufio.NewScanner(strings.NewReader(modelStr))
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	booster := &Booster{
		Params:   defaultParams(),
		NumClass: 1,
	}
	sawMagic := false
	numIterations := -1

	var block map[string]string
	var blockIdx int
	flushTree := func() error {
		if block == nil {
			return nil
		}
		tree, err := parseTreeBlock(block, blockIdx, booster.NumFeatures)
		if err != nil {
			return err
		}
		booster.Trees = append(booster.Trees, tree)
		block = nil
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "tree" {
			sawMagic = true
			continue
		}
		if line == "end of trees" {
			if err := flushTree(); err != nil {
				return nil, err
			}
			// Remaining sections (feature importances) are informational.
			break
		}
		if strings.HasSuffix(line, ":") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			return nil, scierr.NewModelError("LoadModelFromString", "deserialization failed",
				scierr.Newf("malformed line %q", line))
		}
		key, value := kv[0], kv[1]

		if key == "Tree" {
			if err := flushTree(); err != nil {
				return nil, err
			}
			idx, err := strconv.Atoi(value)
			if err != nil {
				return nil, scierr.NewModelError("LoadModelFromString", "deserialization failed",
					scierr.Newf("invalid tree index %q", value))
			}
			block = make(map[string]string)
			blockIdx = idx
			continue
		}
		if block != nil {
			block[key] = value
			continue
		}

		if err := booster.applyHeaderField(key, value, &numIterations); err != nil {
			return nil, err
		}
	}
	if err := flushTree(); err != nil {
		return nil, err
	}

	if !sawMagic {
		return nil, scierr.NewModelError("LoadModelFromString", "deserialization failed",
			scierr.New("missing model header"))
	}

	objective, err := objectiveFromName(booster.Params.Objective)
	if err != nil {
		return nil, scierr.NewModelError("LoadModelFromString", "deserialization failed", err)
	}
	booster.objective = objective

	if booster.NumClass < 1 {
		booster.NumClass = 1
	}
	if numIterations >= 0 {
		booster.CurrentIter = numIterations
	} else {
		booster.CurrentIter = len(booster.Trees) / booster.NumClass
	}
	if booster.CurrentIter*booster.NumClass != len(booster.Trees) {
		return nil, scierr.NewModelError("LoadModelFromString", "deserialization failed",
			scierr.Newf("tree count %d inconsistent with %d iterations of %d classes",
				len(booster.Trees), booster.CurrentIter, booster.NumClass))
	}
	return booster, nil
}

func (b *Booster) applyHeaderField(key, value string, numIterations *int) error {
	badField := func(err error) error {
		return scierr.NewModelError("LoadModelFromString", "deserialization failed",
			scierr.Wrapf(err, "invalid header field %s", key))
	}
	switch key {
	case "version":
		// Accepted for compatibility; the format is self-describing.
	case "num_class":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badField(err)
		}
		b.NumClass = n
	case "num_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badField(err)
		}
		*numIterations = n
	case "objective":
		b.Params.Objective = value
	case "learning_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return badField(err)
		}
		b.Params.LearningRate = f
	case "init_score":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return badField(err)
		}
		b.InitScore = f
	case "max_feature_idx":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badField(err)
		}
		b.NumFeatures = n + 1
	case "feature_names":
		// Names are regenerated on save; nothing to retain.
	}
	return nil
}

func parseTreeBlock(block map[string]string, treeIdx, numFeatures int) (Tree, error) {
	badBlock := func(format string, args ...interface{}) (Tree, error) {
		return Tree{}, scierr.NewModelError("LoadModelFromString", "deserialization failed",
			scierr.Newf("Tree=%d: "+format, append([]interface{}{treeIdx}, args...)...))
	}

	numLeaves, err := strconv.Atoi(block["num_leaves"])
	if err != nil || numLeaves < 1 {
		return badBlock("invalid num_leaves %q", block["num_leaves"])
	}
	shrinkage, err := strconv.ParseFloat(block["shrinkage"], 64)
	if err != nil {
		return badBlock("invalid shrinkage %q", block["shrinkage"])
	}

	leafValue, err := parseFloatArray(block["leaf_value"], numLeaves)
	if err != nil {
		return badBlock("leaf_value: %v", err)
	}
	leafCount, err := parseIntArray(block["leaf_count"], numLeaves)
	if err != nil {
		return badBlock("leaf_count: %v", err)
	}

	numInternal := numLeaves - 1
	var splitFeature, leftChild, rightChild, internalCount []int
	var splitGain, threshold, internalValue []float64
	if numInternal > 0 {
		if splitFeature, err = parseIntArray(block["split_feature"], numInternal); err != nil {
			return badBlock("split_feature: %v", err)
		}
		if splitGain, err = parseFloatArray(block["split_gain"], numInternal); err != nil {
			return badBlock("split_gain: %v", err)
		}
		if threshold, err = parseFloatArray(block["threshold"], numInternal); err != nil {
			return badBlock("threshold: %v", err)
		}
		if leftChild, err = parseIntArray(block["left_child"], numInternal); err != nil {
			return badBlock("left_child: %v", err)
		}
		if rightChild, err = parseIntArray(block["right_child"], numInternal); err != nil {
			return badBlock("right_child: %v", err)
		}
		if internalValue, err = parseFloatArray(block["internal_value"], numInternal); err != nil {
			return badBlock("internal_value: %v", err)
		}
		if internalCount, err = parseIntArray(block["internal_count"], numInternal); err != nil {
			return badBlock("internal_count: %v", err)
		}
		for i, f := range splitFeature {
			if f < 0 || (numFeatures > 0 && f >= numFeatures) {
				return badBlock("split_feature[%d]=%d out of range for %d features", i, f, numFeatures)
			}
		}
	}

	// Each reference must be consumed exactly once; a repeated reference
	// would make the node graph cyclic instead of a tree.
	usedInternal := make([]bool, numInternal)
	usedLeaf := make([]bool, numLeaves)

	nodes := make([]Node, 0, numInternal+numLeaves)
	var build func(ref int) (int, error)
	build = func(ref int) (int, error) {
		pos := len(nodes)
		if ref < 0 {
			leaf := ^ref
			if leaf >= numLeaves {
				return 0, scierr.Newf("leaf reference %d out of range", leaf)
			}
			if usedLeaf[leaf] {
				return 0, scierr.Newf("leaf reference %d appears more than once", leaf)
			}
			usedLeaf[leaf] = true
			nodes = append(nodes, Node{
				LeftChild:     -1,
				RightChild:    -1,
				LeafValue:     leafValue[leaf],
				InternalValue: leafValue[leaf],
				Count:         leafCount[leaf],
			})
			return pos, nil
		}
		if ref >= numInternal {
			return 0, scierr.Newf("node reference %d out of range", ref)
		}
		if usedInternal[ref] {
			return 0, scierr.Newf("node reference %d appears more than once", ref)
		}
		usedInternal[ref] = true
		nodes = append(nodes, Node{
			SplitFeature:  splitFeature[ref],
			Threshold:     threshold[ref],
			Gain:          splitGain[ref],
			InternalValue: internalValue[ref],
			Count:         internalCount[ref],
		})
		left, err := build(leftChild[ref])
		if err != nil {
			return 0, err
		}
		right, err := build(rightChild[ref])
		if err != nil {
			return 0, err
		}
		nodes[pos].LeftChild = left
		nodes[pos].RightChild = right
		return pos, nil
	}

	rootRef := 0
	if numInternal == 0 {
		rootRef = ^0
	}
	if _, err := build(rootRef); err != nil {
		return badBlock("%v", err)
	}
	if len(nodes) != numInternal+numLeaves {
		return badBlock("%d of %d nodes reachable from the root", len(nodes), numInternal+numLeaves)
	}

	return Tree{
		TreeIndex:     treeIdx,
		NumLeaves:     numLeaves,
		ShrinkageRate: shrinkage,
		Nodes:         nodes,
	}, nil
}

func parseFloatArray(s string, want int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, scierr.Newf("expected %d values, got %d", want, len(fields))
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, scierr.Newf("invalid value %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func parseIntArray(s string, want int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, scierr.Newf("expected %d values, got %d", want, len(fields))
	}
	out := make([]int, want)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, scierr.Newf("invalid value %q", f)
		}
		out[i] = v
	}
	return out, nil
}
