package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrModelNotTrained is returned when predicting with or saving an empty model.
var ErrModelNotTrained = errors.New("model not trained")

// DecisionTree is a binary-split CART classifier using Gini impurity.
// Nodes are stored flat; children are referenced by index.
type DecisionTree struct {
	nodes []TreeNode
	// schema is recorded in saved files; trees grown inside a forest leave it empty.
	schema Schema

	maxDepth        int
	minSamplesSplit int
	// maxFeatures limits how many features are examined per split; 0 means all.
	maxFeatures int
	rng         *rand.Rand
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Confidence float64 `json:"confidence,omitempty"`
	IsLeaf     bool    `json:"is_leaf"`
}

// TreeConfig holds the growth limits of a single tree.
type TreeConfig struct {
	Schema          Schema
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Seed            int64
}

func NewDecisionTree(cfg TreeConfig) *DecisionTree {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 32
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	return &DecisionTree{
		schema:          cfg.Schema,
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		maxFeatures:     cfg.MaxFeatures,
		rng:             rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	for _, label := range labels {
		if label < 0 {
			return fmt.Errorf("negative class label %d", label)
		}
	}
	if dt.maxDepth <= 0 {
		dt.maxDepth = 32
	}
	if dt.minSamplesSplit < 2 {
		dt.minSamplesSplit = 2
	}
	if dt.rng == nil {
		dt.rng = rand.New(rand.NewSource(0))
	}

	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}
	dt.nodes = dt.buildNode(features, labels, indices, 0)
	return nil
}

// Predict walks the tree and returns the leaf label and the share of training
// samples in that leaf carrying it.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, ErrModelNotTrained
	}
	if dt.schema.Len() > 0 && len(features) != dt.schema.Len() {
		return 0, 0, fmt.Errorf("got %d features, model expects %d", len(features), dt.schema.Len())
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Confidence, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
}

// Save writes the tree in the same artifact layout as a forest of one.
func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return ErrModelNotTrained
	}
	payload, err := json.Marshal(modelFile{
		Format:    modelFormatVersion,
		ModelType: ModelTypeDecisionTree,
		Schema:    dt.schema,
		Config: ForestConfig{
			NTrees:          1,
			MaxDepth:        dt.maxDepth,
			MinSamplesSplit: dt.minSamplesSplit,
			MaxFeatures:     dt.maxFeatures,
		},
		Trees: [][]TreeNode{dt.nodes},
	})
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return writeFileAtomic(path, payload)
}

func (dt *DecisionTree) Load(path string) error {
	file, err := readModelFile(path, ModelTypeDecisionTree, dt.schema)
	if err != nil {
		return err
	}
	if len(file.Trees) != 1 {
		return fmt.Errorf("decision tree file holds %d trees", len(file.Trees))
	}
	dt.nodes = file.Trees[0]
	dt.schema = file.Schema
	dt.maxDepth = file.Config.MaxDepth
	dt.minSamplesSplit = file.Config.MinSamplesSplit
	dt.maxFeatures = file.Config.MaxFeatures
	return nil
}

// Depth returns the length of the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return 0
		}
		return 1 + max(walk(node.LeftChild), walk(node.RightChild))
	}
	return walk(0)
}

func validateNodes(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, indices []int, depth int) []TreeNode {
	counts := classCounts(labels, indices)
	label, share := majority(counts, len(indices))
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		Confidence: share,
		IsLeaf:     true,
	}}
	if depth >= dt.maxDepth || len(indices) < dt.minSamplesSplit || share == 1 {
		return leaf
	}

	bestFeature, threshold, ok := dt.findBestSplit(features, labels, indices, counts)
	if !ok {
		return leaf
	}

	left, right := splitIndices(features, indices, bestFeature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}

	leftNodes := dt.buildNode(features, labels, left, depth+1)
	rightNodes := dt.buildNode(features, labels, right, depth+1)

	root := TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		ClassLabel: label,
		Confidence: share,
		IsLeaf:     false,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// shiftChildren rebases child indices of a subtree placed at offset.
func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

// candidateFeatures picks the features examined at one split.
func (dt *DecisionTree) candidateFeatures(featureCount int) []int {
	perm := dt.rng.Perm(featureCount)
	if dt.maxFeatures <= 0 || dt.maxFeatures >= featureCount {
		return perm
	}
	return perm[:dt.maxFeatures]
}

// findBestSplit sorts the samples on each candidate feature and sweeps every
// midpoint between distinct values, keeping the lowest weighted Gini.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, indices []int, parent []int) (int, float64, bool) {
	featureCount := len(features[indices[0]])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := gini(parent, len(indices))

	sorted := make([]int, len(indices))
	for _, featureIdx := range dt.candidateFeatures(featureCount) {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
		})

		left := make([]int, len(parent))
		right := append([]int(nil), parent...)
		total := len(sorted)
		for i := 0; i < total-1; i++ {
			label := labels[sorted[i]]
			left[label]++
			right[label]--

			current := features[sorted[i]][featureIdx]
			next := features[sorted[i+1]][featureIdx]
			if current == next {
				continue
			}
			nLeft := i + 1
			nRight := total - nLeft
			impurity := (float64(nLeft)*gini(left, nLeft) + float64(nRight)*gini(right, nRight)) / float64(total)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = current + (next-current)/2
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitIndices(features [][]float64, indices []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if features[idx][featureIdx] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func classCounts(labels []int, indices []int) []int {
	maxLabel := 0
	for _, idx := range indices {
		if labels[idx] > maxLabel {
			maxLabel = labels[idx]
		}
	}
	counts := make([]int, maxLabel+1)
	for _, idx := range indices {
		counts[labels[idx]]++
	}
	return counts
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(total)
		impurity -= prob * prob
	}
	return impurity
}

// majority returns the most frequent label (lowest label on ties) and its share.
func majority(counts []int, total int) (int, float64) {
	bestLabel := 0
	bestCount := -1
	for label, count := range counts {
		if count > bestCount {
			bestCount = count
			bestLabel = label
		}
	}
	if total == 0 {
		return bestLabel, 0
	}
	return bestLabel, math.Round(float64(bestCount)/float64(total)*1e6) / 1e6
}
