package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 2, 2}

	model := NewDecisionTree(TreeConfig{MaxDepth: 2})
	require.NoError(t, model.Train(features, labels))

	label, confidence, err := model.Predict([]float64{0.15, 0.15})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.Greater(t, confidence, 0.0)

	label, _, err = model.Predict([]float64{0.85, 0.85})
	require.NoError(t, err)
	assert.Equal(t, 2, label)
}

func TestDecisionTreeDeepSubtreesKeepIndices(t *testing.T) {
	// Three thresholds on one feature force nested subtrees on both sides.
	features := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	labels := []int{0, 1, 0, 1, 0, 1, 0, 1}

	model := NewDecisionTree(TreeConfig{})
	require.NoError(t, model.Train(features, labels))
	require.NoError(t, validateNodes(model.nodes))

	for i, row := range features {
		label, confidence, err := model.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, labels[i], label, "row %v", row)
		assert.Equal(t, 1.0, confidence)
	}
	assert.Greater(t, model.Depth(), 2)
}

func TestDecisionTreeTrainErrors(t *testing.T) {
	tests := []struct {
		name     string
		features [][]float64
		labels   []int
	}{
		{name: "empty", features: nil, labels: nil},
		{name: "size mismatch", features: [][]float64{{1}}, labels: []int{0, 1}},
		{name: "ragged rows", features: [][]float64{{1, 2}, {1}}, labels: []int{0, 1}},
		{name: "negative label", features: [][]float64{{1}}, labels: []int{-1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewDecisionTree(TreeConfig{}).Train(tt.features, tt.labels))
		})
	}
}

func TestDecisionTreeUntrained(t *testing.T) {
	model := &DecisionTree{}
	_, _, err := model.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrModelNotTrained)
	assert.ErrorIs(t, model.Save(filepath.Join(t.TempDir(), "dt.json")), ErrModelNotTrained)
}

func TestDecisionTreeSaveLoad(t *testing.T) {
	features, labels := syntheticRows(200, 7)
	model := NewDecisionTree(TreeConfig{Schema: ThyroidSchema(), Seed: 1})
	require.NoError(t, model.Train(features, labels))

	path := filepath.Join(t.TempDir(), "models", "dt.json")
	require.NoError(t, model.Save(path))

	loaded, err := LoadModel(ModelTypeDecisionTree, path, ThyroidSchema())
	require.NoError(t, err)
	for _, row := range features[:50] {
		want, _, err := model.Predict(row)
		require.NoError(t, err)
		got, _, err := loaded.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecisionTreeLoadChecksArtifact(t *testing.T) {
	features, labels := syntheticRows(120, 3)
	dir := t.TempDir()

	tree := NewDecisionTree(TreeConfig{Schema: ThyroidSchema(), Seed: 1})
	require.NoError(t, tree.Train(features, labels))
	treePath := filepath.Join(dir, "dt.json")
	require.NoError(t, tree.Save(treePath))

	forest := NewRandomForest(ThyroidSchema(), ForestConfig{NTrees: 3, Seed: 1})
	require.NoError(t, forest.Train(features, labels))
	forestPath := filepath.Join(dir, "rf.json")
	require.NoError(t, forest.Save(forestPath))

	_, err := LoadModel(ModelTypeDecisionTree, forestPath, ThyroidSchema())
	assert.ErrorContains(t, err, `holds "random_forest"`)
	_, err = LoadModel(ModelTypeRandomForest, treePath, ThyroidSchema())
	assert.ErrorContains(t, err, `holds "decision_tree"`)

	reordered := ThyroidSchema()
	reordered.Fields[0], reordered.Fields[1] = reordered.Fields[1], reordered.Fields[0]
	_, err = LoadModel(ModelTypeDecisionTree, treePath, reordered)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	loaded, err := LoadModel(ModelTypeDecisionTree, treePath, ThyroidSchema())
	require.NoError(t, err)
	assert.Equal(t, tree.Depth(), loaded.(*DecisionTree).Depth())
	_, _, err = loaded.Predict([]float64{1, 2})
	assert.ErrorContains(t, err, "model expects 21")
}
