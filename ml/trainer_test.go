package ml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainModel(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(syntheticCSV(250, 21)), ThyroidSchema(), LabelColumn)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "model.json")
	result, err := TrainModel(ds, ThyroidSchema(), TrainingConfig{
		ModelPath: path,
		TestRatio: 0.2,
		SplitSeed: 42,
		Forest:    ForestConfig{NTrees: 10, Seed: 42},
	})
	require.NoError(t, err)

	assert.Len(t, result.Holdout.TestX, 50)
	assert.Len(t, result.Holdout.TrainX, 200)
	assert.Equal(t, 50, result.Metrics.Samples)
	assert.Greater(t, result.Metrics.Accuracy, 0.85)

	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadModel(ModelTypeRandomForest, path, ThyroidSchema())
	require.NoError(t, err)
	for _, row := range result.Holdout.TestX {
		want, _, _ := result.Model.Predict(row)
		got, _, err := loaded.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTrainModelDecisionTree(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(syntheticCSV(250, 21)), ThyroidSchema(), LabelColumn)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tree.json")
	result, err := TrainModel(ds, ThyroidSchema(), TrainingConfig{
		ModelType: ModelTypeDecisionTree,
		ModelPath: path,
		TestRatio: 0.2,
		SplitSeed: 42,
		Forest:    ForestConfig{MaxDepth: 8, Seed: 42},
	})
	require.NoError(t, err)
	tree, ok := result.Model.(*DecisionTree)
	require.True(t, ok)
	assert.LessOrEqual(t, tree.Depth(), 8)
	assert.Greater(t, result.Metrics.Accuracy, 0.85)

	loaded, err := LoadModel(ModelTypeDecisionTree, path, ThyroidSchema())
	require.NoError(t, err)
	for _, row := range result.Holdout.TestX {
		want, _, _ := tree.Predict(row)
		got, _, err := loaded.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTrainModelErrors(t *testing.T) {
	_, err := TrainModel(nil, ThyroidSchema(), TrainingConfig{ModelPath: "x"})
	assert.Error(t, err)

	ds := &Dataset{Features: [][]float64{{1}}, Labels: []int{1}}
	_, err = TrainModel(ds, ThyroidSchema(), TrainingConfig{})
	assert.ErrorContains(t, err, "model path")

	_, err = TrainModel(ds, ThyroidSchema(), TrainingConfig{ModelPath: filepath.Join(t.TempDir(), "m.json")})
	assert.ErrorContains(t, err, "fit model")

	_, err = TrainModel(ds, ThyroidSchema(), TrainingConfig{ModelType: "svm", ModelPath: "x"})
	assert.ErrorContains(t, err, "unsupported model type")
}

func TestEvaluate(t *testing.T) {
	model := NewDecisionTree(TreeConfig{})
	require.NoError(t, model.Train([][]float64{{0}, {1}}, []int{0, 1}))

	m := Evaluate(model, [][]float64{{0}, {1}, {1}, {0}}, []int{0, 1, 0, 1})
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, 0.5, m.Precision)
	assert.Equal(t, 0.5, m.Recall)
	assert.Equal(t, 0.5, m.F1)
	assert.Equal(t, Metrics{}, Evaluate(model, nil, nil))
}
