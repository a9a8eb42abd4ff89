package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

const (
	ModelTypeRandomForest = "random_forest"
	ModelTypeDecisionTree = "decision_tree"

	modelFormatVersion = 1
)

// ErrSchemaMismatch is returned when a model artifact was trained on a
// different feature layout than the caller expects.
var ErrSchemaMismatch = errors.New("model schema does not match feature schema")

// ForestConfig holds the ensemble hyperparameters. Zero values select defaults.
type ForestConfig struct {
	NTrees          int   `json:"n_trees" yaml:"n_trees"`
	MaxDepth        int   `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split" yaml:"min_samples_split"`
	MaxFeatures     int   `json:"max_features" yaml:"max_features"`
	Seed            int64 `json:"seed" yaml:"seed"`
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NTrees:          100,
		MaxDepth:        32,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

func (c ForestConfig) withDefaults(featureCount int) ForestConfig {
	def := DefaultForestConfig()
	if c.NTrees <= 0 {
		c.NTrees = def.NTrees
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = def.MinSamplesSplit
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(featureCount)))))
	}
	return c
}

// RandomForest bags DecisionTrees grown on bootstrap samples with a random
// feature subset per split and predicts by majority vote.
type RandomForest struct {
	config ForestConfig
	schema Schema
	trees  []*DecisionTree
}

func NewRandomForest(schema Schema, config ForestConfig) *RandomForest {
	return &RandomForest{config: config, schema: schema}
}

func (rf *RandomForest) Schema() Schema {
	return rf.schema
}

func (rf *RandomForest) Config() ForestConfig {
	return rf.config
}

func (rf *RandomForest) NumTrees() int {
	return len(rf.trees)
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if rf.schema.Len() > 0 && len(features[0]) != rf.schema.Len() {
		return fmt.Errorf("rows have %d features, schema has %d", len(features[0]), rf.schema.Len())
	}

	cfg := rf.config.withDefaults(len(features[0]))
	rng := rand.New(rand.NewSource(cfg.Seed))
	trees := make([]*DecisionTree, 0, cfg.NTrees)
	n := len(features)
	for t := 0; t < cfg.NTrees; t++ {
		sampleX := make([][]float64, n)
		sampleY := make([]int, n)
		for i := 0; i < n; i++ {
			idx := rng.Intn(n)
			sampleX[i] = features[idx]
			sampleY[i] = labels[idx]
		}
		tree := NewDecisionTree(TreeConfig{
			MaxDepth:        cfg.MaxDepth,
			MinSamplesSplit: cfg.MinSamplesSplit,
			MaxFeatures:     cfg.MaxFeatures,
			Seed:            rng.Int63(),
		})
		if err := tree.Train(sampleX, sampleY); err != nil {
			return fmt.Errorf("train tree %d: %w", t, err)
		}
		trees = append(trees, tree)
	}
	rf.config = cfg
	rf.trees = trees
	return nil
}

// Predict returns the majority-vote label and the fraction of trees voting for it.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	if len(rf.trees) == 0 {
		return 0, 0, ErrModelNotTrained
	}
	if rf.schema.Len() > 0 && len(features) != rf.schema.Len() {
		return 0, 0, fmt.Errorf("got %d features, model expects %d", len(features), rf.schema.Len())
	}
	votes := make(map[int]int)
	for _, tree := range rf.trees {
		label, _, err := tree.Predict(features)
		if err != nil {
			return 0, 0, err
		}
		votes[label]++
	}
	best, bestCount := 0, -1
	for label, count := range votes {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best, float64(bestCount) / float64(len(rf.trees)), nil
}

// modelFile is the on-disk artifact: a header naming the feature layout,
// followed by the trees as flat node lists.
type modelFile struct {
	Format    int          `json:"format"`
	ModelType string       `json:"model_type"`
	Schema    Schema       `json:"schema"`
	Config    ForestConfig `json:"config"`
	Trees     [][]TreeNode `json:"trees"`
}

// Save writes the forest to path, replacing any existing file.
func (rf *RandomForest) Save(path string) error {
	if len(rf.trees) == 0 {
		return ErrModelNotTrained
	}
	file := modelFile{
		Format:    modelFormatVersion,
		ModelType: ModelTypeRandomForest,
		Schema:    rf.schema,
		Config:    rf.config,
		Trees:     make([][]TreeNode, len(rf.trees)),
	}
	for i, tree := range rf.trees {
		file.Trees[i] = tree.nodes
	}
	payload, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return writeFileAtomic(path, payload)
}

func (rf *RandomForest) Load(path string) error {
	file, err := readModelFile(path, ModelTypeRandomForest, rf.schema)
	if err != nil {
		return err
	}
	trees := make([]*DecisionTree, len(file.Trees))
	for i, nodes := range file.Trees {
		trees[i] = &DecisionTree{nodes: nodes, schema: file.Schema}
	}
	rf.schema = file.Schema
	rf.config = file.Config
	rf.trees = trees
	return nil
}

// MaxDepth returns the depth of the deepest tree in the ensemble.
func (rf *RandomForest) MaxDepth() int {
	depth := 0
	for _, tree := range rf.trees {
		depth = max(depth, tree.Depth())
	}
	return depth
}

// readModelFile decodes an artifact and checks that it holds modelType trained
// on schema. An empty schema skips the layout check.
func readModelFile(path, modelType string, schema Schema) (*modelFile, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file modelFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if file.Format != modelFormatVersion {
		return nil, fmt.Errorf("unsupported model format %d", file.Format)
	}
	if file.ModelType != modelType {
		return nil, fmt.Errorf("model file holds %q, not %q", file.ModelType, modelType)
	}
	if len(file.Trees) == 0 {
		return nil, errors.New("model file has no trees")
	}
	if schema.Len() > 0 && !schema.Equal(file.Schema) {
		return nil, ErrSchemaMismatch
	}
	for i, nodes := range file.Trees {
		if err := validateNodes(nodes); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &file, nil
}

// writeFileAtomic writes to a temp file beside path and renames it into place
// so readers never observe a partially written model.
func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
