package ml

import (
	"errors"
	"fmt"
)

// TrainingConfig controls one trainer run.
type TrainingConfig struct {
	// ModelType selects the learner; empty means a random forest.
	ModelType string
	ModelPath string
	TestRatio float64
	// SplitSeed fixes the train/holdout shuffle.
	SplitSeed int64
	Forest    ForestConfig
}

// TrainingResult carries the fitted model and the rows it never saw.
type TrainingResult struct {
	Model   MLModel
	Holdout Split
	Metrics Metrics
}

// newModel builds an untrained learner of the given type. A single tree takes
// its growth limits from the forest settings and examines every feature unless
// MaxFeatures is set.
func newModel(modelType string, schema Schema, cfg ForestConfig) (MLModel, error) {
	switch modelType {
	case ModelTypeRandomForest, "":
		return NewRandomForest(schema, cfg), nil
	case ModelTypeDecisionTree:
		return NewDecisionTree(TreeConfig{
			Schema:          schema,
			MaxDepth:        cfg.MaxDepth,
			MinSamplesSplit: cfg.MinSamplesSplit,
			MaxFeatures:     cfg.MaxFeatures,
			Seed:            cfg.Seed,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// TrainModel splits the dataset, fits the configured model on the training partition,
// scores it on the holdout and writes it to cfg.ModelPath.
func TrainModel(ds *Dataset, schema Schema, cfg TrainingConfig) (*TrainingResult, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("dataset is empty")
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}

	split := SplitDataset(ds.Features, ds.Labels, cfg.TestRatio, cfg.SplitSeed)
	model, err := newModel(cfg.ModelType, schema, cfg.Forest)
	if err != nil {
		return nil, err
	}
	if err := model.Train(split.TrainX, split.TrainY); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	metrics := Evaluate(model, split.TestX, split.TestY)

	if err := model.Save(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	return &TrainingResult{Model: model, Holdout: split, Metrics: metrics}, nil
}
