package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thyroidcheck/config"
	"thyroidcheck/db"
	"thyroidcheck/ml"
)

type trainOptions struct {
	ModelType    string
	DataPath     string
	ModelPath    string
	DatabasePath string
	TestRatio    float64
	Seed         int64
	Forest       ml.ForestConfig
}

// applyDefaults fills every flag the user did not set from the config file
// and rejects values the config file would not accept.
func (o *trainOptions) applyDefaults(cfg *config.Config, cmd *cobra.Command) error {
	flags := cmd.Flags()
	training := cfg.ML.Training
	if !flags.Changed("model-type") {
		o.ModelType = cfg.ML.ModelType
	}
	if !flags.Changed("data") {
		o.DataPath = training.DataPath
	}
	if !flags.Changed("model-path") {
		o.ModelPath = cfg.ML.ModelPath
	}
	if !flags.Changed("db") {
		o.DatabasePath = cfg.Database.Path
	}
	if !flags.Changed("test-ratio") {
		o.TestRatio = training.TestRatio
	}
	if !flags.Changed("seed") {
		o.Seed = training.Seed
	}
	nTrees, maxDepth := o.Forest.NTrees, o.Forest.MaxDepth
	o.Forest = training.Forest
	o.Forest.Seed = o.Seed
	if flags.Changed("trees") {
		o.Forest.NTrees = nTrees
	}
	if flags.Changed("max-depth") {
		o.Forest.MaxDepth = maxDepth
	}
	return o.validate()
}

func (o *trainOptions) validate() error {
	switch o.ModelType {
	case ml.ModelTypeRandomForest, ml.ModelTypeDecisionTree:
	default:
		return fmt.Errorf("model type %q not supported", o.ModelType)
	}
	if o.TestRatio <= 0 || o.TestRatio >= 1 {
		return fmt.Errorf("test ratio %v must be in (0,1)", o.TestRatio)
	}
	if o.Forest.NTrees < 0 || o.Forest.MaxDepth < 0 {
		return errors.New("trees and max depth must not be negative")
	}
	return nil
}

func train(opts trainOptions, log *zap.Logger) (*ml.TrainingResult, error) {
	schema := ml.ThyroidSchema()
	ds, err := ml.LoadCSV(opts.DataPath, schema, ml.LabelColumn)
	if err != nil {
		return nil, err
	}
	balance := ds.ClassBalance()
	log.Info("dataset loaded",
		zap.String("path", opts.DataPath),
		zap.Int("rows", ds.Len()),
		zap.Int("negative", balance[0]),
		zap.Int("positive", balance[1]),
	)

	result, err := ml.TrainModel(ds, schema, ml.TrainingConfig{
		ModelType: opts.ModelType,
		ModelPath: opts.ModelPath,
		TestRatio: opts.TestRatio,
		SplitSeed: opts.Seed,
		Forest:    opts.Forest,
	})
	if err != nil {
		return nil, err
	}

	trees, depth := modelShape(result.Model)
	m := result.Metrics
	log.Info("model trained",
		zap.String("model_type", opts.ModelType),
		zap.String("model_path", opts.ModelPath),
		zap.Int("trees", trees),
		zap.Int("depth", depth),
		zap.Int("train_rows", len(result.Holdout.TrainY)),
		zap.Int("holdout_rows", m.Samples),
		zap.Float64("accuracy", m.Accuracy),
		zap.Float64("precision", m.Precision),
		zap.Float64("recall", m.Recall),
		zap.Float64("f1", m.F1),
	)

	if opts.DatabasePath != "" {
		if err := recordTraining(opts, result); err != nil {
			// the model file is already in place
			log.Warn("failed to write training log", zap.String("db", opts.DatabasePath), zap.Error(err))
		}
	}
	return result, nil
}

// modelShape reports the tree count and the deepest tree of a fitted model.
func modelShape(model ml.MLModel) (trees, depth int) {
	switch m := model.(type) {
	case *ml.RandomForest:
		return m.NumTrees(), m.MaxDepth()
	case *ml.DecisionTree:
		return 1, m.Depth()
	default:
		return 0, 0
	}
}

func recordTraining(opts trainOptions, result *ml.TrainingResult) error {
	if err := db.InitDB(opts.DatabasePath); err != nil {
		return fmt.Errorf("open training log: %w", err)
	}
	defer db.Close()

	m := result.Metrics
	return db.SaveTrainingLog(db.TrainingLog{
		ModelName:     strings.TrimSuffix(filepath.Base(opts.ModelPath), filepath.Ext(opts.ModelPath)),
		ModelPath:     opts.ModelPath,
		Accuracy:      m.Accuracy,
		Precision:     m.Precision,
		Recall:        m.Recall,
		F1:            m.F1,
		DataPoints:    len(result.Holdout.TrainY),
		HoldoutPoints: m.Samples,
	})
}
