package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thyroidcheck/config"
	"thyroidcheck/logger"
)

func main() {
	var (
		configPath string
		opts       trainOptions
	)

	rootCmd := &cobra.Command{
		Use:   "train_model",
		Short: "Fit the thyroid disease random forest and write the model file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := opts.applyDefaults(cfg, cmd); err != nil {
				return err
			}

			log, err := logger.New(logger.Options{
				Level:      cfg.Log.Level,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
			})
			if err != nil {
				return err
			}
			defer log.Sync()

			result, err := train(opts, log)
			if err != nil {
				log.Error("training failed", zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s saved to %s (holdout accuracy %.4f)\n", opts.ModelType, opts.ModelPath, result.Metrics.Accuracy)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&configPath, "config", config.Resolve("config.yaml"), "Path to the YAML config file")
	bindFlags(rootCmd, &opts)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindFlags(cmd *cobra.Command, opts *trainOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.ModelType, "model-type", "", "random_forest or decision_tree (empty uses the config)")
	flags.StringVar(&opts.DataPath, "data", "", "Labeled CSV dataset with a classes column")
	flags.StringVar(&opts.ModelPath, "model-path", "", "Where to write the model file")
	flags.StringVar(&opts.DatabasePath, "db", "", "SQLite database for the training log (empty uses the config)")
	flags.Float64Var(&opts.TestRatio, "test-ratio", 0, "Share of rows held out for evaluation")
	flags.Int64Var(&opts.Seed, "seed", 0, "Seed for the split and the forest")
	flags.IntVar(&opts.Forest.NTrees, "trees", 0, "Number of trees in the forest")
	flags.IntVar(&opts.Forest.MaxDepth, "max-depth", 0, "Maximum depth of each tree")
}
