package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"thyroidcheck/config"
	"thyroidcheck/db"
	thttp "thyroidcheck/http"
	"thyroidcheck/logger"
	"thyroidcheck/ml"
	"thyroidcheck/monitoring"
)

func main() {
	// 1. Load config
	configPath := config.Resolve("config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logg, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	// 3. Initialize database
	var (
		record    func(db.PredictionRecord) error
		history   func(int) ([]db.PredictionRecord, error)
		trainings func() ([]db.TrainingLog, error)
	)
	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			logg.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer db.Close()
		record, history, trainings = db.SavePrediction, db.RecentPredictions, db.LoadTrainingLog
		logg.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := monitoring.NewMetrics(registry)
	if err != nil {
		logg.Fatal("failed to register metrics", zap.Error(err))
	}

	// 5. Model
	predictor, err := thttp.NewPredictor(thttp.PredictorConfig{
		Schema:    ml.ThyroidSchema(),
		ModelType: cfg.ML.ModelType,
		ModelPath: cfg.ML.ModelPath,
		CacheSize: cfg.ML.CacheSize,
		Metrics:   metrics,
		Logger:    logg,
		Record:    record,
	})
	if err != nil {
		logg.Fatal("failed to create predictor", zap.Error(err))
	}
	if err := predictor.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logg.Warn("model file not found, run train_model first", zap.String("path", cfg.ML.ModelPath))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.ML.Watch {
		watcher := &ml.ModelWatcher{
			Path: cfg.ML.ModelPath,
			OnChange: func(path string) {
				if err := predictor.Load(); err != nil {
					logg.Error("model reload failed, previous model kept", zap.String("path", path), zap.Error(err))
					return
				}
				logg.Info("model reloaded", zap.String("path", path))
			},
			OnError: func(err error) {
				logg.Warn("model watcher error", zap.Error(err))
			},
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logg.Warn("model watcher stopped", zap.Error(err))
			}
		}()
	}

	// 6. Start HTTP server
	handlers := thttp.NewHandlers(predictor, thttp.HandlersConfig{
		Logger:    logg,
		Gatherer:  registry,
		History:   history,
		Trainings: trainings,
	})
	server := thttp.NewServer(thttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, handlers, logg)
	go func() {
		if err := server.Start(); err != nil {
			logg.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down")
	cancel()

	if err := server.Stop(); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}

	logg.Info("exiting")
}
