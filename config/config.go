// Package config loads the YAML configuration shared by the server and the trainer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"thyroidcheck/ml"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log      LogConfig `yaml:"log"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	ML struct {
		ModelType string `yaml:"model_type"`
		ModelPath string `yaml:"model_path"`
		// Watch reloads the model when the trainer replaces the file.
		Watch     bool `yaml:"watch"`
		CacheSize int  `yaml:"cache_size"`
		Training  struct {
			DataPath  string          `yaml:"data_path"`
			TestRatio float64         `yaml:"test_ratio"`
			Seed      int64           `yaml:"seed"`
			Forest    ml.ForestConfig `yaml:"forest"`
		} `yaml:"training"`
	} `yaml:"ml"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8501
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Log = LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28}
	cfg.Database.Path = "thyroidcheck.db"
	cfg.ML.ModelType = ml.ModelTypeRandomForest
	cfg.ML.ModelPath = "model.json"
	cfg.ML.Watch = true
	cfg.ML.CacheSize = 256
	cfg.ML.Training.DataPath = "data/thyroid.csv"
	cfg.ML.Training.TestRatio = 0.2
	cfg.ML.Training.Seed = 42
	cfg.ML.Training.Forest = ml.DefaultForestConfig()
	return cfg
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve looks for name in the working directory, then one level up so
// binaries started from cmd/ still find the repository config.
func Resolve(name string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}
	parent := filepath.Join("..", name)
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return name
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.ML.ModelPath == "" {
		return errors.New("ml.model_path is required")
	}
	switch c.ML.ModelType {
	case ml.ModelTypeRandomForest, ml.ModelTypeDecisionTree:
	default:
		return fmt.Errorf("ml.model_type %q not supported", c.ML.ModelType)
	}
	if r := c.ML.Training.TestRatio; r <= 0 || r >= 1 {
		return fmt.Errorf("ml.training.test_ratio %v must be in (0,1)", r)
	}
	return nil
}
