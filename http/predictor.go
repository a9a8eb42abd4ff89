package http

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"thyroidcheck/db"
	"thyroidcheck/ml"
	"thyroidcheck/monitoring"
)

// ErrModelNotLoaded is returned for every prediction while no model is loaded.
var ErrModelNotLoaded = errors.New("model is not loaded")

const (
	SourceForm      = "form"
	SourceAPI       = "api"
	SourceWebSocket = "websocket"
)

// ModelLoader reads a model artifact from disk.
type ModelLoader func(modelType, path string, schema ml.Schema) (ml.MLModel, error)

// PredictorConfig wires a Predictor.
type PredictorConfig struct {
	Schema    ml.Schema
	ModelType string
	ModelPath string
	CacheSize int
	Loader    ModelLoader
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
	// Record, when set, persists every prediction.
	Record func(db.PredictionRecord) error
}

// Predictor owns the process-lifetime model handle. The model is immutable
// once loaded; Load swaps the handle under the write lock. Cached
// predictions are keyed by load generation so a swap never serves stale labels.
type Predictor struct {
	cfg   PredictorConfig
	log   *zap.Logger
	cache *lru.Cache[string, ml.Prediction]

	mu         sync.RWMutex
	model      ml.MLModel
	generation uint64
	loadErr    error
	loadedAt   time.Time
}

func NewPredictor(cfg PredictorConfig) (*Predictor, error) {
	if cfg.Loader == nil {
		cfg.Loader = ml.LoadModel
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p := &Predictor{cfg: cfg, log: cfg.Logger, loadErr: ErrModelNotLoaded}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, ml.Prediction](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// Load reads the configured model file. On failure the previously loaded
// model, if any, stays in service.
func (p *Predictor) Load() error {
	model, err := p.cfg.Loader(p.cfg.ModelType, p.cfg.ModelPath, p.cfg.Schema)
	p.cfg.Metrics.ObserveModelLoad(err, treeCount(model))

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if p.model == nil {
			p.loadErr = err
		}
		p.log.Warn("model load failed", zap.String("path", p.cfg.ModelPath), zap.Error(err))
		return err
	}
	p.model = model
	p.generation++
	p.loadErr = nil
	p.loadedAt = time.Now()
	if p.cache != nil {
		p.cache.Purge()
	}
	p.log.Info("model loaded", zap.String("path", p.cfg.ModelPath), zap.Int("trees", treeCount(model)))
	return nil
}

// Status reports whether a model is loaded and, if not, why.
func (p *Predictor) Status() ModelStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status := ModelStatus{
		Loaded: p.model != nil,
		Type:   p.cfg.ModelType,
		Path:   p.cfg.ModelPath,
		Trees:  treeCount(p.model),
	}
	if p.model != nil {
		status.LoadedAt = p.loadedAt
	}
	if p.loadErr != nil {
		status.Error = p.loadErr.Error()
		status.Missing = errors.Is(p.loadErr, os.ErrNotExist) || errors.Is(p.loadErr, ErrModelNotLoaded)
	}
	return status
}

// ModelStatus is the readiness view of the Predictor.
type ModelStatus struct {
	Loaded   bool      `json:"loaded"`
	Type     string    `json:"model_type"`
	Path     string    `json:"model_path"`
	Trees    int       `json:"trees,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Error    string    `json:"error,omitempty"`
	// Missing is set when the model file does not exist yet.
	Missing bool `json:"missing,omitempty"`
}

func (p *Predictor) Schema() ml.Schema {
	return p.cfg.Schema
}

// Predict implements ml.ModelProvider.
func (p *Predictor) Predict(ctx context.Context, in ml.Input) (ml.Prediction, error) {
	return p.PredictFrom(ctx, SourceAPI, in)
}

// PredictFrom assembles the input in schema order and runs inference. It
// never touches the model when none is loaded.
func (p *Predictor) PredictFrom(ctx context.Context, source string, in ml.Input) (ml.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return ml.Prediction{}, err
	}
	p.mu.RLock()
	model, generation := p.model, p.generation
	p.mu.RUnlock()
	if model == nil {
		p.cfg.Metrics.ObserveError(source, "model_not_loaded")
		return ml.Prediction{}, ErrModelNotLoaded
	}

	row := p.cfg.Schema.Vector(in)
	prediction, err := p.infer(model, generation, source, row)
	if err != nil {
		return ml.Prediction{}, err
	}

	if p.cfg.Record != nil {
		err := p.cfg.Record(db.PredictionRecord{
			Label:      prediction.Label,
			Confidence: prediction.Confidence,
			Features:   row,
			Source:     source,
			ModelPath:  p.cfg.ModelPath,
		})
		if err != nil {
			p.log.Warn("failed to record prediction", zap.Error(err))
		}
	}
	return prediction, nil
}

func (p *Predictor) infer(model ml.MLModel, generation uint64, source string, row []float64) (ml.Prediction, error) {
	key := strconv.FormatUint(generation, 10) + "|" + vectorKey(row)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.cfg.Metrics.ObserveCacheHit()
			p.cfg.Metrics.ObservePrediction(source, cached.Outcome(), 0)
			return cached, nil
		}
	}

	start := time.Now()
	label, confidence, err := model.Predict(row)
	if err != nil {
		p.cfg.Metrics.ObserveError(source, "inference")
		return ml.Prediction{}, err
	}
	prediction := ml.Prediction{Label: label, Confidence: confidence, Features: row}
	p.cfg.Metrics.ObservePrediction(source, prediction.Outcome(), time.Since(start))
	if p.cache != nil {
		p.cache.Add(key, prediction)
	}
	return prediction, nil
}

func vectorKey(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func treeCount(model ml.MLModel) int {
	switch m := model.(type) {
	case *ml.RandomForest:
		return m.NumTrees()
	case *ml.DecisionTree:
		return 1
	default:
		return 0
	}
}
