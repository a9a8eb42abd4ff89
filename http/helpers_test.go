package http

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"thyroidcheck/db"
	"thyroidcheck/ml"
)

// stubModel flags disease when TSH is above 6 and counts every call.
type stubModel struct {
	calls atomic.Int32
	tsh   int
}

func newStubModel() *stubModel {
	return &stubModel{tsh: ml.ThyroidSchema().Index("TSH")}
}

func (m *stubModel) Train(features [][]float64, labels []int) error { return nil }
func (m *stubModel) Save(path string) error                         { return nil }
func (m *stubModel) Load(path string) error                         { return nil }

func (m *stubModel) Predict(features []float64) (int, float64, error) {
	m.calls.Add(1)
	if features[m.tsh] > 6 {
		return 1, 0.9, nil
	}
	return 0, 0.8, nil
}

// brokenModel fails every inference call.
type brokenModel struct{ stubModel }

func (m *brokenModel) Predict(features []float64) (int, float64, error) {
	m.calls.Add(1)
	return 0, 0, errors.New("tree walk failed")
}

// switchLoader hands out whatever model or error the test sets.
type switchLoader struct {
	mu    sync.Mutex
	model ml.MLModel
	err   error
}

func (l *switchLoader) set(model ml.MLModel, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.model, l.err = model, err
}

func (l *switchLoader) load(modelType, path string, schema ml.Schema) (ml.MLModel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model, l.err
}

var errNoModelFile = &fs.PathError{Op: "open", Path: "model.json", Err: fs.ErrNotExist}

type recordSink struct {
	mu      sync.Mutex
	records []db.PredictionRecord
}

func (s *recordSink) record(r db.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func newTestPredictor(t *testing.T, loader *switchLoader, sink *recordSink) *Predictor {
	t.Helper()
	cfg := PredictorConfig{
		Schema:    ml.ThyroidSchema(),
		ModelType: ml.ModelTypeRandomForest,
		ModelPath: "model.json",
		CacheSize: 16,
		Loader:    loader.load,
	}
	if sink != nil {
		cfg.Record = sink.record
	}
	p, err := NewPredictor(cfg)
	require.NoError(t, err)
	return p
}

// trainForestFile fits a small forest on rows where TSH above 6 is positive
// and writes it under a temp dir.
func trainForestFile(t *testing.T) string {
	t.Helper()
	schema := ml.ThyroidSchema()
	tsh := schema.Index("TSH")
	var features [][]float64
	var labels []int
	for i := 0; i < 120; i++ {
		row := schema.Vector(schema.Defaults())
		row[tsh] = float64(i%12) + 0.5
		features = append(features, row)
		if row[tsh] > 6 {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	model := ml.NewRandomForest(schema, ml.ForestConfig{NTrees: 9, MaxFeatures: schema.Len(), Seed: 7})
	require.NoError(t, model.Train(features, labels))

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))
	return path
}
