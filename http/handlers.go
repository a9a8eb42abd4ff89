package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"thyroidcheck/db"
	"thyroidcheck/ml"
	"thyroidcheck/reference"
)

// Handlers serves the prediction page and the JSON API.
type Handlers struct {
	predictor *Predictor
	log       *zap.Logger
	gatherer  prometheus.Gatherer
	history   func(limit int) ([]db.PredictionRecord, error)
	trainings func() ([]db.TrainingLog, error)
	ws        *LiveSocket
}

// HandlersConfig wires optional collaborators; nil fields disable the
// matching endpoints.
type HandlersConfig struct {
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	History  func(limit int) ([]db.PredictionRecord, error)
	// Trainings lists the trainer runs recorded in the training log.
	Trainings func() ([]db.TrainingLog, error)
}

func NewHandlers(predictor *Predictor, cfg HandlersConfig) *Handlers {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handlers{
		predictor: predictor,
		log:       cfg.Logger,
		gatherer:  cfg.Gatherer,
		history:   cfg.History,
		trainings: cfg.Trainings,
		ws:        NewLiveSocket(predictor, cfg.Logger),
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handleFormPredict)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/ready", h.handleReady)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/reference", handleReference)
	mux.HandleFunc("POST /api/predict", h.handleAPIPredict)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	mux.HandleFunc("GET /api/training", h.handleTrainings)
	mux.HandleFunc("GET /api/ws/predict", h.ws.ServeHTTP)
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handlers) handleReady(w http.ResponseWriter, r *http.Request) {
	status := h.predictor.Status()
	if !status.Loaded {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "model_unavailable",
			"model":  status,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"model":  status,
	})
}

func (h *Handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema := h.predictor.Schema()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fields":       schema.Fields,
		"label_column": ml.LabelColumn,
	})
}

func handleReference(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tests":      reference.ThyroidTests(),
		"disclaimer": reference.Disclaimer,
	})
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	schema := h.predictor.Schema()
	view := newPageView(schema, schema.Defaults(), h.predictor.Status())
	h.writePage(w, r, http.StatusOK, view)
}

func (h *Handlers) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	schema := h.predictor.Schema()
	if err := r.ParseForm(); err != nil {
		view := newPageView(schema, schema.Defaults(), h.predictor.Status())
		view.Error = "could not read form: " + err.Error()
		h.writePage(w, r, http.StatusBadRequest, view)
		return
	}

	in, err := ParseForm(schema, r.PostForm)
	if err != nil {
		view := newPageView(schema, schema.Defaults(), h.predictor.Status())
		view.Error = err.Error()
		h.writePage(w, r, http.StatusBadRequest, view)
		return
	}

	view := newPageView(schema, in, h.predictor.Status())
	prediction, err := h.predictor.PredictFrom(r.Context(), SourceForm, in)
	switch {
	case errors.Is(err, ErrModelNotLoaded):
		view.Error = msgModelNotLoaded
		h.writePage(w, r, http.StatusServiceUnavailable, view)
		return
	case err != nil:
		h.log.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		view.Error = "prediction failed: " + err.Error()
		h.writePage(w, r, http.StatusInternalServerError, view)
		return
	}
	view.Result = resultLine(prediction)
	h.writePage(w, r, http.StatusOK, view)
}

// PredictResponse is the JSON body returned by the prediction API.
type PredictResponse struct {
	Label      int       `json:"label"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message"`
	Confidence float64   `json:"confidence"`
	Features   []float64 `json:"features"`
	Columns    []string  `json:"columns"`
}

func newPredictResponse(schema ml.Schema, p ml.Prediction) PredictResponse {
	return PredictResponse{
		Label:      p.Label,
		Outcome:    p.Outcome(),
		Message:    resultLine(p),
		Confidence: p.Confidence,
		Features:   p.Features,
		Columns:    schema.Names(),
	}
}

func (h *Handlers) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	schema := h.predictor.Schema()
	in, err := ParseJSON(schema, payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prediction, err := h.predictor.PredictFrom(r.Context(), SourceAPI, in)
	switch {
	case errors.Is(err, ErrModelNotLoaded):
		respondError(w, http.StatusServiceUnavailable, msgModelNotLoaded)
		return
	case err != nil:
		h.log.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, newPredictResponse(schema, prediction))
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "prediction history not enabled")
		return
	}
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	records, err := h.history(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

func (h *Handlers) handleTrainings(w http.ResponseWriter, r *http.Request) {
	if h.trainings == nil {
		respondError(w, http.StatusServiceUnavailable, "training log not enabled")
		return
	}
	runs, err := h.trainings()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trainings": runs,
		"count":     len(runs),
	})
}

func (h *Handlers) writePage(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	var buf bytes.Buffer
	if err := renderPage(&buf, view); err != nil {
		h.log.Error("render page", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
