package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 预测服务指标
type Metrics struct {
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	PredictionDuration *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	ModelLoadTotal     *prometheus.CounterVec
	ModelLoadedGauge   prometheus.Gauge
	ModelTrees         prometheus.Gauge
	WebSocketClients   prometheus.Gauge
}

// NewMetrics 创建并注册指标
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PredictionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thyroid_predictions_total",
				Help: "Total number of predictions partitioned by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		PredictionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thyroid_prediction_errors_total",
				Help: "Total number of failed prediction requests.",
			},
			[]string{"source", "error_type"},
		),
		PredictionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thyroid_prediction_duration_seconds",
				Help:    "Time taken to run model inference.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"source"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thyroid_prediction_cache_hits_total",
			Help: "Predictions answered from the feature-vector cache.",
		}),
		ModelLoadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thyroid_model_loads_total",
				Help: "Model load attempts partitioned by status.",
			},
			[]string{"status"},
		),
		ModelLoadedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thyroid_model_loaded",
			Help: "1 when a model is loaded and predictions are enabled.",
		}),
		ModelTrees: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thyroid_model_trees",
			Help: "Number of trees in the loaded ensemble.",
		}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thyroid_websocket_clients",
			Help: "Open live prediction websocket connections.",
		}),
	}

	collectors := []prometheus.Collector{
		m.PredictionTotal,
		m.PredictionErrors,
		m.PredictionDuration,
		m.CacheHits,
		m.ModelLoadTotal,
		m.ModelLoadedGauge,
		m.ModelTrees,
		m.WebSocketClients,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// ObservePrediction 记录一次成功预测
func (m *Metrics) ObservePrediction(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PredictionTotal.WithLabelValues(source, outcome).Inc()
	m.PredictionDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveError 记录一次失败预测
func (m *Metrics) ObserveError(source, errorType string) {
	if m == nil {
		return
	}
	m.PredictionErrors.WithLabelValues(source, errorType).Inc()
}

// ObserveCacheHit 记录缓存命中
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveModelLoad 记录模型加载结果
func (m *Metrics) ObserveModelLoad(err error, trees int) {
	if m == nil {
		return
	}
	if err != nil {
		m.ModelLoadTotal.WithLabelValues("error").Inc()
		return
	}
	m.ModelLoadTotal.WithLabelValues("ok").Inc()
	m.ModelLoadedGauge.Set(1)
	m.ModelTrees.Set(float64(trees))
}

// SetWebSocketClients 记录当前websocket连接数
func (m *Metrics) SetWebSocketClients(n int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Set(float64(n))
}
