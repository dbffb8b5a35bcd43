package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DiagnosisMetrics contains Prometheus metrics for the diagnosis pipeline.
type DiagnosisMetrics struct {
	registry *prometheus.Registry

	DiagnosesTotal  *prometheus.CounterVec
	DiagnosisErrors *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	UploadSize      prometheus.Histogram
	Confidence      *prometheus.HistogramVec
	ModelTrained    prometheus.Gauge
}

// NewDiagnosisMetrics creates and registers diagnosis metrics on registry.
func NewDiagnosisMetrics(registry *prometheus.Registry) (*DiagnosisMetrics, error) {
	m := &DiagnosisMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register diagnosis metrics: %w", err)
	}
	return m, nil
}

func (m *DiagnosisMetrics) initMetrics() {
	m.DiagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lungcheck_diagnoses_total",
			Help: "Total number of completed diagnoses partitioned by predicted label.",
		},
		[]string{"label"},
	)

	m.DiagnosisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lungcheck_diagnosis_errors_total",
			Help: "Total number of failed diagnoses partitioned by error category.",
		},
		[]string{"category"},
	)

	m.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lungcheck_diagnosis_stage_duration_seconds",
			Help:    "Time spent in each diagnosis stage",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
		},
		[]string{"stage"},
	)

	m.UploadSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lungcheck_upload_size_bytes",
			Help:    "Size of submitted images in bytes",
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount8), // 1KB to 16MB
		},
	)

	m.Confidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lungcheck_prediction_confidence",
			Help:    "Distribution of reported confidence values",
			Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1},
		},
		[]string{"label"},
	)

	m.ModelTrained = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lungcheck_model_trained",
			Help: "Whether trained weights are loaded (1) or the untrained fallback is serving (0)",
		},
	)
}

// RecordDiagnosis records a successful diagnosis.
func (m *DiagnosisMetrics) RecordDiagnosis(label string, confidence float64) {
	m.DiagnosesTotal.WithLabelValues(label).Inc()
	m.Confidence.WithLabelValues(label).Observe(confidence)
}

// RecordError records a failed diagnosis by error category.
func (m *DiagnosisMetrics) RecordError(category string) {
	if category == "" {
		category = "unknown"
	}
	m.DiagnosisErrors.WithLabelValues(category).Inc()
}

// RecordStage records the duration of one pipeline stage.
func (m *DiagnosisMetrics) RecordStage(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordUpload records the size of a submitted image.
func (m *DiagnosisMetrics) RecordUpload(sizeBytes int) {
	m.UploadSize.Observe(float64(sizeBytes))
}

// SetModelTrained publishes the classifier backend state.
func (m *DiagnosisMetrics) SetModelTrained(trained bool) {
	if trained {
		m.ModelTrained.Set(1)
		return
	}
	m.ModelTrained.Set(0)
}

// Describe implements the prometheus.Collector interface.
func (m *DiagnosisMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DiagnosesTotal.Describe(ch)
	m.DiagnosisErrors.Describe(ch)
	m.StageDuration.Describe(ch)
	ch <- m.UploadSize.Desc()
	m.Confidence.Describe(ch)
	ch <- m.ModelTrained.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *DiagnosisMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DiagnosesTotal.Collect(ch)
	m.DiagnosisErrors.Collect(ch)
	m.StageDuration.Collect(ch)
	ch <- m.UploadSize
	m.Confidence.Collect(ch)
	ch <- m.ModelTrained
}
