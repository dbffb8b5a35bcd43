package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for prediction store operations.
type DatastoreMetrics struct {
	registry *prometheus.Registry

	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	dbQueryResultSize      *prometheus.HistogramVec

	dbConnectionsOpen  prometheus.Gauge
	dbConnectionsInUse prometheus.Gauge
	dbConnectionsIdle  prometheus.Gauge
}

// NewDatastoreMetrics creates and registers datastore metrics on registry.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lungcheck_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"}, // operation: append, history, count; status: success, error
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lungcheck_db_operation_duration_seconds",
			Help:    "Time taken for database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms/10, BucketFactor2, BucketCount12), // 0.1ms to ~400ms
		},
		[]string{"operation"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lungcheck_db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "error_type"},
	)

	m.dbQueryResultSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lungcheck_db_query_result_size",
			Help:    "Number of rows returned by queries",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.dbConnectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lungcheck_db_connections_open",
		Help: "Number of established database connections",
	})
	m.dbConnectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lungcheck_db_connections_in_use",
		Help: "Number of database connections currently in use",
	})
	m.dbConnectionsIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lungcheck_db_connections_idle",
		Help: "Number of idle database connections",
	})
}

// RecordOperation records the outcome and duration of a store operation.
func (m *DatastoreMetrics) RecordOperation(operation, status string, seconds float64) {
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
	m.dbOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError records a failed store operation.
func (m *DatastoreMetrics) RecordError(operation, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordResultSize records the number of rows a query returned.
func (m *DatastoreMetrics) RecordResultSize(operation string, rows int) {
	m.dbQueryResultSize.WithLabelValues(operation).Observe(float64(rows))
}

// UpdateConnectionMetrics publishes connection pool statistics.
func (m *DatastoreMetrics) UpdateConnectionMetrics(open, inUse, idle int) {
	m.dbConnectionsOpen.Set(float64(open))
	m.dbConnectionsInUse.Set(float64(inUse))
	m.dbConnectionsIdle.Set(float64(idle))
}

// Describe implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.dbOperationsTotal.Describe(ch)
	m.dbOperationDuration.Describe(ch)
	m.dbOperationErrorsTotal.Describe(ch)
	m.dbQueryResultSize.Describe(ch)
	ch <- m.dbConnectionsOpen.Desc()
	ch <- m.dbConnectionsInUse.Desc()
	ch <- m.dbConnectionsIdle.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.dbOperationsTotal.Collect(ch)
	m.dbOperationDuration.Collect(ch)
	m.dbOperationErrorsTotal.Collect(ch)
	m.dbQueryResultSize.Collect(ch)
	ch <- m.dbConnectionsOpen
	ch <- m.dbConnectionsInUse
	ch <- m.dbConnectionsIdle
}
