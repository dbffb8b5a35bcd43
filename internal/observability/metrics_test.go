package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Diagnosis)
	require.NotNil(t, m.Datastore)
	require.NotNil(t, m.HTTP)

	m.Diagnosis.RecordDiagnosis("PNEUMONIA", 0.9975)
	m.Diagnosis.RecordStage(metrics.StageInfer, 0.01)
	m.Datastore.RecordOperation("append", metrics.StatusSuccess, 0.002)
	m.HTTP.RecordHTTPRequest(http.MethodPost, "/api/v1/lungcheck/predict", http.StatusOK, 0.05, 120)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Diagnosis.DiagnosesTotal.WithLabelValues("PNEUMONIA")), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	for _, name := range []string{
		"lungcheck_diagnoses_total",
		"lungcheck_diagnosis_stage_duration_seconds",
		"lungcheck_db_operations_total",
		"http_requests_total",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(string(body), name), "exposition missing %s", name)
	}
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)

	a.Diagnosis.SetModelTrained(true)
	b.Diagnosis.SetModelTrained(false)

	assert.InDelta(t, 1, testutil.ToFloat64(a.Diagnosis.ModelTrained), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.Diagnosis.ModelTrained), 0)
}

func TestRecordErrorDefaultsCategory(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Diagnosis.RecordError("")
	m.Diagnosis.RecordError("invalid-image")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Diagnosis.DiagnosisErrors.WithLabelValues("unknown")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Diagnosis.DiagnosisErrors.WithLabelValues("invalid-image")), 0)
}
