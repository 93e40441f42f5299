package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.Verdicts.WithLabelValues("blacklist").Inc()
	m.Verdicts.WithLabelValues("blacklist").Inc()
	m.IngestRecords.WithLabelValues("search-origin", "upserted").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verdicts.WithLabelValues("blacklist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestRecords.WithLabelValues("search-origin", "upserted")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RiskCacheLookups.WithLabelValues("hit"))
	RecordRiskCache(true)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.RiskCacheLookups.WithLabelValues("hit")))

	RecordPipelineRun("success", 2*time.Second)
	assert.Greater(t, testutil.ToFloat64(DefaultMetrics.LastSuccessfulPipeline), 0.0)
}

func TestHandler(t *testing.T) {
	RecordVerdict("classified")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "memebot_pipeline_verdicts_total"))
}
