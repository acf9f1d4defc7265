package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricPrimarySwitches, 1)
	m.Counter(MetricPrimarySwitches, 2)
	m.Counter(MetricScopeCache, 1, T("result", "hit"))
	m.Counter(MetricScopeCache, 1, T("result", "miss"))
	m.Counter(MetricScopeCache, 1, T("result", "hit"))
	m.Gauge(MetricInvariantViolations, 3)
	m.Gauge(MetricInvariantViolations, 0)
	m.Histogram("batch_size", 10)
	m.Timing(MetricOperationDuration, 20*time.Millisecond)

	assert.Equal(t, int64(3), m.GetCounter(MetricPrimarySwitches))
	assert.Equal(t, int64(2), m.GetCounter(MetricScopeCache, T("result", "hit")))
	assert.Equal(t, int64(1), m.GetCounter(MetricScopeCache, T("result", "miss")))
	assert.Equal(t, 0.0, m.GetGauge(MetricInvariantViolations))
	assert.Equal(t, []float64{10}, m.GetHistogram("batch_size"))
	assert.Equal(t, []time.Duration{20 * time.Millisecond}, m.GetTimings(MetricOperationDuration))

	m.Reset()
	assert.Zero(t, m.GetCounter(MetricPrimarySwitches))
}

func TestFormatKey(t *testing.T) {
	assert.Equal(t, "ops", formatKey("ops", nil))
	assert.Equal(t, "ops:kind=a:status=ok", formatKey("ops", []Tag{T("kind", "a"), T("status", "ok")}))
}

func TestTimer(t *testing.T) {
	m := NewInMemoryMetrics()

	StartTimer("deactivate").WithMetrics(m).Stop()
	StartTimer("deactivate").WithMetrics(m).StopWithError(errors.New("boom"))

	op := T(OperationKey, "deactivate")
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationTotal, op, T(StatusKey, "ok")))
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationTotal, op, T(StatusKey, "error")))
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationErrors, op))
	assert.Len(t, m.GetTimings(MetricOperationDuration, op), 2)
}

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics()

	m.Counter(MetricMembershipsCreated, 2, T("type", "fw"))
	m.Gauge(MetricInvariantViolations, 1)
	m.Timing(MetricOperationDuration, 15*time.Millisecond, T(OperationKey, "set_primary"))
	// Mismatched label set is dropped rather than panicking.
	m.Counter(MetricMembershipsCreated, 1, T("other", "x"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `hearth_memberships_created_total{type="fw"} 2`)
	assert.Contains(t, out, "hearth_primary_invariant_violations 1")
	assert.Contains(t, out, `hearth_operation_duration_seconds_count{operation="set_primary"} 1`)
	assert.Contains(t, out, "go_goroutines")
}
