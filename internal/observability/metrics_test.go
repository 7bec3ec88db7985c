package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogramSnapshot(t *testing.T) {
	h := NewHistogram()
	assert.Equal(t, HistogramSnapshot{}, h.Snapshot())

	for i := 1; i <= 100; i++ {
		h.Observe(time.Duration(i) * time.Millisecond)
	}

	snap := h.Snapshot()
	assert.Equal(t, 100, snap.Count)
	assert.Equal(t, 100*time.Millisecond, snap.Max)
	assert.InDelta(t, float64(50500*time.Microsecond), float64(snap.Mean), float64(time.Millisecond))
	assert.True(t, snap.P50 <= snap.P95 && snap.P95 <= snap.P99 && snap.P99 <= snap.Max)
}

func TestValueHistogramSnapshot(t *testing.T) {
	h := NewValueHistogram()
	assert.Equal(t, ValueSnapshot{}, h.Snapshot())

	for _, v := range []float64{2, 4, 9, 1} {
		h.Observe(v)
	}
	snap := h.Snapshot()
	assert.Equal(t, 4, snap.Count)
	assert.Equal(t, 4.0, snap.Mean)
	assert.Equal(t, 3.0, snap.P50)
	assert.Equal(t, 9.0, snap.Max)
}

func TestCounterVecConcurrent(t *testing.T) {
	cv := NewCounterVec()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cv.WithLabels("IDENTIFICATION").Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), cv.Snapshot()["IDENTIFICATION"])
}

func TestAtomicGauge(t *testing.T) {
	g := NewAtomicGauge()
	g.Set(3)
	g.Inc()
	g.Dec()
	g.Dec()
	assert.Equal(t, int64(2), g.Get())
}

func TestServeHTTPJSON(t *testing.T) {
	m := NewMetrics()
	m.Executions().WithLabels("GENERATION").Add(4)
	m.CacheHits().Inc()
	m.Rounds().Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics?format=json", nil)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var snap MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(4), snap.Executions["GENERATION"])
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.Rounds)
}

func TestWriteText(t *testing.T) {
	m := NewMetrics()
	m.Confirmed().WithLabels("FAILURE_INDUCING").Inc()
	m.PathLength().Observe(3)
	m.PathLength().Observe(4)

	var buf bytes.Buffer
	m.WriteText(&buf)

	out := buf.String()
	assert.Contains(t, out, "# Fault Localization Metrics")
	assert.Contains(t, out, "Lattice Build: no data")
	assert.Contains(t, out, "FAILURE_INDUCING: 1")
	assert.Contains(t, out, "Path Length (n=2): Mean: 3.5, P50: 3.5, Max: 4")
}
