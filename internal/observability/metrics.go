package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all metrics for a fault localization run.
type Metrics struct {
	// Lattice and search metrics
	latticeBuildDuration *Histogram
	pathSearchDuration   *Histogram
	pathLength           *ValueHistogram

	// Execution metrics
	executionDuration *Histogram
	executions        *CounterVec
	cacheHits         *Counter

	// State machine metrics
	rounds       *Counter
	restarts     *Counter
	probes       *CounterVec
	confirmed    *CounterVec
	discarded    *Counter
	currentPhase *AtomicGauge
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics() *Metrics {
	return &Metrics{
		latticeBuildDuration: NewHistogram(),
		pathSearchDuration:   NewHistogram(),
		pathLength:           NewValueHistogram(),

		executionDuration: NewHistogram(),
		executions:        NewCounterVec(),
		cacheHits:         NewCounter(),

		rounds:       NewCounter(),
		restarts:     NewCounter(),
		probes:       NewCounterVec(),
		confirmed:    NewCounterVec(),
		discarded:    NewCounter(),
		currentPhase: NewAtomicGauge(),
	}
}

// Lattice and search metrics accessors
func (m *Metrics) LatticeBuildDuration() *Histogram { return m.latticeBuildDuration }
func (m *Metrics) PathSearchDuration() *Histogram   { return m.pathSearchDuration }
func (m *Metrics) PathLength() *ValueHistogram      { return m.pathLength }

// Execution metrics accessors
func (m *Metrics) ExecutionDuration() *Histogram { return m.executionDuration }
func (m *Metrics) Executions() *CounterVec       { return m.executions }
func (m *Metrics) CacheHits() *Counter           { return m.cacheHits }

// State machine metrics accessors
func (m *Metrics) Rounds() *Counter           { return m.rounds }
func (m *Metrics) Restarts() *Counter         { return m.restarts }
func (m *Metrics) Probes() *CounterVec        { return m.probes }
func (m *Metrics) Confirmed() *CounterVec     { return m.confirmed }
func (m *Metrics) Discarded() *Counter        { return m.discarded }
func (m *Metrics) CurrentPhase() *AtomicGauge { return m.currentPhase }

// Snapshot returns a snapshot of all metrics for reporting.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		LatticeBuildDuration: m.latticeBuildDuration.Snapshot(),
		PathSearchDuration:   m.pathSearchDuration.Snapshot(),
		PathLength:           m.pathLength.Snapshot(),

		ExecutionDuration: m.executionDuration.Snapshot(),
		Executions:        m.executions.Snapshot(),
		CacheHits:         m.cacheHits.Get(),

		Rounds:       m.rounds.Get(),
		Restarts:     m.restarts.Get(),
		Probes:       m.probes.Snapshot(),
		Confirmed:    m.confirmed.Snapshot(),
		Discarded:    m.discarded.Get(),
		CurrentPhase: m.currentPhase.Get(),
	}
}

// MetricsSnapshot holds a point-in-time snapshot of all metrics.
type MetricsSnapshot struct {
	LatticeBuildDuration HistogramSnapshot `json:"lattice_build_duration"`
	PathSearchDuration   HistogramSnapshot `json:"path_search_duration"`
	PathLength           ValueSnapshot     `json:"path_length"`

	ExecutionDuration HistogramSnapshot `json:"execution_duration"`
	Executions        map[string]int64  `json:"executions"`
	CacheHits         int64             `json:"cache_hits"`

	Rounds       int64            `json:"rounds"`
	Restarts     int64            `json:"restarts"`
	Probes       map[string]int64 `json:"probes"`
	Confirmed    map[string]int64 `json:"confirmed"`
	Discarded    int64            `json:"discarded"`
	CurrentPhase int64            `json:"current_phase"`
}

// Histogram tracks the distribution of duration measurements.
// Thread-safe for concurrent observations.
type Histogram struct {
	mu     sync.RWMutex
	values []float64 // Stored in microseconds for precision
}

// NewHistogram creates a new histogram.
func NewHistogram() *Histogram {
	return &Histogram{
		values: make([]float64, 0, 1000),
	}
}

// Observe records a duration measurement.
func (h *Histogram) Observe(d time.Duration) {
	micros := float64(d.Microseconds())
	h.mu.Lock()
	h.values = append(h.values, micros)
	h.mu.Unlock()
}

// Snapshot returns a point-in-time snapshot with percentiles calculated.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.values) == 0 {
		return HistogramSnapshot{}
	}

	// Copy and sort for percentile calculation
	sorted := make([]float64, len(h.values))
	copy(sorted, h.values)
	sort.Float64s(sorted)

	// Calculate statistics
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	return HistogramSnapshot{
		Count: len(sorted),
		Mean:  time.Duration(mean) * time.Microsecond,
		P50:   time.Duration(percentile(sorted, 0.50)) * time.Microsecond,
		P95:   time.Duration(percentile(sorted, 0.95)) * time.Microsecond,
		P99:   time.Duration(percentile(sorted, 0.99)) * time.Microsecond,
		Max:   time.Duration(sorted[len(sorted)-1]) * time.Microsecond,
	}
}

// ValueHistogram tracks the distribution of plain values such as node
// counts. Thread-safe for concurrent observations.
type ValueHistogram struct {
	mu     sync.RWMutex
	values []float64
}

// NewValueHistogram creates a new value histogram.
func NewValueHistogram() *ValueHistogram {
	return &ValueHistogram{}
}

// Observe records a value.
func (h *ValueHistogram) Observe(v float64) {
	h.mu.Lock()
	h.values = append(h.values, v)
	h.mu.Unlock()
}

// Snapshot returns a point-in-time snapshot with percentiles calculated.
func (h *ValueHistogram) Snapshot() ValueSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.values) == 0 {
		return ValueSnapshot{}
	}
	sorted := make([]float64, len(h.values))
	copy(sorted, h.values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return ValueSnapshot{
		Count: len(sorted),
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		Max:   sorted[len(sorted)-1],
	}
}

// ValueSnapshot holds calculated statistics for a value histogram.
type ValueSnapshot struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Max   float64 `json:"max"`
}

// HistogramSnapshot holds calculated statistics for a histogram.
type HistogramSnapshot struct {
	Count int           `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// percentile calculates the p-th percentile from sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Counter is a monotonically increasing counter using atomic operations.
type Counter struct {
	value int64
}

// NewCounter creates a new counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

// Get returns the current value.
func (c *Counter) Get() int64 {
	return atomic.LoadInt64(&c.value)
}

// CounterVec is a collection of counters with labels.
type CounterVec struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewCounterVec creates a new counter vector.
func NewCounterVec() *CounterVec {
	return &CounterVec{
		counters: make(map[string]*Counter),
	}
}

// WithLabels returns a counter for the given label string.
func (cv *CounterVec) WithLabels(labels string) *Counter {
	cv.mu.RLock()
	c, ok := cv.counters[labels]
	cv.mu.RUnlock()

	if ok {
		return c
	}

	// Create new counter
	cv.mu.Lock()
	defer cv.mu.Unlock()

	// Double-check after acquiring write lock
	if c, ok := cv.counters[labels]; ok {
		return c
	}

	c = NewCounter()
	cv.counters[labels] = c
	return c
}

// Snapshot returns the current values of all counters.
func (cv *CounterVec) Snapshot() map[string]int64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	snapshot := make(map[string]int64, len(cv.counters))
	for label, c := range cv.counters {
		snapshot[label] = c.Get()
	}
	return snapshot
}

// AtomicGauge is a gauge that can be set and read atomically.
type AtomicGauge struct {
	value int64
}

// NewAtomicGauge creates a new atomic gauge.
func NewAtomicGauge() *AtomicGauge {
	return &AtomicGauge{}
}

// Set sets the gauge to the given value.
func (g *AtomicGauge) Set(val int64) {
	atomic.StoreInt64(&g.value, val)
}

// Inc increments the gauge by 1.
func (g *AtomicGauge) Inc() {
	atomic.AddInt64(&g.value, 1)
}

// Dec decrements the gauge by 1.
func (g *AtomicGauge) Dec() {
	atomic.AddInt64(&g.value, -1)
}

// Get returns the current value.
func (g *AtomicGauge) Get() int64 {
	return atomic.LoadInt64(&g.value)
}

// ServeHTTP implements http.Handler for metrics exposition.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "json" || r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.Encode(m.Snapshot())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	m.WriteText(w)
}

// WriteText writes a human-readable report of all metrics.
func (m *Metrics) WriteText(w io.Writer) {
	snapshot := m.Snapshot()

	fmt.Fprintf(w, "# Fault Localization Metrics\n\n")

	fmt.Fprintf(w, "## Lattice\n\n")
	writeHistogramSummary(w, "Lattice Build", snapshot.LatticeBuildDuration)
	writeHistogramSummary(w, "Path Search", snapshot.PathSearchDuration)
	if snapshot.PathLength.Count > 0 {
		fmt.Fprintf(w, "Path Length (n=%d): Mean: %.1f, P50: %g, Max: %g\n",
			snapshot.PathLength.Count,
			snapshot.PathLength.Mean,
			snapshot.PathLength.P50,
			snapshot.PathLength.Max)
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "## Execution\n\n")
	writeHistogramSummary(w, "Execution Duration", snapshot.ExecutionDuration)
	writeCounters(w, "Executions by phase", snapshot.Executions)
	fmt.Fprintf(w, "Cache Hits: %d\n\n", snapshot.CacheHits)

	fmt.Fprintf(w, "## State Machine\n\n")
	fmt.Fprintf(w, "Rounds: %d\n", snapshot.Rounds)
	fmt.Fprintf(w, "Restarts: %d\n", snapshot.Restarts)
	fmt.Fprintf(w, "Discarded: %d\n", snapshot.Discarded)
	writeCounters(w, "Probes by status", snapshot.Probes)
	writeCounters(w, "Confirmed by kind", snapshot.Confirmed)
}

func writeCounters(w io.Writer, name string, counters map[string]int64) {
	if len(counters) == 0 {
		return
	}
	labels := make([]string, 0, len(counters))
	for label := range counters {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	fmt.Fprintf(w, "%s:\n", name)
	for _, label := range labels {
		fmt.Fprintf(w, "  %s: %d\n", label, counters[label])
	}
}

func writeHistogramSummary(w io.Writer, name string, h HistogramSnapshot) {
	if h.Count == 0 {
		fmt.Fprintf(w, "%s: no data\n", name)
		return
	}
	fmt.Fprintf(w, "%s (n=%d):\n", name, h.Count)
	fmt.Fprintf(w, "  Mean: %v, P50: %v, P95: %v, P99: %v, Max: %v\n",
		h.Mean, h.P50, h.P95, h.P99, h.Max)
}
