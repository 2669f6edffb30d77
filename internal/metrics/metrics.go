package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

const maxLatencySamples = 10_000

// Outcome classifies a finished relay call.
type Outcome int

const (
	OutcomeSuccess     Outcome = iota // upstream answered 2xx
	OutcomeUpstream                   // upstream answered non-2xx, passed through
	OutcomeClientError                // rejected before reaching upstream
	OutcomeTransport                  // upstream unreachable or unusable
)

// Metrics collects in-memory relay statistics. Safe for concurrent use.
type Metrics struct {
	total     int64
	success   int64
	upstream  int64
	client    int64
	transport int64

	mu        sync.Mutex
	latencies []int64 // upstream round-trip ms; client errors excluded
}

// Snapshot is the computed statistics returned by the /metrics endpoint.
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	SuccessRate     float64 `json:"success_rate"` // percentage 0–100
	UpstreamErrors  int64   `json:"upstream_errors"`
	ClientErrors    int64   `json:"client_errors"`
	TransportErrors int64   `json:"transport_errors"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	P95LatencyMs    int64   `json:"p95_latency_ms"`
}

func New() *Metrics {
	return &Metrics{latencies: make([]int64, 0, 1024)}
}

// Record captures a single completed relay call.
//
// Client errors never reach the upstream, so their latency would only
// dilute the avg/P95 numbers and is dropped.
func (m *Metrics) Record(latencyMs int64, outcome Outcome) {
	atomic.AddInt64(&m.total, 1)
	switch outcome {
	case OutcomeSuccess:
		atomic.AddInt64(&m.success, 1)
	case OutcomeUpstream:
		atomic.AddInt64(&m.upstream, 1)
	case OutcomeClientError:
		atomic.AddInt64(&m.client, 1)
		return
	case OutcomeTransport:
		atomic.AddInt64(&m.transport, 1)
	}

	m.mu.Lock()
	if len(m.latencies) < maxLatencySamples {
		m.latencies = append(m.latencies, latencyMs)
	} else {
		// Rolling window: drop oldest sample.
		copy(m.latencies, m.latencies[1:])
		m.latencies[maxLatencySamples-1] = latencyMs
	}
	m.mu.Unlock()
}

// Snapshot computes and returns the current statistics.
func (m *Metrics) Snapshot() Snapshot {
	total := atomic.LoadInt64(&m.total)
	success := atomic.LoadInt64(&m.success)

	var successRate float64
	if total > 0 {
		successRate = float64(success) / float64(total) * 100
	}

	m.mu.Lock()
	lats := make([]int64, len(m.latencies))
	copy(lats, m.latencies)
	m.mu.Unlock()

	var avgMs float64
	var p95Ms int64
	if len(lats) > 0 {
		sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })
		var sum int64
		for _, v := range lats {
			sum += v
		}
		avgMs = float64(sum) / float64(len(lats))
		idx := int(math.Ceil(float64(len(lats))*0.95)) - 1
		if idx < 0 {
			idx = 0
		}
		p95Ms = lats[idx]
	}

	return Snapshot{
		TotalRequests:   total,
		SuccessRate:     math.Round(successRate*10) / 10,
		UpstreamErrors:  atomic.LoadInt64(&m.upstream),
		ClientErrors:    atomic.LoadInt64(&m.client),
		TransportErrors: atomic.LoadInt64(&m.transport),
		AvgLatencyMs:    math.Round(avgMs),
		P95LatencyMs:    p95Ms,
	}
}

// Handler returns an http.HandlerFunc that serves the snapshot as JSON.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := m.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}
