package tokenpair

import (
	"sync/atomic"
	"time"
)

// MetricID indexes the engine's fixed set of counters.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogoutSuccess
	MetricLogoutFailure
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	// Decoder outcomes, one per Kind.
	MetricDecodeAccess
	MetricDecodeRefresh
	MetricDecodeNone
	MetricRevokedRejected
	MetricExpiredRejected
	MetricCapabilityDenied
	MetricRoleDenied
	// MetricBackendUnavailable covers the ledger, the directory and the
	// login limiter.
	MetricBackendUnavailable
	MetricLoginThrottled
	// MetricAuthenticateLatency is backed by the histogram, not a counter.
	MetricAuthenticateLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:        "login_success",
	MetricLoginFailure:        "login_failure",
	MetricRefreshSuccess:      "refresh_success",
	MetricRefreshFailure:      "refresh_failure",
	MetricLogoutSuccess:       "logout_success",
	MetricLogoutFailure:       "logout_failure",
	MetricAuthenticateSuccess: "authenticate_success",
	MetricAuthenticateFailure: "authenticate_failure",
	MetricDecodeAccess:        "decode_access",
	MetricDecodeRefresh:       "decode_refresh",
	MetricDecodeNone:          "decode_none",
	MetricRevokedRejected:     "revoked_rejected",
	MetricExpiredRejected:     "expired_rejected",
	MetricCapabilityDenied:    "capability_denied",
	MetricRoleDenied:          "role_denied",
	MetricBackendUnavailable:  "backend_unavailable",
	MetricLoginThrottled:      "login_throttled",
	MetricAuthenticateLatency: "authenticate_latency",
}

func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// HistogramBucketBounds are inclusive upper bounds; one more bucket past
// the last bound catches everything slower.
var HistogramBucketBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const bucketCount = len(HistogramBucketBounds) + 1

// slot keeps each counter on its own cache line so parallel requests
// bumping different counters do not contend.
type slot struct {
	n atomic.Uint64
	_ [56]byte
}

type latencyHistogram struct {
	buckets [bucketCount]atomic.Uint64
	sumNano atomic.Int64
}

func (h *latencyHistogram) observe(d time.Duration) {
	i := 0
	for i < len(HistogramBucketBounds) && d > HistogramBucketBounds[i] {
		i++
	}
	h.buckets[i].Add(1)
	h.sumNano.Add(int64(d))
}

// Metrics holds the engine counters. A nil or disabled Metrics accepts
// every call and records nothing.
type Metrics struct {
	on      bool
	latency bool
	slots   [metricIDCount]slot
	hist    latencyHistogram
}

// MetricsSnapshot is a point-in-time copy. Histograms holds per-bucket
// counts, not running totals; HistogramSums holds the summed durations.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{on: cfg.Enabled, latency: cfg.Enabled && cfg.EnableLatencyHistograms}
}

func (m *Metrics) Enabled() bool        { return m != nil && m.on }
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.slots[id].n.Add(1)
}

// Observe feeds the authenticate latency histogram; any other id is a
// no-op.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if id != MetricAuthenticateLatency || !m.LatencyEnabled() {
		return
	}
	m.hist.observe(d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.slots[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := range metricIDCount {
		if id != MetricAuthenticateLatency {
			snap.Counters[id] = m.slots[id].n.Load()
		}
	}
	if m.latency {
		counts := make([]uint64, bucketCount)
		for i := range counts {
			counts[i] = m.hist.buckets[i].Load()
		}
		snap.Histograms[MetricAuthenticateLatency] = counts
		snap.HistogramSums[MetricAuthenticateLatency] = time.Duration(m.hist.sumNano.Load())
	}
	return snap
}
