package tokenpair

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	for name, m := range map[string]*Metrics{
		"nil":      nil,
		"disabled": NewMetrics(MetricsConfig{EnableLatencyHistograms: true}),
	} {
		t.Run(name, func(t *testing.T) {
			m.Inc(MetricLoginSuccess)
			m.Observe(MetricAuthenticateLatency, time.Millisecond)

			if got := m.Value(MetricLoginSuccess); got != 0 {
				t.Fatalf("Value = %d, want 0", got)
			}
			snap := m.Snapshot()
			if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
				t.Fatalf("expected empty snapshot, got %+v", snap)
			}
		})
	}
}

func TestMetricsIncParallel(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers, each = 32, 4000
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*each {
		t.Fatalf("Value = %d, want %d", got, workers*each)
	}
	if got := m.Value(MetricRefreshFailure); got != 0 {
		t.Fatalf("neighbouring counter moved to %d", got)
	}
}

func TestMetricsIgnoresUnknownID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(metricIDCount + 3)
	if got := m.Value(metricIDCount + 3); got != 0 {
		t.Fatalf("Value = %d for an unknown id", got)
	}
	if got := MetricID(metricIDCount + 3).String(); got != "unknown" {
		t.Fatalf("String() = %q", got)
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	// Bounds are inclusive, so each observation lands in its own bucket.
	var want time.Duration
	for _, d := range HistogramBucketBounds {
		m.Observe(MetricAuthenticateLatency, d)
		want += d
	}
	m.Observe(MetricAuthenticateLatency, 700*time.Millisecond)
	want += 700 * time.Millisecond
	m.Observe(MetricLoginSuccess, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != len(HistogramBucketBounds)+1 {
		t.Fatalf("got %d buckets", len(buckets))
	}
	for i, n := range buckets {
		if n != 1 {
			t.Fatalf("bucket %d = %d, want 1", i, n)
		}
	}
	if got := snap.HistogramSums[MetricAuthenticateLatency]; got != want {
		t.Fatalf("sum = %v, want %v", got, want)
	}
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("the latency id must not appear as a counter")
	}
}

func TestMetricsLatencyOff(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricAuthenticateLatency, time.Millisecond)
	m.Inc(MetricLoginFailure)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricAuthenticateLatency]; ok {
		t.Fatal("histogram reported while latency is off")
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("counters = %v", snap.Counters)
	}
}

func TestMetricIDNames(t *testing.T) {
	seen := map[string]MetricID{}
	for id := range metricIDCount {
		name := id.String()
		if name == "" || name == "unknown" {
			t.Fatalf("metric %d has no name", id)
		}
		if prev, dup := seen[name]; dup {
			t.Fatalf("metrics %d and %d share name %q", prev, id, name)
		}
		seen[name] = id
	}
}

func TestEngineRecordsAuthenticateLatency(t *testing.T) {
	env := newTestEnv(t)
	env.engine.metrics = NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	pair := env.login(t, "i.ivanov@test.com")
	if _, err := env.engine.Authenticate(t.Context(), pair.AccessToken); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	var total uint64
	for _, n := range env.engine.MetricsSnapshot().Histograms[MetricAuthenticateLatency] {
		total += n
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
	if env.engine.Metrics().Value(MetricAuthenticateSuccess) != 1 {
		t.Fatal("authenticate success not counted")
	}
}
