package goAccount

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Add(MetricVerificationPurged, 10)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := m.Value(MetricVerificationPurged); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %d counters", len(snap.Counters))
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricLoginLatency, time.Second)
	if m.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrementAndAdd(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricRegisterSuccess)
	m.Inc(MetricRegisterSuccess)
	m.Add(MetricVerificationPurged, 41)
	m.Inc(MetricID(metricIDCount + 3))

	if got := m.Value(MetricRegisterSuccess); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := m.Value(MetricVerificationPurged); got != 41 {
		t.Fatalf("expected 41, got %d", got)
	}

	snap := m.Snapshot()
	if len(snap.Counters) != int(MetricLoginLatency) {
		t.Fatalf("expected %d counters, got %d", MetricLoginLatency, len(snap.Counters))
	}
	if _, ok := snap.Counters[MetricLoginLatency]; ok {
		t.Fatal("histogram id must not appear among counters")
	}
	if _, ok := snap.Histograms[MetricLoginLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsLoginLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		10 * time.Millisecond,
		25 * time.Millisecond,
		40 * time.Millisecond,
		90 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		900 * time.Millisecond,
		2 * time.Second,
		5 * time.Second,
	}
	for _, d := range observations {
		m.Observe(MetricLoginLatency, d)
	}
	// Only login latency is a histogram.
	m.Observe(MetricLoginSuccess, time.Second)

	buckets := m.Snapshot().Histograms[MetricLoginLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}

	want := []uint64{2, 1, 1, 1, 1, 1, 1, 1}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d (all %v)", i, want[i], buckets[i], buckets)
		}
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("observe must not touch counters, got %d", got)
	}

	var total time.Duration
	for _, d := range observations {
		total += d
	}
	if got := m.Snapshot().HistogramSums[MetricLoginLatency]; got != total {
		t.Fatalf("expected sum %s, got %s", total, got)
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       0,
		25 * time.Millisecond:   0,
		26 * time.Millisecond:   1,
		100 * time.Millisecond:  2,
		101 * time.Millisecond:  3,
		1000 * time.Millisecond: 5,
		2500 * time.Millisecond: 6,
		time.Hour:               7,
	}
	for d, want := range cases {
		if got := bucketIndex(d); got != want {
			t.Fatalf("bucketIndex(%s): expected %d, got %d", d, want, got)
		}
	}
}
