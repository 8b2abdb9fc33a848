package rfcapture

import (
	"sync/atomic"
	"time"

	"rfcapture/internal/interfaces"
)

// LatencyBuckets are the histogram boundaries, in nanoseconds, used by
// Metrics for both transfer and write latency.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks transfer and write latency for a capture, independent of
// the running CaptureState counters (which track bytes and correctness, not
// timing). The CLI attaches one to every capture through a MetricsObserver;
// a capture started without an Observer uses NoOpObserver and records no
// Metrics at all.
type Metrics struct {
	TransferOps    atomic.Uint64
	TransferBytes  atomic.Uint64
	TransferErrors atomic.Uint64
	transferLatencyNs atomic.Uint64
	TransferBuckets   [numLatencyBuckets]atomic.Uint64

	WriteOps    atomic.Uint64
	WriteBytes  atomic.Uint64
	WriteErrors atomic.Uint64
	writeLatencyNs atomic.Uint64
	WriteBuckets   [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics returns a Metrics with its start time stamped now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTransfer records one completed (or failed) USB transfer.
func (m *Metrics) RecordTransfer(bytes uint64, latencyNs uint64, success bool) {
	m.TransferOps.Add(1)
	if success {
		m.TransferBytes.Add(bytes)
	} else {
		m.TransferErrors.Add(1)
	}
	m.transferLatencyNs.Add(latencyNs)
	recordBucket(&m.TransferBuckets, latencyNs)
}

// RecordWrite records one completed (or failed) disk write.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.writeLatencyNs.Add(latencyNs)
	recordBucket(&m.WriteBuckets, latencyNs)
}

func recordBucket(buckets *[numLatencyBuckets]atomic.Uint64, latencyNs uint64) {
	for i, b := range LatencyBuckets {
		if latencyNs <= b {
			buckets[i].Add(1)
		}
	}
}

// Stop stamps the stop time, after which Snapshot reports a fixed uptime.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived rates.
type MetricsSnapshot struct {
	TransferOps    uint64
	TransferBytes  uint64
	TransferErrors uint64
	TransferBandwidth float64

	WriteOps    uint64
	WriteBytes  uint64
	WriteErrors uint64
	WriteBandwidth float64

	UptimeNs uint64
}

// Snapshot copies out the current counters and derives per-second rates
// from the elapsed uptime.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TransferOps:    m.TransferOps.Load(),
		TransferBytes:  m.TransferBytes.Load(),
		TransferErrors: m.TransferErrors.Load(),
		WriteOps:       m.WriteOps.Load(),
		WriteBytes:     m.WriteBytes.Load(),
		WriteErrors:    m.WriteErrors.Load(),
	}

	start := m.StartTime.Load()
	stop := m.StopTime.Load()
	if stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}
	if snap.UptimeNs > 0 {
		seconds := float64(snap.UptimeNs) / 1e9
		snap.TransferBandwidth = float64(snap.TransferBytes) / seconds
		snap.WriteBandwidth = float64(snap.WriteBytes) / seconds
	}
	return snap
}

// MetricsObserver adapts interfaces.Observer to record into a Metrics.
// ObserveSample is intentionally cheap: it only tracks that a sample was
// seen, since per-sample latency histograms at capture rate would dwarf the
// cost of the capture itself; CaptureState's min/max/clip counters (updated
// directly by the processing worker, not through this interface) are the
// real per-sample statistics.
type MetricsObserver struct {
	metrics    *Metrics
	sampleSeen atomic.Uint64
}

// NewMetricsObserver returns an Observer recording into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTransferComplete(bytes int, latencyNs int64, status interfaces.TransferStatus) {
	o.metrics.RecordTransfer(uint64(bytes), uint64(latencyNs), status == interfaces.TransferCompleted)
}

func (o *MetricsObserver) ObserveBufferWritten(bytes int, latencyNs int64, success bool) {
	o.metrics.RecordWrite(uint64(bytes), uint64(latencyNs), success)
}

func (o *MetricsObserver) ObserveSample(value uint16) {
	o.sampleSeen.Add(1)
}

var (
	_ interfaces.Observer = (*MetricsObserver)(nil)
	_ interfaces.Observer = interfaces.NoOpObserver{}
)
