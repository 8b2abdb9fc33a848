package rfcapture

import (
	"sync/atomic"

	"rfcapture/internal/pipeline"
)

// CaptureState is the controller's public progress record: the monotonic
// counters spec.md §3 names, plus the terminal TransferResult. Every field
// is read via Snapshot, which copies out the processing worker's Stats
// alongside the controller's own running/result bits — mirroring the
// teacher's MetricsSnapshot, a single non-locking read of a set of
// independently-atomic counters rather than one torn-free transaction.
type CaptureState struct {
	TransfersCompleted uint64
	BuffersWritten     uint64
	BytesWritten       uint64
	SampleMin          uint16
	SampleMax          uint16
	ClippedLow         uint64
	ClippedHigh        uint64
	HadSequenceNumbers bool
	TestWrapLatched    bool
	TestWrapValue      uint16
	Result             TransferResult
}

// captureState is the controller-owned mutable half of CaptureState: the
// pieces Stats does not already track (result/running). TransfersCompleted
// comes straight from the transfer worker's own atomic counter.
type captureState struct {
	running uint32
	result  atomic.Value // TransferResult
}

func newCaptureState() *captureState {
	cs := &captureState{}
	cs.result.Store(Running)
	return cs
}

func (c *captureState) setRunning(v bool) {
	if v {
		atomic.StoreUint32(&c.running, 1)
	} else {
		atomic.StoreUint32(&c.running, 0)
	}
}

func (c *captureState) isRunning() bool {
	return atomic.LoadUint32(&c.running) != 0
}

func (c *captureState) setResult(r TransferResult) {
	c.result.Store(r)
}

func (c *captureState) getResult() TransferResult {
	if v := c.result.Load(); v != nil {
		return v.(TransferResult)
	}
	return Running
}

// snapshot combines c with stats and the transfer worker's completed count
// into the public CaptureState.
func (c *captureState) snapshot(stats *pipeline.Stats, transfersCompleted uint64) CaptureState {
	var s pipeline.Snapshot
	if stats != nil {
		s = stats.Snapshot()
	}
	return CaptureState{
		TransfersCompleted: transfersCompleted,
		BuffersWritten:     s.BuffersWritten,
		BytesWritten:       s.BytesWritten,
		SampleMin:          s.SampleMin,
		SampleMax:          s.SampleMax,
		ClippedLow:         s.ClippedLow,
		ClippedHigh:        s.ClippedHigh,
		HadSequenceNumbers: s.HadSequenceNums,
		TestWrapLatched:    s.TestWrapLatched,
		TestWrapValue:      s.TestWrapValue,
		Result:             c.getResult(),
	}
}
