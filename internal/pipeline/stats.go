package pipeline

import "sync/atomic"

// Stats holds the running counters published while a capture is in
// progress. Every field is updated with atomic ops from the processing
// worker and read with atomic ops from whatever polls progress, so no
// lock is needed on the hot path. Mirrors the teacher's atomic-counters
// Metrics type, trimmed to the fields a capture actually needs.
type Stats struct {
	bytesTransferred uint64
	buffersWritten   uint64
	bytesWritten     uint64
	sampleMin        uint64 // stored as (value+1); 0 means "unset"
	sampleMax        uint64
	clippedLow       uint64
	clippedHigh      uint64
	hadSequenceNums  uint32
	wrapLatched      uint32
	wrapValue        uint32
}

// Snapshot is a point-in-time, non-atomic copy of Stats for reporting.
type Snapshot struct {
	BytesTransferred  uint64
	BuffersWritten    uint64
	BytesWritten      uint64
	SampleMin         uint16
	SampleMax         uint16
	ClippedLow        uint64
	ClippedHigh       uint64
	HadSequenceNums   bool
	TestWrapLatched   bool
	TestWrapValue     uint16
}

func (s *Stats) addBytesTransferred(n int) {
	atomic.AddUint64(&s.bytesTransferred, uint64(n))
}

func (s *Stats) addBuffersWritten(n, bytes int) {
	atomic.AddUint64(&s.buffersWritten, uint64(n))
	atomic.AddUint64(&s.bytesWritten, uint64(bytes))
}

func (s *Stats) setHadSequenceNumbers(v bool) {
	if v {
		atomic.StoreUint32(&s.hadSequenceNums, 1)
	} else {
		atomic.StoreUint32(&s.hadSequenceNums, 0)
	}
}

func (s *Stats) setWrap(value uint16) {
	atomic.StoreUint32(&s.wrapValue, uint32(value))
	atomic.StoreUint32(&s.wrapLatched, 1)
}

func (s *Stats) observeSample(v uint16, clippedLow, clippedHigh bool) {
	for {
		old := atomic.LoadUint64(&s.sampleMin)
		if old != 0 && old-1 <= uint64(v) {
			break
		}
		if atomic.CompareAndSwapUint64(&s.sampleMin, old, uint64(v)+1) {
			break
		}
	}
	for {
		old := atomic.LoadUint64(&s.sampleMax)
		if old != 0 && old-1 >= uint64(v) {
			break
		}
		if atomic.CompareAndSwapUint64(&s.sampleMax, old, uint64(v)+1) {
			break
		}
	}
	if clippedLow {
		atomic.AddUint64(&s.clippedLow, 1)
	}
	if clippedHigh {
		atomic.AddUint64(&s.clippedHigh, 1)
	}
}

// Snapshot copies out a consistent-enough view of the counters. Individual
// fields are each read atomically; the set as a whole is not a single
// atomic transaction, matching the teacher's Metrics.Snapshot tradeoff.
func (s *Stats) Snapshot() Snapshot {
	min := atomic.LoadUint64(&s.sampleMin)
	max := atomic.LoadUint64(&s.sampleMax)
	var sMin, sMax uint16
	if min > 0 {
		sMin = uint16(min - 1)
	}
	if max > 0 {
		sMax = uint16(max - 1)
	}
	return Snapshot{
		BytesTransferred: atomic.LoadUint64(&s.bytesTransferred),
		BuffersWritten:   atomic.LoadUint64(&s.buffersWritten),
		BytesWritten:     atomic.LoadUint64(&s.bytesWritten),
		SampleMin:        sMin,
		SampleMax:        sMax,
		ClippedLow:       atomic.LoadUint64(&s.clippedLow),
		ClippedHigh:      atomic.LoadUint64(&s.clippedHigh),
		HadSequenceNums:  atomic.LoadUint32(&s.hadSequenceNums) != 0,
		TestWrapLatched:  atomic.LoadUint32(&s.wrapLatched) != 0,
		TestWrapValue:    uint16(atomic.LoadUint32(&s.wrapValue)),
	}
}
