package pipeline

import (
	"context"
	"sync"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
	"rfcapture/internal/wire"
)

type seqState int

const (
	seqBootstrap seqState = iota
	seqDisabled
	seqRunning
)

// SampleTap is the one-shot raw-sample snapshot handshake: a caller
// requests up to n bytes, the processing worker fills them in on its next
// pass over a disk buffer, and the caller polls for availability. No
// blocking on either side.
type SampleTap struct {
	mu           sync.Mutex
	requested    int
	snapshot     []byte
	available    bool
}

// Request asks for the next n bytes of raw disk-buffer data, overwriting
// any previous unclaimed snapshot.
func (t *SampleTap) Request(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot != nil {
		PutScratch(t.snapshot)
	}
	t.requested = n
	t.available = false
	t.snapshot = nil
}

// Poll returns the captured snapshot, if one has become available since
// the last Request.
func (t *SampleTap) Poll() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.available {
		return nil, false
	}
	out := t.snapshot
	t.available = false
	t.snapshot = nil
	return out, true
}

func (t *SampleTap) maybeCapture(raw []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.requested <= 0 || t.available {
		return
	}
	n := t.requested
	if n > len(raw) {
		n = len(raw)
	}
	snap := GetScratch(n)
	copy(snap, raw[:n])
	t.snapshot = snap
	t.available = true
	t.requested = 0
}

// Processing is the processing worker: it walks disk buffers in strict
// index order, validates the embedded sequence marker, verifies the
// optional test pattern, feeds the sample tap, converts to the output
// wire format, and dispatches the result to a Writer.
type Processing struct {
	buffers  []*DiskBuffer
	sizing   Sizing
	format   wire.Format
	testMode bool
	writer   Writer
	tap      *SampleTap
	observer interfaces.Observer
	logger   interfaces.Logger
	stats    *Stats

	conv      [2][]byte
	convIndex int
	overlapped bool

	seq          seqState
	seqExpected  uint8
	seqSampleIdx int

	testStarted   bool
	testExpected  uint16
	testWrapped   bool
	testWrapValue uint16

	current         int
	writeOffset     int64
	hasPendingWrite bool
	pendingBufIdx   int
	pendingLen      int

	stopRequested bool
	forcedDump    bool
	stopCh        chan struct{}
	stopOnce      sync.Once
	mu            sync.Mutex

	done        chan struct{}
	outcomeOnce sync.Once
	outcome     Outcome
}

// overlappedWriter is implemented only by the io_uring-backed writer; a
// type assertion against it is how Processing learns whether it must
// pipeline Submit/Collect a buffer apart, without importing the
// platform-specific writer type directly.
type overlappedWriter interface {
	overlapped() bool
}

// NewProcessing builds a processing worker over buffers, dispatching
// converted output to w.
func NewProcessing(buffers []*DiskBuffer, sizing Sizing, format wire.Format, testMode bool, w Writer, tap *SampleTap, stats *Stats, logger interfaces.Logger, observer interfaces.Observer) *Processing {
	overlapped := false
	if m, ok := w.(overlappedWriter); ok {
		overlapped = m.overlapped()
	}
	p := &Processing{
		buffers:    buffers,
		sizing:     sizing,
		format:     format,
		testMode:   testMode,
		writer:     w,
		tap:        tap,
		observer:   observer,
		logger:     logger,
		stats:      stats,
		seq:        seqBootstrap,
		overlapped: overlapped,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	convSize := wire.ConversionBufferSize(sizing.DiskBufferSize, format)
	p.conv[0] = make([]byte, convSize)
	p.conv[1] = make([]byte, convSize)
	return p
}

func (p *Processing) RequestStop() {
	p.mu.Lock()
	p.stopRequested = true
	p.mu.Unlock()
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Processing) RequestForcedDump() {
	p.mu.Lock()
	p.forcedDump = true
	p.mu.Unlock()
	p.stopOnce.Do(func() { close(p.stopCh) })
	for _, b := range p.buffers {
		b.Full.Poison()
	}
}

func (p *Processing) isStopRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopRequested
}

func (p *Processing) isForcedDump() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forcedDump
}

// Done reports completion.
func (p *Processing) Done() <-chan struct{} { return p.done }

// Outcome returns the terminal outcome, valid once Done is closed.
func (p *Processing) Outcome() Outcome { return p.outcome }

// Run drives the processing loop until a terminal condition is reached.
func (p *Processing) Run(ctx context.Context) Outcome {
	for {
		if p.isForcedDump() {
			return p.finish(p.flushAndReturn(OutcomeForcedAbort))
		}

		buf := p.buffers[p.current]
		ready, poisoned := buf.Full.WaitTrueOrDone(p.stopCh)
		if poisoned {
			return p.finish(p.flushAndReturn(OutcomeForcedAbort))
		}
		if !ready {
			// stop requested and this buffer will never fill: flush-only exit.
			return p.finish(p.flushAndReturn(OutcomeSuccess))
		}

		outcome := p.processBuffer(buf)
		if outcome != "" {
			return p.finish(outcome)
		}

		p.current = (p.current + 1) % len(p.buffers)

		select {
		case <-ctx.Done():
			return p.finish(p.flushAndReturn(OutcomeForcedAbort))
		default:
		}
	}
}

func (p *Processing) processBuffer(buf *DiskBuffer) Outcome {
	samples := wire.DecodeSamplesLE(buf.Data)

	if p.seq == seqBootstrap {
		n := constants.SequenceBootstrapSamples
		if n > len(samples) {
			n = len(samples)
		}
		var first uint8
		if n > 0 {
			first = samples[0].Marker()
		}
		tickIdx := -1
		for i := 1; i < n; i++ {
			if samples[i].Marker() != first {
				tickIdx = i
				break
			}
		}
		if tickIdx >= 0 {
			// Sample 0 is already tickIdx samples into the run that started
			// before capture began; seed the phase so the rollover lands at
			// tickIdx instead of assuming sample 0 is a tick boundary.
			p.seq = seqRunning
			p.seqExpected = first
			p.seqSampleIdx = constants.SamplesPerCounterTick - tickIdx
			p.stats.setHadSequenceNumbers(true)
		} else {
			p.seq = seqDisabled
			p.stats.setHadSequenceNumbers(false)
		}
	}

	if p.seq == seqRunning {
		for i, s := range samples {
			if s.Marker() != p.seqExpected {
				return OutcomeSequenceMismatch
			}
			p.seqSampleIdx++
			if p.seqSampleIdx == constants.SamplesPerCounterTick {
				p.seqSampleIdx = 0
				p.seqExpected = (p.seqExpected + 1) % (constants.CounterMax + 1)
			}
			samples[i] = s.Strip()
		}
	} else {
		for i, s := range samples {
			samples[i] = s.Strip()
		}
	}

	for i, s := range samples {
		v := s.Value()
		clippedLow := v == constants.SampleMin
		clippedHigh := v == constants.SampleMax
		p.stats.observeSample(v, clippedLow, clippedHigh)
		buf.Data[2*i] = byte(s)
		buf.Data[2*i+1] = byte(s >> 8)
	}

	if p.testMode {
		if outcome := p.verifyTestPattern(samples); outcome != "" {
			return outcome
		}
	}

	p.tap.maybeCapture(buf.Data)

	n := wire.Encode(p.format, buf.Data, p.conv[p.convIndex])
	chunk := p.conv[p.convIndex][:n]
	p.convIndex = 1 - p.convIndex

	if p.overlapped {
		if p.hasPendingWrite {
			if err := p.writer.Collect(); err != nil {
				return OutcomeFileWriteError
			}
			p.buffers[p.pendingBufIdx].Full.Clear()
			p.stats.addBuffersWritten(1, p.pendingLen)
			p.observeWrite(p.pendingLen)
		}
		if err := p.writer.Submit(chunk, p.writeOffset); err != nil {
			return OutcomeFileWriteError
		}
		p.writeOffset += int64(len(chunk))
		p.hasPendingWrite = true
		p.pendingBufIdx = buf.Index
		p.pendingLen = len(chunk)
	} else {
		if err := p.writer.Submit(chunk, p.writeOffset); err != nil {
			return OutcomeFileWriteError
		}
		if err := p.writer.Collect(); err != nil {
			return OutcomeFileWriteError
		}
		p.writeOffset += int64(len(chunk))
		buf.Full.Clear()
		p.stats.addBuffersWritten(1, len(chunk))
		p.observeWrite(len(chunk))
	}

	p.stats.addBytesTransferred(len(buf.Data))
	return ""
}

func (p *Processing) verifyTestPattern(samples []wire.Sample) Outcome {
	for _, s := range samples {
		v := s.Value()
		if !p.testStarted {
			p.testStarted = true
			p.testExpected = v + 1
			continue
		}
		expected := p.testExpected
		wrapping := false
		if v != expected {
			if v == 0 {
				if !p.testWrapped && (expected == constants.TestPatternWrapCLV || expected == constants.TestPatternWrapCAV) {
					p.testWrapped = true
					p.testWrapValue = expected
					p.stats.setWrap(expected)
					wrapping = true
				} else if p.testWrapped && expected == p.testWrapValue {
					wrapping = true
				}
			}
			if !wrapping {
				return OutcomeVerificationError
			}
		}
		if wrapping {
			p.testExpected = 1
		} else {
			p.testExpected = expected + 1
		}
	}
	return ""
}

// flushAndReturn drains any in-flight overlapped write before reporting
// outcome, so a graceful stop never truncates the last buffer.
func (p *Processing) flushAndReturn(outcome Outcome) Outcome {
	if p.overlapped && p.hasPendingWrite {
		if err := p.writer.Collect(); err != nil {
			return OutcomeFileWriteError
		}
		p.buffers[p.pendingBufIdx].Full.Clear()
		p.stats.addBuffersWritten(1, p.pendingLen)
		p.observeWrite(p.pendingLen)
		p.hasPendingWrite = false
	}
	return outcome
}

func (p *Processing) observeWrite(n int) {
	if p.observer == nil {
		return
	}
	p.observer.ObserveBufferWritten(n, 0, true)
}

func (p *Processing) finish(outcome Outcome) Outcome {
	p.outcomeOnce.Do(func() {
		p.outcome = outcome
		close(p.done)
	})
	return p.outcome
}
