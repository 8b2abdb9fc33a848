// Package endpoint provides Endpoint implementations: Synthetic, a
// deterministic in-memory RF sample generator for tests and the default CLI
// build, and (behind the usb build tag) the real hardware endpoint.
package endpoint

import (
	"context"
	"errors"
	"sync"
	"time"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
)

// ErrClosed is returned by Submit once the endpoint has been closed.
var ErrClosed = errors.New("endpoint: closed")

// Synthetic generates a deterministic RF sample stream in memory, with no
// real USB hardware involved. It exists to drive the pipeline's tests and
// worked scenarios: clean captures, injected sequence-marker errors, test
// pattern wraparound, and artificially delayed completions.
type Synthetic struct {
	mu     sync.Mutex
	closed bool

	maxPacketSizeBytes     int
	maxSingleTransferBytes int
	nextHandle             uint64
	submissionCount        int

	// SequenceEnabled controls whether generated samples carry a live,
	// advancing 6-bit marker in bits 10-15. False produces a stream with
	// no marker variation at all, for exercising the bootstrap
	// presence-detection path.
	SequenceEnabled bool

	// InjectSequenceErrorAtSample corrupts the marker of the sample at
	// this absolute index (across the whole capture) by flipping its low
	// bit. Negative disables injection.
	InjectSequenceErrorAtSample int64

	// TestPatternEnabled makes the stream an ascending ramp that wraps at
	// WrapPoint (1021 for CLV, 1024 for CAV) instead of free-running
	// pseudo-RF noise.
	TestPatternEnabled bool
	WrapPoint          uint16

	// CompletionDelay, if set, is consulted for every submission (1-based
	// sequence number) and adds the returned delay before that
	// transfer's completion callback fires. Used to simulate an
	// out-of-order-completing transfer.
	CompletionDelay func(submissionIndex int) time.Duration

	sampleIdx    uint64
	marker       uint8
	markerTick   int
	patternValue uint16

	statusBits uint16
}

// NewSynthetic returns a Synthetic endpoint reporting the given packet and
// transfer-size geometry on Connect.
func NewSynthetic(maxPacketSizeBytes, maxSingleTransferBytes int) *Synthetic {
	return &Synthetic{
		maxPacketSizeBytes:          maxPacketSizeBytes,
		maxSingleTransferBytes:      maxSingleTransferBytes,
		SequenceEnabled:             true,
		WrapPoint:                   1024,
		InjectSequenceErrorAtSample: -1,
	}
}

// Connect reports the configured geometry; there is no real device to open.
func (s *Synthetic) Connect(ctx context.Context, preferredDevicePath string) (int, int, error) {
	return s.maxPacketSizeBytes, s.maxSingleTransferBytes, nil
}

// Submit fills buf with the next slice of the generated stream and
// completes asynchronously on its own goroutine, optionally delayed.
func (s *Synthetic) Submit(buf []byte, onComplete interfaces.CompletionFunc) (interfaces.TransferHandle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.nextHandle++
	handle := interfaces.TransferHandle(s.nextHandle)
	s.submissionCount++
	idx := s.submissionCount
	s.fill(buf)
	var delay time.Duration
	if s.CompletionDelay != nil {
		delay = s.CompletionDelay(idx)
	}
	s.mu.Unlock()

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		onComplete(interfaces.TransferCompleted, len(buf))
	}()
	return handle, nil
}

func (s *Synthetic) fill(buf []byte) {
	n := len(buf) / 2
	for i := 0; i < n; i++ {
		val := s.nextSampleValue()
		marker := s.marker
		if s.InjectSequenceErrorAtSample >= 0 && int64(s.sampleIdx) == s.InjectSequenceErrorAtSample {
			marker ^= 0x1
		}
		var word uint16
		if s.SequenceEnabled {
			word = (uint16(marker) << 10) | (val & 0x03FF)
		} else {
			word = val & 0x03FF
		}
		buf[2*i] = byte(word)
		buf[2*i+1] = byte(word >> 8)

		s.sampleIdx++
		s.markerTick++
		if s.markerTick == constants.SamplesPerCounterTick {
			s.markerTick = 0
			s.marker = (s.marker + 1) % (constants.CounterMax + 1)
		}
	}
}

func (s *Synthetic) nextSampleValue() uint16 {
	if s.TestPatternEnabled {
		v := s.patternValue
		s.patternValue++
		if s.patternValue == s.WrapPoint {
			s.patternValue = 0
		}
		return v
	}
	// Cheap deterministic pseudo-RF noise; not a real LCG constant
	// concern since nothing here needs cryptographic or statistical
	// quality, just stable output values to validate stripping/framing.
	s.patternValue = (s.patternValue*1103515245 + 12345) & 0x3FF
	return s.patternValue
}

// Cancel is a no-op: a transfer's data is generated inside Submit, and its
// completion always fires as TransferCompleted on its own goroutine (after
// any CompletionDelay), whether or not Cancel was called.
func (s *Synthetic) Cancel(handle interfaces.TransferHandle) error {
	return nil
}

// Drain is a no-op; completions dispatch themselves on their own goroutine.
func (s *Synthetic) Drain(timeout int64) error {
	return nil
}

// SendVendorCommand records configure requests so QueryStatus can read
// them back; collection start/stop requests are acknowledged but not
// otherwise tracked.
func (s *Synthetic) SendVendorCommand(ctx context.Context, requestCode uint8, value uint16) error {
	if requestCode == constants.VendorRequestConfigure {
		s.mu.Lock()
		s.statusBits = value
		s.mu.Unlock()
	}
	return nil
}

// QueryStatus returns the bitfield last set by a configure request.
func (s *Synthetic) QueryStatus(ctx context.Context) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusBits, nil
}

// Close marks the endpoint closed; further Submit calls fail.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ interfaces.Endpoint = (*Synthetic)(nil)
