package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rfcapture/internal/interfaces"
)

// completionMsg is posted to the transfer worker's single consumer channel
// by whatever dispatch context the endpoint invokes on_complete on.
type completionMsg struct {
	slotIndex int
	status    interfaces.TransferStatus
	n         int
}

// Transfer runs the USB Transfer Stage: it keeps simultaneousTransfers
// asynchronous bulk-IN reads in flight against the disk-buffer ring.
type Transfer struct {
	ep       interfaces.Endpoint
	buffers  []*DiskBuffer
	slots    []*TransferSlot
	handles  []interfaces.TransferHandle
	sizing   Sizing
	logger   interfaces.Logger
	observer interfaces.Observer

	completions chan completionMsg
	outstanding int
	completed   uint64

	warmupRemaining        int
	expectedNextCompletion int

	stopRequested bool
	forcedDump    bool
	mu            sync.Mutex // guards stopRequested/forcedDump, set from the controller goroutine

	outcomeOnce sync.Once
	outcome     Outcome
	done        chan struct{}
}

// NewTransfer constructs a transfer worker over the given disk-buffer ring
// and slot layout. slots must come from NewTransferSlots(sizing), which lays
// the ring out already offset for this warmup window so that the first
// buffer actually published (after warmupRemaining discards) is buffer 0.
func NewTransfer(ep interfaces.Endpoint, buffers []*DiskBuffer, slots []*TransferSlot, sizing Sizing, logger interfaces.Logger, observer interfaces.Observer) *Transfer {
	if observer == nil {
		observer = interfaces.NoOpObserver{}
	}
	return &Transfer{
		ep:              ep,
		buffers:         buffers,
		slots:           slots,
		handles:         make([]interfaces.TransferHandle, len(slots)),
		sizing:          sizing,
		logger:          logger,
		observer:        observer,
		completions:     make(chan completionMsg, len(slots)),
		done:            make(chan struct{}),
		warmupRemaining: WarmupDiskBuffers(sizing) * sizing.TransfersPerDiskBuffer,
	}
}

// RequestStop asks the worker to stop cooperatively at the next buffer
// boundary.
func (t *Transfer) RequestStop() {
	t.mu.Lock()
	t.stopRequested = true
	t.mu.Unlock()
}

// RequestForcedDump poisons every disk buffer's full flag and asks the
// worker to abort as soon as its current completion is handled.
func (t *Transfer) RequestForcedDump() {
	t.mu.Lock()
	t.forcedDump = true
	t.mu.Unlock()
	for _, b := range t.buffers {
		b.Full.Poison()
	}
}

func (t *Transfer) isStopRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopRequested
}

func (t *Transfer) isForcedDump() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forcedDump
}

// Done returns a channel closed once the worker has published its final
// outcome.
func (t *Transfer) Done() <-chan struct{} { return t.done }

// Outcome returns the worker's latched outcome; valid only after Done is
// closed.
func (t *Transfer) Outcome() Outcome { return t.outcome }

// Completed returns the number of transfers that have completed
// successfully so far; safe to call while Run is in progress.
func (t *Transfer) Completed() uint64 {
	return atomic.LoadUint64(&t.completed)
}

func (t *Transfer) submit(slotIndex int) error {
	slot := t.slots[slotIndex]
	buf := t.buffers[slot.DiskBufferIndex]
	dst := buf.Data[slot.Offset : slot.Offset+t.sizing.TransferSize]
	handle, err := t.ep.Submit(dst, func(status interfaces.TransferStatus, n int) {
		t.completions <- completionMsg{slotIndex: slotIndex, status: status, n: n}
	})
	if err != nil {
		return err
	}
	slot.Submitted = true
	t.handles[slotIndex] = handle
	return nil
}

// Run drives the worker to completion, submitting the initial fleet and
// then processing one completion per iteration until a terminal outcome is
// reached.
func (t *Transfer) Run(ctx context.Context) Outcome {
	for i := range t.slots {
		if err := t.submit(i); err != nil {
			return t.finish(OutcomeUsbTransferFailure)
		}
		t.outstanding++
	}

	for {
		select {
		case <-ctx.Done():
			return t.finish(OutcomeForcedAbort)
		case msg := <-t.completions:
			t.outstanding--
			outcome, captureComplete := t.handleCompletion(msg)
			if outcome != "" {
				return t.finish(outcome)
			}
			if captureComplete {
				t.drainRemaining()
				return t.finish(OutcomeSuccess)
			}
		}
	}
}

// handleCompletion implements the steady-state loop of spec section 4.3.
func (t *Transfer) handleCompletion(msg completionMsg) (outcome Outcome, captureComplete bool) {
	slot := t.slots[msg.slotIndex]
	slot.Submitted = false

	if msg.slotIndex != t.expectedNextCompletion {
		return OutcomeBufferUnderflow, false
	}
	t.expectedNextCompletion = (msg.slotIndex + 1) % len(t.slots)

	if msg.status == interfaces.TransferCancelled {
		return "", false
	}
	if msg.status == interfaces.TransferFailed {
		return OutcomeUsbTransferFailure, false
	}
	if msg.n != t.sizing.TransferSize {
		return OutcomeUsbTransferFailure, false
	}

	atomic.AddUint64(&t.completed, 1)
	t.observer.ObserveTransferComplete(msg.n, 0, msg.status)

	if t.isForcedDump() {
		return OutcomeForcedAbort, false
	}

	if t.warmupRemaining > 0 {
		t.warmupRemaining--
	} else if slot.LastInBuffer {
		buf := t.buffers[slot.DiskBufferIndex]
		if buf.Full.Set() {
			return OutcomeProgramError, false
		}
	}

	if t.isStopRequested() && slot.LastInBuffer {
		return "", true
	}

	nextDiskBuffer := (slot.DiskBufferIndex + t.sizing.DiskBufferTransferSpan) % t.sizing.DiskBufferCount
	if slot.Offset == 0 {
		if poisoned := t.buffers[nextDiskBuffer].Full.WaitFalse(); poisoned {
			return OutcomeForcedAbort, false
		}
	}
	slot.DiskBufferIndex = nextDiskBuffer

	if err := t.submit(msg.slotIndex); err != nil {
		return OutcomeUsbTransferFailure, false
	}
	t.outstanding++
	return "", false
}

// drainRemaining waits for all slots still in flight at the moment
// cooperative stop was observed, without resubmitting any of them.
func (t *Transfer) drainRemaining() {
	for t.outstanding > 0 {
		select {
		case <-t.completions:
			t.outstanding--
		case <-time.After(5 * time.Second):
			return
		}
	}
}

func (t *Transfer) finish(outcome Outcome) Outcome {
	t.outcomeOnce.Do(func() {
		t.outcome = outcome
		for i, slot := range t.slots {
			if slot.Submitted {
				_ = t.ep.Cancel(t.handles[i])
			}
		}
		for t.outstanding > 0 {
			select {
			case <-t.completions:
				t.outstanding--
			case <-time.After(5 * time.Second):
				t.outstanding = 0
			}
		}
		close(t.done)
	})
	return t.outcome
}
