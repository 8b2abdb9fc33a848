// Package pipeline implements the three-stage capture pipeline: the USB
// transfer worker, the processing+writer worker, and the shared
// disk-buffer ring that hands data between them.
package pipeline

import (
	"errors"
	"sync"

	"rfcapture/internal/constants"
)

// ErrInsufficientBuffers is returned by ComputeSizing when the requested
// disk-queue size cannot fit at least MinDiskBufferCount buffers.
var ErrInsufficientBuffers = errors.New("pipeline: disk queue too small for minimum buffer count")

// Sizing is the result of the buffer-size calculation: how many disk
// buffers exist, how big each is, and how the USB transfer fleet is laid
// out against them.
type Sizing struct {
	MaxPacketSizeBytes     int
	DiskBufferSize         int
	DiskBufferCount        int
	TransferSize           int
	TransfersPerDiskBuffer int
	DiskBufferTransferSpan int
	SimultaneousTransfers  int
	UseSmallTransfers      bool
}

// ComputeSizing implements the buffer-size calculation: disk buffer size is
// the largest multiple of maxPacketSizeBytes not exceeding the transfer cap
// (maxSingleTransferBytes, or a conservative 2MiB when the endpoint reports
// none), and the buffer count is however many of those fit in
// diskQueueBytes.
func ComputeSizing(maxPacketSizeBytes, maxSingleTransferBytes, diskQueueBytes, usbQueueBytes int, useSmallTransfers bool, smallTransferSize, maxSingleTransferCap int) (Sizing, error) {
	cap := maxSingleTransferCap
	if maxSingleTransferBytes > 0 && maxSingleTransferBytes < cap {
		cap = maxSingleTransferBytes
	}

	diskBufferSize := (cap / maxPacketSizeBytes) * maxPacketSizeBytes
	diskBufferCount := diskQueueBytes / diskBufferSize
	if diskBufferCount < 3 {
		return Sizing{}, ErrInsufficientBuffers
	}

	s := Sizing{
		MaxPacketSizeBytes: maxPacketSizeBytes,
		DiskBufferSize:     diskBufferSize,
		DiskBufferCount:    diskBufferCount,
		UseSmallTransfers:  useSmallTransfers,
	}

	if !useSmallTransfers {
		s.TransferSize = diskBufferSize
		s.TransfersPerDiskBuffer = 1
		s.DiskBufferTransferSpan = diskBufferCount - 1
		s.SimultaneousTransfers = s.DiskBufferTransferSpan
		return s, nil
	}

	transferSize := (smallTransferSize / maxPacketSizeBytes) * maxPacketSizeBytes
	if transferSize <= 0 {
		transferSize = maxPacketSizeBytes
	}
	s.TransferSize = transferSize
	s.TransfersPerDiskBuffer = diskBufferSize / transferSize

	span := usbQueueBytes / diskBufferSize
	if cap2 := diskBufferCount - 2; span > cap2 {
		span = cap2
	}
	if span < 1 {
		span = 1
	}
	s.DiskBufferTransferSpan = span
	s.SimultaneousTransfers = s.TransfersPerDiskBuffer * span
	return s, nil
}

// FlagCond is a single-producer/single-consumer boolean flag with
// wait/notify semantics, plus a poison bit every waiter checks before and
// after sleeping. It replaces the "set an already-full buffer, then clear
// it, to unblock both waiter polarities" dance with one flag every wait
// observes first.
type FlagCond struct {
	mu       sync.Mutex
	cond     *sync.Cond
	flag     bool
	poisoned bool
}

// NewFlagCond returns a FlagCond initially clear and unpoisoned.
func NewFlagCond() *FlagCond {
	f := &FlagCond{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Set transitions the flag to true and wakes waiters. It reports whether
// the flag was already true (a true->true transition), which callers must
// treat as a fatal program error.
func (f *FlagCond) Set() (wasAlreadySet bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wasAlreadySet = f.flag
	f.flag = true
	f.cond.Broadcast()
	return wasAlreadySet
}

// Clear transitions the flag to false and wakes waiters.
func (f *FlagCond) Clear() {
	f.mu.Lock()
	f.flag = false
	f.cond.Broadcast()
	f.mu.Unlock()
}

// WaitTrue blocks until the flag is true or the FlagCond is poisoned.
// Returns true if it woke due to poison rather than the flag.
func (f *FlagCond) WaitTrue() (poisoned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.flag && !f.poisoned {
		f.cond.Wait()
	}
	return f.poisoned
}

// WaitFalse blocks until the flag is false or the FlagCond is poisoned.
func (f *FlagCond) WaitFalse() (poisoned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.flag && !f.poisoned {
		f.cond.Wait()
	}
	return f.poisoned
}

// WaitTrueOrDone blocks until the flag is true, the FlagCond is poisoned,
// or done is closed. ready is true only in the first case.
func (f *FlagCond) WaitTrueOrDone(done <-chan struct{}) (ready, poisoned bool) {
	ch := make(chan bool, 1)
	go func() { ch <- f.WaitTrue() }()
	select {
	case poisoned = <-ch:
		return !poisoned, poisoned
	case <-done:
		return false, false
	}
}

// Poison marks the flag poisoned and wakes every waiter, regardless of
// current flag value. Used during forced teardown.
func (f *FlagCond) Poison() {
	f.mu.Lock()
	f.poisoned = true
	f.cond.Broadcast()
	f.mu.Unlock()
}

// IsPoisoned reports whether Poison has been called.
func (f *FlagCond) IsPoisoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.poisoned
}

// DiskBuffer is a fixed-size pinned memory region plus the full/poison
// handoff flags shared between the transfer worker (producer) and the
// processing worker (consumer).
type DiskBuffer struct {
	Index         int
	Data          []byte
	Full          *FlagCond
	writeInFlight bool // owned exclusively by the processing/writer worker
}

// NewDiskBuffers allocates count disk buffers of size bytes each.
func NewDiskBuffers(count, size int) []*DiskBuffer {
	bufs := make([]*DiskBuffer, count)
	for i := range bufs {
		bufs[i] = &DiskBuffer{
			Index: i,
			Data:  make([]byte, size),
			Full:  NewFlagCond(),
		}
	}
	return bufs
}

// TransferSlot describes one entry in the ring of in-flight USB requests.
type TransferSlot struct {
	Index           int
	DiskBufferIndex int
	Offset          int
	LastInBuffer    bool
	Submitted       bool
	Cancelled       bool
}

// WarmupDiskBuffers returns how many leading disk buffers the Transfer
// Stage's warmup discards before its first publish, capped at
// constants.WarmupDiskBufferCap even when the ring has more buffers than
// that. NewTransfer and NewTransferSlots both derive from this single value
// so the warmup window and the ring's starting position can never drift
// apart.
func WarmupDiskBuffers(s Sizing) int {
	n := s.DiskBufferCount
	if n > constants.WarmupDiskBufferCap {
		n = constants.WarmupDiskBufferCap
	}
	return n
}

// NewTransferSlots lays out a ring of slots against a disk buffer ring per
// the sizing computed by ComputeSizing. The ring starts warmupDiskBuffers
// (see WarmupDiskBuffers) positions back from buffer 0, so that once the
// warmup discard window finishes, the first disk buffer the Transfer Stage
// actually publishes is buffer 0, the ordering the Processing Stage relies
// on when it starts consuming at index 0.
func NewTransferSlots(s Sizing) []*TransferSlot {
	slots := make([]*TransferSlot, s.SimultaneousTransfers)
	diskBuf := 0
	if s.DiskBufferCount > 0 {
		diskBuf = ((s.DiskBufferCount-WarmupDiskBuffers(s))%s.DiskBufferCount + s.DiskBufferCount) % s.DiskBufferCount
	}
	offset := 0
	for i := range slots {
		last := (i+1)%s.TransfersPerDiskBuffer == 0
		slots[i] = &TransferSlot{
			Index:           i,
			DiskBufferIndex: diskBuf,
			Offset:          offset,
			LastInBuffer:    last,
		}
		offset += s.TransferSize
		if last {
			diskBuf = (diskBuf + 1) % s.DiskBufferCount
			offset = 0
		}
	}
	return slots
}
