package constants

import "time"

// Capture sizing defaults, per the buffer-size calculation rules: a disk
// buffer is a multiple of the endpoint's max-packet-size, capped at
// MaxSingleTransferBytes, and the disk buffer ring is sized against
// DefaultDiskQueueBytes.
const (
	// MaxSingleTransferBytes is the conservative cap used when the endpoint
	// does not report its own maximum single-transfer size.
	MaxSingleTransferBytes = 2 * 1024 * 1024

	// DefaultDiskQueueBytes is the target total size of the disk-buffer ring.
	DefaultDiskQueueBytes = 256 * 1024 * 1024

	// DefaultUSBQueueBytes bounds how many disk-buffer-equivalents of
	// transfers may be in flight at once in small-transfer mode.
	DefaultUSBQueueBytes = 16 * 1024 * 1024

	// MinDiskBufferCount is the minimum number of disk buffers required to
	// run the pipeline: one filling, one processing/writing, one reserved.
	MinDiskBufferCount = 3

	// SmallTransferSize is the nominal small-transfer size before rounding
	// down to a multiple of the endpoint's max-packet-size.
	SmallTransferSize = 128 * 1024

	// WarmupDiskBufferCap bounds the warmup discard window to at most this
	// many disk-buffer-equivalents, even when diskBufferCount is larger.
	WarmupDiskBufferCap = 4
)

// CounterMax is the largest value of the 6-bit sequence marker embedded in
// bits 10-15 of every sample; the counter advances by one every 1<<16
// samples and wraps to 0 after CounterMax (modulo CounterMax+1).
const CounterMax = 63

// SamplesPerCounterTick is the number of consecutive samples sharing one
// sequence-marker value.
const SamplesPerCounterTick = 1 << 16

// SequenceBootstrapSamples is the number of leading samples scanned on the
// first disk buffer to determine whether the stream carries sequence
// markers at all.
const SequenceBootstrapSamples = 65537

// Sample value bounds (10-bit unsigned).
const (
	SampleMin = 0
	SampleMax = 1023
)

// Candidate test-pattern wrap points; the spec treats the actual value as
// data latched from the first observed wraparound, never as two code paths.
const (
	TestPatternWrapCLV = 1021
	TestPatternWrapCAV = 1024
)

// Vendor control request codes (see the device wire protocol).
const (
	VendorRequestCollection = 0xB5 // value 1 = start, 0 = stop
	VendorRequestConfigure  = 0xB6 // bit0=test pattern, bit1=PAL, bit2=DC offset
	VendorRequestStatus     = 0xB7 // read-only status/configuration readback
)

// Configure bitfield masks for VendorRequestConfigure.
const (
	ConfigureTestPattern = 1 << 0
	ConfigurePAL         = 1 << 1
	ConfigureDCOffset    = 1 << 2
)

// GracefulStopPollInterval is a 10 ms teardown polling interval. Nothing in
// this module reads it; Controller.Stop bounds its own wait with a fixed
// 30-second timeout instead.
const GracefulStopPollInterval = 10 * time.Millisecond
