package rfcapture

import "rfcapture/internal/constants"

// Re-exported sizing and protocol constants, so callers configuring
// StartParams never need to import internal/constants directly.
const (
	DefaultDiskQueueBytes    = constants.DefaultDiskQueueBytes
	DefaultUSBQueueBytes     = constants.DefaultUSBQueueBytes
	MaxSingleTransferBytes   = constants.MaxSingleTransferBytes
	SmallTransferSize        = constants.SmallTransferSize
	MinDiskBufferCount       = constants.MinDiskBufferCount

	CounterMax               = constants.CounterMax
	SamplesPerCounterTick    = constants.SamplesPerCounterTick
	SequenceBootstrapSamples = constants.SequenceBootstrapSamples

	SampleMin = constants.SampleMin
	SampleMax = constants.SampleMax

	TestPatternWrapCLV = constants.TestPatternWrapCLV
	TestPatternWrapCAV = constants.TestPatternWrapCAV
)
