package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfcapture/internal/endpoint"
	"rfcapture/internal/interfaces"
)

func fourBufferSizing() Sizing {
	s, err := ComputeSizing(64, 4096, 4*4096, 0, false, 0, 4096)
	if err != nil {
		panic(err)
	}
	return s
}

// S5: a transfer that completes out of submission order (the synthetic
// endpoint's second submission finishing before its first) is reported as
// a buffer underflow rather than silently accepted.
func TestTransferOutOfOrderCompletionIsBufferUnderflow(t *testing.T) {
	sizing := fourBufferSizing()
	buffers := NewDiskBuffers(sizing.DiskBufferCount, sizing.DiskBufferSize)
	slots := NewTransferSlots(sizing)
	require.Len(t, slots, 3)

	ep := endpoint.NewSynthetic(sizing.MaxPacketSizeBytes, sizing.TransferSize)
	ep.CompletionDelay = func(submissionIndex int) time.Duration {
		if submissionIndex == 1 {
			return 100 * time.Millisecond
		}
		return 0
	}

	tr := NewTransfer(ep, buffers, slots, sizing, nil, interfaces.NoOpObserver{})

	outcome := tr.Run(context.Background())
	assert.Equal(t, OutcomeBufferUnderflow, outcome)
}
