package endpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
	"rfcapture/internal/wire"
)

func TestSyntheticConnectReportsGeometry(t *testing.T) {
	ep := NewSynthetic(1024, 2*1024*1024)
	maxPacket, maxTransfer, err := ep.Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1024, maxPacket)
	assert.Equal(t, 2*1024*1024, maxTransfer)
}

func TestSyntheticSubmitCompletesSuccessfully(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	buf := make([]byte, 64)

	var wg sync.WaitGroup
	wg.Add(1)
	var gotStatus interfaces.TransferStatus
	var gotBytes int
	_, err := ep.Submit(buf, func(status interfaces.TransferStatus, bytes int) {
		gotStatus = status
		gotBytes = bytes
		wg.Done()
	})
	require.NoError(t, err)
	wg.Wait()
	assert.Equal(t, interfaces.TransferCompleted, gotStatus)
	assert.Equal(t, len(buf), gotBytes)
}

func TestSyntheticMarkerAdvancesEveryTick(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	n := constants.SamplesPerCounterTick + 1
	buf := make([]byte, n*2)

	var wg sync.WaitGroup
	wg.Add(1)
	_, err := ep.Submit(buf, func(status interfaces.TransferStatus, bytes int) { wg.Done() })
	require.NoError(t, err)
	wg.Wait()

	samples := wire.DecodeSamplesLE(buf)
	assert.Equal(t, samples[0].Marker(), samples[constants.SamplesPerCounterTick-1].Marker())
	assert.NotEqual(t, samples[0].Marker(), samples[constants.SamplesPerCounterTick].Marker())
}

func TestSyntheticInjectedSequenceErrorFlipsMarkerBit(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	ep.InjectSequenceErrorAtSample = 3
	buf := make([]byte, 10*2)

	var wg sync.WaitGroup
	wg.Add(1)
	_, err := ep.Submit(buf, func(status interfaces.TransferStatus, bytes int) { wg.Done() })
	require.NoError(t, err)
	wg.Wait()

	samples := wire.DecodeSamplesLE(buf)
	assert.NotEqual(t, samples[2].Marker(), samples[3].Marker())
}

func TestSyntheticTestPatternWrapsAtConfiguredPoint(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	ep.SequenceEnabled = false
	ep.TestPatternEnabled = true
	ep.WrapPoint = 1021
	buf := make([]byte, 1025*2)

	var wg sync.WaitGroup
	wg.Add(1)
	_, err := ep.Submit(buf, func(status interfaces.TransferStatus, bytes int) { wg.Done() })
	require.NoError(t, err)
	wg.Wait()

	samples := wire.DecodeSamplesLE(buf)
	assert.Equal(t, uint16(1020), samples[1020].Value())
	assert.Equal(t, uint16(0), samples[1021].Value())
}

func TestSyntheticCompletionDelayDelaysCallback(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	ep.CompletionDelay = func(idx int) time.Duration {
		if idx == 2 {
			return 30 * time.Millisecond
		}
		return 0
	}
	buf1 := make([]byte, 16)
	buf2 := make([]byte, 16)

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)
	_, err := ep.Submit(buf1, func(status interfaces.TransferStatus, bytes int) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		wg.Done()
	})
	require.NoError(t, err)
	_, err = ep.Submit(buf2, func(status interfaces.TransferStatus, bytes int) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		wg.Done()
	})
	require.NoError(t, err)
	wg.Wait()

	require.Len(t, order, 2)
	assert.Equal(t, 1, order[0])
}

func TestSyntheticCloseRejectsFurtherSubmits(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	require.NoError(t, ep.Close())
	_, err := ep.Submit(make([]byte, 16), func(status interfaces.TransferStatus, bytes int) {})
	assert.Error(t, err)
}

func TestSyntheticQueryStatusReflectsLastConfigure(t *testing.T) {
	ep := NewSynthetic(1024, 0)
	require.NoError(t, ep.SendVendorCommand(context.Background(), constants.VendorRequestConfigure, constants.ConfigureTestPattern))
	bits, err := ep.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(constants.ConfigureTestPattern), bits)
}
