package rfcapture

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyStartParams(t *testing.T, ep *MockEndpoint) StartParams {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "capture-*.bin")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())

	p := DefaultStartParams(ep)
	p.FilePath = path
	p.DiskQueueBytes = 3 * 2048 // exactly MinDiskBufferCount buffers
	p.UsbQueueBytes = 2 * 2048
	return p
}

func TestControllerStartRejectsMissingEndpoint(t *testing.T) {
	c := NewController()
	err := c.Start(context.Background(), StartParams{FilePath: "unused"})
	assert.Error(t, err)
	assert.False(t, c.IsRunning())
}

func TestControllerStartRejectsDoubleStart(t *testing.T) {
	ep := NewMockEndpoint(512, 2048)
	ep.SubmitErr = assert.AnError // keep the worker from spinning
	c := NewController()
	require.NoError(t, c.Start(context.Background(), tinyStartParams(t, ep)))

	err := c.Start(context.Background(), tinyStartParams(t, ep))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	_, _ = c.Stop(context.Background())
}

func TestControllerStopRejectsWhenNotRunning(t *testing.T) {
	c := NewController()
	_, err := c.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestControllerLatchesFirstWorkerFailure(t *testing.T) {
	ep := NewMockEndpoint(512, 2048)
	ep.SubmitErr = assert.AnError
	c := NewController()
	require.NoError(t, c.Start(context.Background(), tinyStartParams(t, ep)))

	result, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UsbTransferFailure, result)
	assert.False(t, c.IsRunning())
}

func TestControllerCooperativeStopReachesSuccess(t *testing.T) {
	ep := NewMockEndpoint(512, 2048)
	c := NewController()
	require.NoError(t, c.Start(context.Background(), tinyStartParams(t, ep)))

	result, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, result)
}

func TestControllerQueueSampleWithoutCaptureErrors(t *testing.T) {
	c := NewController()
	assert.Error(t, c.QueueSample(16))
	_, ok := c.PollSample()
	assert.False(t, ok)
}
