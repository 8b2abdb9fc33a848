package vendorctl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
)

type fakeEndpoint struct {
	lastRequestCode uint8
	lastValue       uint16
	sendErr         error
	statusBits      uint16
	statusErr       error
}

func (f *fakeEndpoint) Connect(ctx context.Context, preferredDevicePath string) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeEndpoint) Submit(buf []byte, onComplete interfaces.CompletionFunc) (interfaces.TransferHandle, error) {
	return 0, nil
}
func (f *fakeEndpoint) Cancel(handle interfaces.TransferHandle) error { return nil }
func (f *fakeEndpoint) Drain(timeout int64) error                    { return nil }
func (f *fakeEndpoint) SendVendorCommand(ctx context.Context, requestCode uint8, value uint16) error {
	f.lastRequestCode = requestCode
	f.lastValue = value
	return f.sendErr
}
func (f *fakeEndpoint) QueryStatus(ctx context.Context) (uint16, error) {
	return f.statusBits, f.statusErr
}
func (f *fakeEndpoint) Close() error { return nil }

var _ interfaces.Endpoint = (*fakeEndpoint)(nil)

func TestChannelStartAndStopCollection(t *testing.T) {
	ep := &fakeEndpoint{}
	ch := NewChannel(ep)

	require.NoError(t, ch.StartCollection(context.Background()))
	assert.Equal(t, uint8(constants.VendorRequestCollection), ep.lastRequestCode)
	assert.Equal(t, uint16(1), ep.lastValue)

	require.NoError(t, ch.StopCollection(context.Background()))
	assert.Equal(t, uint8(constants.VendorRequestCollection), ep.lastRequestCode)
	assert.Equal(t, uint16(0), ep.lastValue)
}

func TestChannelConfigureEncodesBitfield(t *testing.T) {
	ep := &fakeEndpoint{}
	ch := NewChannel(ep)

	require.NoError(t, ch.Configure(context.Background(), Configuration{TestPattern: true, DCOffset: true}))
	assert.Equal(t, uint8(constants.VendorRequestConfigure), ep.lastRequestCode)
	assert.Equal(t, uint16(constants.ConfigureTestPattern|constants.ConfigureDCOffset), ep.lastValue)
}

func TestChannelQueryStatusDecodesBitfield(t *testing.T) {
	ep := &fakeEndpoint{statusBits: constants.ConfigurePAL}
	ch := NewChannel(ep)

	cfg, err := ch.QueryStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Configuration{PAL: true}, cfg)
}

func TestChannelPropagatesEndpointErrors(t *testing.T) {
	ep := &fakeEndpoint{sendErr: errors.New("usb stall"), statusErr: errors.New("usb stall")}
	ch := NewChannel(ep)

	assert.Error(t, ch.StartCollection(context.Background()))
	_, err := ch.QueryStatus(context.Background())
	assert.Error(t, err)
}
