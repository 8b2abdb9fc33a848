//go:build usb

// Package endpoint's USB-backed implementation is gated behind the "usb"
// build tag since it requires cgo and a local libusb install; the default
// build uses Synthetic only.
package endpoint

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
)

// ErrNotConnected is returned by operations attempted before Connect.
var ErrNotConnected = errors.New("endpoint: usb device not connected")

// USB is the real-hardware Endpoint: a single bulk-IN endpoint claimed on
// a USB device, plus the vendor control transfers the capture controller
// issues out of band. One USB value is never shared with Synthetic; the
// two implementations share only the Endpoint interface, per the
// redesign that keeps the simulated and real data paths independent.
type USB struct {
	vid, pid           gousb.ID
	ifaceNum, altNum   int
	epInNum, epOutNum  int

	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	epIn *gousb.InEndpoint

	mu      sync.Mutex
	next    uint64
	cancels map[interfaces.TransferHandle]context.CancelFunc
	closed  bool
}

// NewUSB returns a USB endpoint that will open the device at vid:pid and
// claim ifaceNum/altNum's epInNum bulk-IN endpoint on Connect.
func NewUSB(vid, pid gousb.ID, ifaceNum, altNum, epInNum int) *USB {
	return &USB{
		vid:      vid,
		pid:      pid,
		ifaceNum: ifaceNum,
		altNum:   altNum,
		epInNum:  epInNum,
		cancels:  make(map[interfaces.TransferHandle]context.CancelFunc),
	}
}

// Connect opens the device, claims its configuration and interface, and
// resolves the capture bulk-IN endpoint. preferredDevicePath is unused;
// device identity is by VID:PID, matching gousb's enumeration model.
func (u *USB) Connect(ctx context.Context, preferredDevicePath string) (int, int, error) {
	u.ctx = gousb.NewContext()

	dev, err := u.ctx.OpenDeviceWithVIDPID(u.vid, u.pid)
	if err != nil {
		u.ctx.Close()
		return 0, 0, fmt.Errorf("endpoint: open device %s:%s: %w", u.vid, u.pid, err)
	}
	if dev == nil {
		u.ctx.Close()
		return 0, 0, fmt.Errorf("endpoint: device %s:%s not found", u.vid, u.pid)
	}
	_ = dev.SetAutoDetach(true)

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		u.ctx.Close()
		return 0, 0, fmt.Errorf("endpoint: set config: %w", err)
	}
	intf, err := cfg.Interface(u.ifaceNum, u.altNum)
	if err != nil {
		cfg.Close()
		dev.Close()
		u.ctx.Close()
		return 0, 0, fmt.Errorf("endpoint: claim interface: %w", err)
	}
	epIn, err := intf.InEndpoint(u.epInNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		u.ctx.Close()
		return 0, 0, fmt.Errorf("endpoint: open bulk-in endpoint: %w", err)
	}

	u.dev, u.cfg, u.intf, u.epIn = dev, cfg, intf, epIn
	return epIn.Desc.MaxPacketSize, 0, nil
}

// Submit performs a blocking bulk-IN read on its own goroutine so the
// caller sees the same async submit/complete shape Synthetic presents.
// A short read is always reported as failed, never silently accepted.
func (u *USB) Submit(buf []byte, onComplete interfaces.CompletionFunc) (interfaces.TransferHandle, error) {
	u.mu.Lock()
	if u.closed || u.epIn == nil {
		u.mu.Unlock()
		return 0, ErrNotConnected
	}
	u.next++
	handle := interfaces.TransferHandle(u.next)
	cctx, cancel := context.WithCancel(context.Background())
	u.cancels[handle] = cancel
	u.mu.Unlock()

	go func() {
		n, err := u.epIn.ReadContext(cctx, buf)

		u.mu.Lock()
		delete(u.cancels, handle)
		u.mu.Unlock()

		switch {
		case errors.Is(err, context.Canceled):
			onComplete(interfaces.TransferCancelled, n)
		case err != nil:
			onComplete(interfaces.TransferFailed, n)
		case n != len(buf):
			onComplete(interfaces.TransferFailed, n)
		default:
			onComplete(interfaces.TransferCompleted, n)
		}
	}()
	return handle, nil
}

// Cancel aborts the in-flight read for handle, if any; its completion
// still fires, as TransferCancelled.
func (u *USB) Cancel(handle interfaces.TransferHandle) error {
	u.mu.Lock()
	cancel, ok := u.cancels[handle]
	u.mu.Unlock()
	if !ok {
		return nil
	}
	cancel()
	return nil
}

// Drain is a no-op; completions dispatch on their own goroutine.
func (u *USB) Drain(timeout int64) error {
	return nil
}

// SendVendorCommand issues a vendor, device-recipient, host-to-device
// control transfer with no data stage.
func (u *USB) SendVendorCommand(ctx context.Context, requestCode uint8, value uint16) error {
	if u.dev == nil {
		return ErrNotConnected
	}
	_, err := u.dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice, requestCode, value, 0, nil)
	if err != nil {
		return fmt.Errorf("endpoint: vendor command 0x%02x: %w", requestCode, err)
	}
	return nil
}

// QueryStatus issues the 0xB7 vendor, device-recipient, device-to-host
// control transfer and decodes the 2-byte little-endian bitfield it
// returns.
func (u *USB) QueryStatus(ctx context.Context) (uint16, error) {
	if u.dev == nil {
		return 0, ErrNotConnected
	}
	data := make([]byte, 2)
	n, err := u.dev.Control(gousb.ControlIn|gousb.ControlVendor|gousb.ControlDevice, constants.VendorRequestStatus, 0, 0, data)
	if err != nil {
		return 0, fmt.Errorf("endpoint: query status: %w", err)
	}
	if n < 2 {
		return 0, fmt.Errorf("endpoint: short status read: %d bytes", n)
	}
	return binary.LittleEndian.Uint16(data), nil
}

// Close releases the interface, configuration, device, and context, in
// that order, cancelling any outstanding reads first.
func (u *USB) Close() error {
	u.mu.Lock()
	u.closed = true
	cancels := u.cancels
	u.cancels = make(map[interfaces.TransferHandle]context.CancelFunc)
	u.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if u.intf != nil {
		u.intf.Close()
	}
	if u.cfg != nil {
		u.cfg.Close()
	}
	if u.dev != nil {
		u.dev.Close()
	}
	if u.ctx != nil {
		u.ctx.Close()
	}
	return nil
}

var _ interfaces.Endpoint = (*USB)(nil)
