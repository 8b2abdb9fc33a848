package rfcapture

import (
	"context"
	"errors"
	"sync"

	"rfcapture/internal/interfaces"
	"rfcapture/internal/pipeline"
)

// MockEndpoint is a minimal interfaces.Endpoint double for tests that need
// to control connect/submit behavior directly, without the generated
// sample stream endpoint.Synthetic produces. It tracks call counts the way
// the teacher's MockBackend tracks ReadAt/WriteAt calls.
type MockEndpoint struct {
	mu sync.Mutex

	MaxPacketSizeBytes     int
	MaxSingleTransferBytes int
	ConnectErr             error
	SubmitErr              error

	submitCalls int
	closed      bool

	statusBits uint16
}

// NewMockEndpoint returns a MockEndpoint reporting the given geometry.
func NewMockEndpoint(maxPacketSizeBytes, maxSingleTransferBytes int) *MockEndpoint {
	return &MockEndpoint{
		MaxPacketSizeBytes:     maxPacketSizeBytes,
		MaxSingleTransferBytes: maxSingleTransferBytes,
	}
}

func (m *MockEndpoint) Connect(ctx context.Context, preferredDevicePath string) (int, int, error) {
	if m.ConnectErr != nil {
		return 0, 0, m.ConnectErr
	}
	return m.MaxPacketSizeBytes, m.MaxSingleTransferBytes, nil
}

// Submit immediately completes with TransferCompleted and a full buffer,
// unless SubmitErr is set.
func (m *MockEndpoint) Submit(buf []byte, onComplete interfaces.CompletionFunc) (interfaces.TransferHandle, error) {
	m.mu.Lock()
	m.submitCalls++
	m.mu.Unlock()
	if m.SubmitErr != nil {
		return 0, m.SubmitErr
	}
	onComplete(interfaces.TransferCompleted, len(buf))
	return interfaces.TransferHandle(m.submitCalls), nil
}

func (m *MockEndpoint) Cancel(handle interfaces.TransferHandle) error { return nil }

func (m *MockEndpoint) Drain(timeout int64) error { return nil }

func (m *MockEndpoint) SendVendorCommand(ctx context.Context, requestCode uint8, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusBits = value
	return nil
}

func (m *MockEndpoint) QueryStatus(ctx context.Context) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusBits, nil
}

func (m *MockEndpoint) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SubmitCalls returns how many times Submit has been invoked.
func (m *MockEndpoint) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

// IsClosed reports whether Close has been called.
func (m *MockEndpoint) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ interfaces.Endpoint = (*MockEndpoint)(nil)

// ErrMockWriteFailed is returned by MockWriter.Submit when FailAfter writes
// have already succeeded.
var ErrMockWriteFailed = errors.New("rfcapture: mock write failed")

// MockWriter is an in-memory pipeline.Writer double: it appends every
// submitted chunk to Data (ignoring offset, since tests only ever write in
// order) and can be told to fail after a given number of successful writes.
type MockWriter struct {
	mu sync.Mutex

	Data      []byte
	FailAfter int // 0 disables; else every Submit after the first FailAfter fails

	writeCalls int
	closed     bool
}

func (w *MockWriter) Submit(data []byte, offset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeCalls++
	if w.FailAfter > 0 && w.writeCalls > w.FailAfter {
		return ErrMockWriteFailed
	}
	w.Data = append(w.Data, data...)
	return nil
}

func (w *MockWriter) Collect() error { return nil }

func (w *MockWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// WriteCalls returns how many times Submit has been invoked.
func (w *MockWriter) WriteCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeCalls
}

var _ pipeline.Writer = (*MockWriter)(nil)
