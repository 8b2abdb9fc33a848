// Package interfaces holds the capability interfaces shared between the
// root package and the internal pipeline packages, kept separate to avoid
// an import cycle between them.
package interfaces

import "context"

// TransferStatus is the outcome reported to an Endpoint.submit callback.
type TransferStatus int

const (
	TransferCompleted TransferStatus = iota
	TransferCancelled
	TransferFailed
)

// CompletionFunc is invoked once per submitted transfer, on whatever
// dispatch context the Endpoint chooses (its own thread, or a goroutine
// spawned by the caller's drain loop).
type CompletionFunc func(status TransferStatus, bytesTransferred int)

// TransferHandle identifies one submitted, possibly still in-flight,
// asynchronous read.
type TransferHandle uint64

// Endpoint is the abstract bulk-IN USB endpoint the capture pipeline
// consumes. It is never implemented by the pipeline itself; see
// the endpoint package for the synthetic and real backends.
type Endpoint interface {
	// Connect acquires exclusive use of the endpoint and reports its
	// packet-size geometry. maxSingleTransferBytes is 0 when the backend
	// imposes no limit beyond the caller's own cap.
	Connect(ctx context.Context, preferredDevicePath string) (maxPacketSizeBytes int, maxSingleTransferBytes int, err error)

	// Submit schedules an asynchronous read of exactly len(buf) bytes.
	// Short reads are reported to on_complete as TransferFailed.
	Submit(buf []byte, onComplete CompletionFunc) (TransferHandle, error)

	// Cancel requests abort of a submitted transfer. Completion still
	// fires, with TransferCancelled, unless it has already completed.
	Cancel(handle TransferHandle) error

	// Drain processes pending completions for up to the given duration.
	// Implementations that dispatch completions on their own thread may
	// treat this as a no-op.
	Drain(timeout int64) error

	// SendVendorCommand issues an out-of-band control transfer carrying no
	// return payload (the 0xB5 start/stop and 0xB6 configure requests).
	SendVendorCommand(ctx context.Context, requestCode uint8, value uint16) error

	// QueryStatus issues the read-only 0xB7 control transfer and returns
	// the device's current configuration bitfield.
	QueryStatus(ctx context.Context) (uint16, error)

	// Close releases the endpoint.
	Close() error
}

// Logger is the minimal logging capability the pipeline depends on.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer receives instrumentation events from the pipeline. Implementations
// must be safe for concurrent use; methods are called from the transfer and
// processing loops.
type Observer interface {
	ObserveTransferComplete(bytes int, latencyNs int64, status TransferStatus)
	ObserveBufferWritten(bytes int, latencyNs int64, success bool)
	ObserveSample(value uint16)
}

// NoOpObserver discards every event; used when the caller does not supply
// one.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTransferComplete(int, int64, TransferStatus) {}
func (NoOpObserver) ObserveBufferWritten(int, int64, bool)              {}
func (NoOpObserver) ObserveSample(uint16)                               {}

var _ Observer = NoOpObserver{}
