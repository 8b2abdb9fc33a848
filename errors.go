package rfcapture

import (
	"errors"
	"fmt"
)

// TransferResult is the terminal (or in-progress) status of a capture,
// surfaced to the orchestrator via CaptureState and returned by Stop.
type TransferResult string

const (
	Running             TransferResult = "running"
	Success             TransferResult = "success"
	FileCreationError   TransferResult = "file_creation_error"
	BufferUnderflow     TransferResult = "buffer_underflow"
	ConnectionFailure   TransferResult = "connection_failure"
	UsbMemoryLimit      TransferResult = "usb_memory_limit"
	UsbTransferFailure  TransferResult = "usb_transfer_failure"
	FileWriteError      TransferResult = "file_write_error"
	SequenceMismatch    TransferResult = "sequence_mismatch"
	VerificationError   TransferResult = "verification_error"
	ProgramError        TransferResult = "program_error"
	ForcedAbort         TransferResult = "forced_abort"
)

// outcomeToResult maps a worker's internal pipeline.Outcome onto the public
// TransferResult it corresponds to. The two enums are kept separate so
// internal/pipeline never imports this package.
var outcomeToResult = map[string]TransferResult{
	"success":              Success,
	"usb_transfer_failure": UsbTransferFailure,
	"buffer_underflow":     BufferUnderflow,
	"sequence_mismatch":    SequenceMismatch,
	"verification_error":   VerificationError,
	"file_write_error":     FileWriteError,
	"program_error":        ProgramError,
	"forced_abort":         ForcedAbort,
}

// Error is a structured capture error with enough context to identify which
// stage failed and why, wrapping the underlying cause when there is one.
type Error struct {
	Op    string         // operation that failed ("start", "connect", "transfer", "processing")
	Stage string         // "controller", "transfer", "processing", "vendorctl"
	Code  TransferResult // high-level result this error corresponds to
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Stage != "" {
		return fmt.Sprintf("rfcapture: %s: %s (op=%s)", e.Stage, msg, e.Op)
	}
	return fmt.Sprintf("rfcapture: %s (op=%s)", msg, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison against another *Error by Code; any
// other target never matches.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// NewError builds a structured error for a given stage and result code.
func NewError(op, stage string, code TransferResult, msg string) *Error {
	return &Error{Op: op, Stage: stage, Code: code, Msg: msg}
}

// WrapError wraps inner with capture context, inferring msg from inner.
func WrapError(op, stage string, code TransferResult, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Stage: stage, Code: code, Msg: inner.Error(), Inner: inner}
}

// ErrAlreadyRunning is returned by Start when called on a controller that is
// already capturing.
var ErrAlreadyRunning = errors.New("rfcapture: capture already running")

// ErrNotRunning is returned by Stop when called on a controller that never
// started, or has already stopped.
var ErrNotRunning = errors.New("rfcapture: capture not running")

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code TransferResult) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
