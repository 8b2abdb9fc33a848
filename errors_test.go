package rfcapture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesStageAndOp(t *testing.T) {
	err := NewError("connect", "controller", ConnectionFailure, "device not found")
	assert.Contains(t, err.Error(), "controller")
	assert.Contains(t, err.Error(), "connect")
	assert.Contains(t, err.Error(), "device not found")
}

func TestWrapErrorPreservesInner(t *testing.T) {
	inner := errors.New("usb stall")
	err := WrapError("submit", "transfer", UsbTransferFailure, inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestWrapErrorNilInnerReturnsNil(t *testing.T) {
	assert.Nil(t, WrapError("submit", "transfer", UsbTransferFailure, nil))
}

func TestIsCodeMatchesLatchedCode(t *testing.T) {
	err := NewError("start", "controller", UsbMemoryLimit, "queue too small")
	assert.True(t, IsCode(err, UsbMemoryLimit))
	assert.False(t, IsCode(err, ConnectionFailure))
}

func TestErrorIsComparesByCode(t *testing.T) {
	a := NewError("submit", "transfer", SequenceMismatch, "")
	b := NewError("processBuffer", "processing", SequenceMismatch, "different op, same code")
	assert.True(t, errors.Is(a, b))
}
