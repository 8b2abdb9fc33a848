//go:build !linux

package pipeline

import "rfcapture/internal/interfaces"

// MemoryPinGuard is a no-op on platforms without mlock wired up here.
type MemoryPinGuard struct{}

// PinMemory is a no-op outside Linux.
func PinMemory(logger interfaces.Logger, regions ...[]byte) *MemoryPinGuard {
	logger.Printf("pin: memory pinning not implemented on this platform")
	return &MemoryPinGuard{}
}

// Release is a no-op.
func (g *MemoryPinGuard) Release() {}
