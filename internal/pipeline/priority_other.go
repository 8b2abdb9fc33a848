//go:build !linux

package pipeline

import "rfcapture/internal/interfaces"

// PriorityGuard is a no-op on platforms without a realtime priority API
// wired up here.
type PriorityGuard struct{}

// ElevatePriority is a no-op outside Linux; it logs and returns an inert
// guard so callers never need a platform switch of their own.
func ElevatePriority(logger interfaces.Logger) *PriorityGuard {
	logger.Printf("priority: elevation not implemented on this platform")
	return &PriorityGuard{}
}

// Release is a no-op.
func (g *PriorityGuard) Release() {}
