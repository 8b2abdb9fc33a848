//go:build linux

package pipeline

import (
	"golang.org/x/sys/unix"

	"rfcapture/internal/interfaces"
)

// MemoryPinGuard is a scoped physical-memory pin: the constructor pins
// every non-empty region it is given and returns a guard whose Release
// unpins them. A region that fails to pin is logged and skipped, never
// fatal.
type MemoryPinGuard struct {
	regions [][]byte
	logger  interfaces.Logger
}

// PinMemory locks each region into physical memory for the lifetime of the
// capture.
func PinMemory(logger interfaces.Logger, regions ...[]byte) *MemoryPinGuard {
	g := &MemoryPinGuard{logger: logger}
	for _, r := range regions {
		if len(r) == 0 {
			continue
		}
		if err := unix.Mlock(r); err != nil {
			logger.Printf("pin: mlock failed, continuing unpinned: %v", err)
			continue
		}
		g.regions = append(g.regions, r)
	}
	return g
}

// Release unpins every region this guard successfully pinned.
func (g *MemoryPinGuard) Release() {
	for _, r := range g.regions {
		if err := unix.Munlock(r); err != nil {
			g.logger.Printf("pin: munlock failed: %v", err)
		}
	}
	g.regions = nil
}
