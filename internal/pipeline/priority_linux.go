//go:build linux

package pipeline

import (
	"golang.org/x/sys/unix"

	"rfcapture/internal/interfaces"
)

// PriorityGuard is a scoped, RAII-style priority elevation: the
// constructor sets the process's nice value to -20 and returns a guard
// whose Release restores the prior nice value. It does not switch to a
// realtime scheduling class. Failure to elevate is logged, never fatal.
type PriorityGuard struct {
	prevNice int
	hadPrev  bool
}

// ElevatePriority requests a higher scheduling priority for the calling
// OS thread's process, best-effort.
func ElevatePriority(logger interfaces.Logger) *PriorityGuard {
	prev, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		logger.Printf("priority: could not read current priority: %v", err)
		return &PriorityGuard{}
	}
	// Getpriority returns (20 - nice); undo that to get the real nice value.
	prevNice := 20 - prev

	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -20); err != nil {
		logger.Printf("priority: elevation failed, continuing at default priority: %v", err)
		return &PriorityGuard{}
	}
	return &PriorityGuard{prevNice: prevNice, hadPrev: true}
}

// Release restores the priority observed before elevation.
func (g *PriorityGuard) Release() {
	if !g.hadPrev {
		return
	}
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, g.prevNice)
}
