package pipeline

import "sync"

// Scratch buffers (sample-tap snapshots; the processing worker's conversion
// buffers are allocated once and not pooled) come from size-bucketed pools
// to avoid hot-path allocation, the same
// scheme used for queue I/O buffers elsewhere in this lineage: bucket by
// power-of-2 size and hand back a pointer-to-slice to avoid sync.Pool's
// interface-boxing allocation.
const (
	size128k = 128 * 1024
	size256k = 256 * 1024
	size512k = 512 * 1024
	size2m   = 2 * 1024 * 1024
)

var scratchPool = struct {
	pool128k sync.Pool
	pool256k sync.Pool
	pool512k sync.Pool
	pool2m   sync.Pool
}{
	pool128k: sync.Pool{New: func() any { b := make([]byte, size128k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool512k: sync.Pool{New: func() any { b := make([]byte, size512k); return &b }},
	pool2m:   sync.Pool{New: func() any { b := make([]byte, size2m); return &b }},
}

// GetScratch returns a pooled buffer of at least the requested size.
// Callers that need an exact-size allocation (e.g. a pinned disk buffer)
// should not use this pool.
func GetScratch(size int) []byte {
	switch {
	case size <= size128k:
		return (*scratchPool.pool128k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*scratchPool.pool256k.Get().(*[]byte))[:size]
	case size <= size512k:
		return (*scratchPool.pool512k.Get().(*[]byte))[:size]
	default:
		return (*scratchPool.pool2m.Get().(*[]byte))[:size]
	}
}

// PutScratch returns a buffer obtained from GetScratch to its pool.
func PutScratch(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size128k:
		scratchPool.pool128k.Put(&buf)
	case size256k:
		scratchPool.pool256k.Put(&buf)
	case size512k:
		scratchPool.pool512k.Put(&buf)
	case size2m:
		scratchPool.pool2m.Put(&buf)
	}
}
