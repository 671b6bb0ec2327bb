package mutate

import "sync"

// Scratch buffer size tiers for mutation working copies, adapted from
// ehrlich-b-go-ublk's internal/queue BufferPool: size-bucketed sync.Pool
// buckets sized for fuzz inputs (a handful of KB) rather than block-device
// I/O (hundreds of KB to 1MB).
const (
	size4k  = 4 * 1024
	size16k = 16 * 1024
	size64k = 64 * 1024
)

var globalPool = struct {
	pool4k  sync.Pool
	pool16k sync.Pool
	pool64k sync.Pool
}{
	pool4k:  sync.Pool{New: func() any { b := make([]byte, size4k); return &b }},
	pool16k: sync.Pool{New: func() any { b := make([]byte, size16k); return &b }},
	pool64k: sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
}

// GetScratch returns a pooled buffer of at least the requested size. Inputs
// larger than the largest tier fall back to a fresh, unpooled allocation.
// Callers must call PutScratch when done, unless the buffer came from the
// unpooled fallback.
func GetScratch(size int) []byte {
	switch {
	case size <= size4k:
		return (*globalPool.pool4k.Get().(*[]byte))[:size]
	case size <= size16k:
		return (*globalPool.pool16k.Get().(*[]byte))[:size]
	case size <= size64k:
		return (*globalPool.pool64k.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// PutScratch returns buf to the pool matching its capacity. A buffer whose
// capacity does not match a known tier (the unpooled fallback case) is
// silently dropped.
func PutScratch(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size4k:
		globalPool.pool4k.Put(&buf)
	case size16k:
		globalPool.pool16k.Put(&buf)
	case size64k:
		globalPool.pool64k.Put(&buf)
	}
}
