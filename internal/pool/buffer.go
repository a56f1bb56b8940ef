package pool

import (
	"sync"
)

// StreamBufferSize is the size of buffers used for sequential reads (64KB).
const StreamBufferSize = 64 * 1024

// BufferPool manages reusable buffers of one fixed capacity.
type BufferPool struct {
	size int
	pool *sync.Pool
}

// NewBufferPool creates a pool handing out buffers with capacity size.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = StreamBufferSize
	}
	return &BufferPool{
		size: size,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// Size returns the capacity of the buffers in the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a buffer of length n from the pool.
// Requests larger than the pool size get a fresh buffer that is not pooled.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get(n int) []byte {
	if n > bp.size {
		return make([]byte, n)
	}
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:n]
}

// Put returns a buffer to the pool.
// The buffer should not be used after calling Put.
func (bp *BufferPool) Put(buf []byte) {
	// Foreign and oversized buffers are dropped
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:cap(buf)]
	bp.pool.Put(&buf)
}

// Global stream buffer pool instance for use throughout the module.
var streamPool = NewBufferPool(StreamBufferSize)

// GetStreamBuffer returns a StreamBufferSize buffer from the global pool.
func GetStreamBuffer() []byte {
	return streamPool.Get(StreamBufferSize)
}

// PutStreamBuffer returns a stream buffer to the global pool.
func PutStreamBuffer(buf []byte) {
	streamPool.Put(buf)
}
