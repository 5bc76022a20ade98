package server

import "sync"

const (
	smallBufferSize  = 4096
	mediumBufferSize = 8192
	largeBufferSize  = 32768
)

// BufferPool hands out read scratch buffers. A connection borrows one
// for a single read call and returns it before the handler exits.
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

func newSizedPool(size int) sync.Pool {
	return sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// NewBufferPool creates a pool with 4KB, 8KB and 32KB tiers.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  newSizedPool(smallBufferSize),
		medium: newSizedPool(mediumBufferSize),
		large:  newSizedPool(largeBufferSize),
	}
}

var globalBufferPool = NewBufferPool()

// Get returns a buffer of exactly size bytes.
func (p *BufferPool) Get(size int) []byte {
	switch {
	case size <= smallBufferSize:
		buf := p.small.Get().(*[]byte)
		return (*buf)[:size]
	case size <= mediumBufferSize:
		buf := p.medium.Get().(*[]byte)
		return (*buf)[:size]
	case size <= largeBufferSize:
		buf := p.large.Get().(*[]byte)
		return (*buf)[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer obtained from Get. Buffers of other capacities
// are left to the GC.
func (p *BufferPool) Put(buf []byte) {
	switch cap(buf) {
	case smallBufferSize:
		full := buf[:smallBufferSize]
		p.small.Put(&full)
	case mediumBufferSize:
		full := buf[:mediumBufferSize]
		p.medium.Put(&full)
	case largeBufferSize:
		full := buf[:largeBufferSize]
		p.large.Put(&full)
	}
}
