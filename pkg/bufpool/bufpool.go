// Package bufpool provides size-bucketed byte-slice pooling for the format
// decoders in pkg/formats/*, which repeatedly read fixed and variable-length
// scratch buffers (Avro block payloads, whole length-delimited Protobuf
// messages) off a ByteSource.
package bufpool

import "sync"

// Pool is a generic, type-safe wrapper over sync.Pool.
type Pool[T any] struct {
	pool sync.Pool
}

// New builds a Pool whose sync.Pool.New calls newFn.
func New[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{pool: sync.Pool{New: func() interface{} { return newFn() }}}
}

// Get retrieves an item from the pool, allocating one via newFn if empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns obj to the pool.
func (p *Pool[T]) Put(obj T) {
	p.pool.Put(obj)
}

var sizes = []int{512, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}

var pools = func() []*Pool[[]byte] {
	ps := make([]*Pool[[]byte], len(sizes))
	for i, size := range sizes {
		size := size
		ps[i] = New(func() []byte { return make([]byte, size) })
	}
	return ps
}()

// Get returns a buffer of length size, drawn from the smallest bucket that
// fits. Requests larger than the largest bucket (4MiB) allocate directly:
// column-shredding scratch reads rarely exceed a single Avro block or
// Protobuf message, so pooling every possible size is unnecessary.
func Get(size int) []byte {
	for i, s := range sizes {
		if s >= size {
			return pools[i].Get()[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its size bucket. A buffer whose capacity doesn't match
// any bucket exactly (e.g. one allocated directly by Get for an oversized
// request) is simply dropped for the garbage collector to reclaim.
func Put(buf []byte) {
	c := cap(buf)
	for i, s := range sizes {
		if s == c {
			pools[i].Put(buf[:c])
			return
		}
	}
}
