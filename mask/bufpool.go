package mask

import (
	"fmt"
	"sync"
)

// BufPool holds a set of named free lists of pixel planes so per frame
// mask extraction can recycle buffers instead of allocating at video rate
type BufPool struct {
	mu    sync.Mutex
	pools map[string]*bufEntry
}

// bufEntry defines a single plane pool
type bufEntry struct {
	pool    sync.Pool
	maxSize int
}

// NewBufPool returns an empty BufPool.
func NewBufPool() *BufPool {
	return &BufPool{
		pools: make(map[string]*bufEntry),
	}
}

// Create registers a new pool under 'name' that will produce planes
// up to maxSize pixels. Calling it twice with the same name returns an error.
func (b *BufPool) Create(name string, maxSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pools[name]; exists {
		return fmt.Errorf("buffer pool %q already exists", name)
	}

	entry := &bufEntry{maxSize: maxSize}

	entry.pool.New = func() any {
		return make([]uint8, maxSize)
	}

	b.pools[name] = entry
	return nil
}

// Get returns a []uint8 plane of length 'size' from the named pool.
// If size > maxSize, it allocates a new slice of exactly size.
// Panics if the pool name is unknown.
func (b *BufPool) Get(name string, size int) []uint8 {
	b.mu.Lock()
	entry, ok := b.pools[name]
	b.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("buffer pool %q not registered", name))
	}

	buf := entry.pool.Get().([]uint8)

	if cap(buf) < size {
		return make([]uint8, size)
	}

	// get buffer of required size
	buf = buf[:size]

	// zero out the buffer
	for i := range buf {
		buf[i] = 0
	}

	return buf
}

// Put returns a plane back into it's named pool.
// You must only call Put on a plane you previously got via Get
// with the same name.
func (b *BufPool) Put(name string, buf []uint8) {
	b.mu.Lock()
	entry, ok := b.pools[name]
	b.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("buffer pool %q not registered", name))
	}

	// restore to full capacity so it matches entry.New next time
	entry.pool.Put(buf[:entry.maxSize])
}

// GetMask wraps a pooled plane from the named pool as a Mask of the given
// dimensions. Return the underlying plane with Put once finished.
func (b *BufPool) GetMask(name string, width, height int) *Mask {
	return &Mask{
		Pix:    b.Get(name, width*height),
		Width:  width,
		Height: height,
	}
}
