// Package memory implements the fixed byte pool the compiler works in.
//
// A Pool is a single buffer split in two. The low part is the image region,
// handed to package image, where code grows up and global data grows down.
// The high part is the scratch heap: a bump allocator for per-unit compiler
// structures that is reset wholesale when a unit is finished.
package memory

import (
	"fmt"

	"github.com/dbasic-io/dbasic/errors"
)

// Align is the platform alignment unit. Every allocation size is rounded up
// to a multiple of it.
const Align = 4

// Addr is a byte offset into a Pool. Zero is never a valid allocation.
type Addr uint32

// RoundUp rounds size up to the alignment unit.
func RoundUp(size int) int {
	return (size + Align - 1) &^ (Align - 1)
}

// Pool is the fixed byte buffer shared by the image and the scratch heap.
type Pool struct {
	buf       []byte
	imageSize int
	heap      *Heap
}

// NewPool allocates a pool of the given total size whose first imageSize
// bytes form the image region.
func NewPool(size, imageSize int) (*Pool, error) {
	size = size &^ (Align - 1)
	imageSize = RoundUp(imageSize)
	if imageSize <= Align || imageSize > size {
		return nil, fmt.Errorf("invalid pool layout: size %d, image size %d", size, imageSize)
	}
	p := &Pool{
		buf:       make([]byte, size),
		imageSize: imageSize,
	}
	p.heap = &Heap{
		base: Addr(imageSize),
		free: Addr(imageSize),
		top:  Addr(size),
	}
	return p, nil
}

// Bytes returns the whole pool buffer. The execution engine addresses memory
// through it.
func (p *Pool) Bytes() []byte {
	return p.buf
}

// Size returns the total size of the pool.
func (p *Pool) Size() int {
	return len(p.buf)
}

// ImageSize returns the size of the image region.
func (p *Pool) ImageSize() int {
	return p.imageSize
}

// Heap returns the scratch heap allocator.
func (p *Pool) Heap() *Heap {
	return p.heap
}

// Heap is a bump allocator over the scratch part of a pool.
type Heap struct {
	base Addr
	free Addr
	top  Addr
	gen  uint32
}

// Allocate reserves size bytes and returns the address of the block. On
// exhaustion it returns a resource error and leaves the heap unchanged.
func (h *Heap) Allocate(size int) (Addr, error) {
	if size < 0 {
		return 0, fmt.Errorf("invalid allocation size %d", size)
	}
	size = RoundUp(size)
	if int(h.top)-int(h.free) < size {
		return 0, errors.OutOfMemory("heap")
	}
	addr := h.free
	h.free += Addr(size)
	return addr, nil
}

// Reset releases every allocation at once and invalidates outstanding
// handles.
func (h *Heap) Reset() {
	h.free = h.base
	h.gen++
}

// Used returns the number of bytes currently allocated.
func (h *Heap) Used() int {
	return int(h.free - h.base)
}

// Available returns the number of bytes left.
func (h *Heap) Available() int {
	return int(h.top - h.free)
}

// Generation returns the current reset generation.
func (h *Heap) Generation() uint32 {
	return h.gen
}
