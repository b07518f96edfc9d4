package memory

import "fmt"

// Handle refers to a value stored in a Slab. A handle is only valid until the
// heap backing the slab is reset.
type Handle struct {
	index int32
	gen   uint32
}

// Nil is the zero handle and never refers to a value.
var Nil = Handle{index: -1}

// IsNil reports whether the handle is the nil handle.
func (h Handle) IsNil() bool {
	return h.index < 0
}

// Slab stores values of one type whose storage is charged to a Heap. The
// values live in a Go slice; the heap only accounts for the bytes they would
// occupy on the target, so exhaustion behaves as it would in the pool.
type Slab[T any] struct {
	heap  *Heap
	gen   uint32
	items []*T
}

// NewSlab returns a slab backed by the given heap.
func NewSlab[T any](heap *Heap) *Slab[T] {
	return &Slab[T]{heap: heap, gen: heap.Generation()}
}

func (s *Slab[T]) sync() {
	if s.gen != s.heap.Generation() {
		s.items = s.items[:0]
		s.gen = s.heap.Generation()
	}
}

// New charges size bytes to the heap and stores v.
func (s *Slab[T]) New(v T, size int) (Handle, error) {
	s.sync()
	if _, err := s.heap.Allocate(size); err != nil {
		return Nil, err
	}
	s.items = append(s.items, &v)
	return Handle{index: int32(len(s.items) - 1), gen: s.gen}, nil
}

// Get returns a pointer to the value for h. It panics on a nil handle or one
// issued before the last heap reset.
func (s *Slab[T]) Get(h Handle) *T {
	if h.IsNil() {
		panic("memory: nil handle")
	}
	if h.gen != s.heap.Generation() || int(h.index) >= len(s.items) {
		panic(fmt.Sprintf("memory: stale handle (generation %d, current %d)", h.gen, s.heap.Generation()))
	}
	return s.items[h.index]
}

// Len returns the number of live values.
func (s *Slab[T]) Len() int {
	s.sync()
	return len(s.items)
}
