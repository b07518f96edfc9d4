package memory

import (
	"testing"

	"github.com/dbasic-io/dbasic/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundUp(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {1, 4}, {3, 4}, {4, 4}, {5, 8}, {17, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundUp(tt.in), "RoundUp(%d)", tt.in)
	}
}

func TestNewPoolLayout(t *testing.T) {
	p, err := NewPool(1024, 256)
	require.Nil(t, err)
	assert.Equal(t, 1024, p.Size())
	assert.Equal(t, 256, p.ImageSize())
	assert.Equal(t, 768, p.Heap().Available())
	assert.Len(t, p.Bytes(), 1024)

	_, err = NewPool(128, 256)
	require.NotNil(t, err)
	_, err = NewPool(128, 0)
	require.NotNil(t, err)
}

func TestHeapAllocate(t *testing.T) {
	p, err := NewPool(64, 32)
	require.Nil(t, err)
	h := p.Heap()

	a, err := h.Allocate(5)
	require.Nil(t, err)
	assert.Equal(t, Addr(32), a)
	b, err := h.Allocate(4)
	require.Nil(t, err)
	assert.Equal(t, Addr(40), b)
	assert.Equal(t, 12, h.Used())
	assert.Equal(t, 20, h.Available())
}

func TestHeapExhaustion(t *testing.T) {
	p, err := NewPool(64, 32)
	require.Nil(t, err)
	h := p.Heap()

	_, err = h.Allocate(16)
	require.Nil(t, err)
	used := h.Used()

	_, err = h.Allocate(17)
	require.NotNil(t, err)
	assert.True(t, errors.IsKind(err, errors.Resource))
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, used, h.Used(), "a failed allocation must not move the heap")

	// The remaining space is still usable.
	_, err = h.Allocate(16)
	require.Nil(t, err)
	assert.Equal(t, 0, h.Available())
}

func TestHeapExhaustionLeavesImageIntact(t *testing.T) {
	p, err := NewPool(64, 32)
	require.Nil(t, err)
	buf := p.Bytes()
	for i := 0; i < 32; i++ {
		buf[i] = byte(i)
	}
	_, err = p.Heap().Allocate(1000)
	require.NotNil(t, err)
	for i := 0; i < 32; i++ {
		require.Equal(t, byte(i), buf[i])
	}
}

func TestHeapReset(t *testing.T) {
	p, err := NewPool(64, 32)
	require.Nil(t, err)
	h := p.Heap()
	_, err = h.Allocate(32)
	require.Nil(t, err)
	gen := h.Generation()

	h.Reset()
	assert.Equal(t, 0, h.Used())
	assert.Equal(t, gen+1, h.Generation())
	a, err := h.Allocate(4)
	require.Nil(t, err)
	assert.Equal(t, Addr(32), a)
}

type node struct {
	name  string
	value int
}

func TestSlab(t *testing.T) {
	p, err := NewPool(256, 32)
	require.Nil(t, err)
	s := NewSlab[node](p.Heap())

	h1, err := s.New(node{name: "a", value: 1}, 12)
	require.Nil(t, err)
	h2, err := s.New(node{name: "b", value: 2}, 12)
	require.Nil(t, err)

	assert.Equal(t, "a", s.Get(h1).name)
	assert.Equal(t, 2, s.Get(h2).value)
	s.Get(h1).value = 10
	assert.Equal(t, 10, s.Get(h1).value)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 24, p.Heap().Used())
}

func TestSlabStaleHandle(t *testing.T) {
	p, err := NewPool(256, 32)
	require.Nil(t, err)
	s := NewSlab[node](p.Heap())

	h, err := s.New(node{name: "a"}, 8)
	require.Nil(t, err)
	p.Heap().Reset()

	assert.Panics(t, func() { s.Get(h) })
	assert.Panics(t, func() { s.Get(Nil) })
	assert.Equal(t, 0, s.Len())

	fresh, err := s.New(node{name: "b"}, 8)
	require.Nil(t, err)
	assert.Equal(t, "b", s.Get(fresh).name)
	assert.Panics(t, func() { s.Get(h) })
}

func TestSlabExhaustion(t *testing.T) {
	p, err := NewPool(48, 32)
	require.Nil(t, err)
	s := NewSlab[node](p.Heap())

	_, err = s.New(node{}, 16)
	require.Nil(t, err)
	h, err := s.New(node{}, 4)
	require.NotNil(t, err)
	assert.True(t, h.IsNil())
	assert.Equal(t, 1, s.Len())
}
