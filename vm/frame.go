package vm

import "github.com/dbasic-io/dbasic/memory"

// frame is the activation record of a function call. Its slots are the
// stack cells from base up to base+slots; values pushed by the function
// live above them.
type frame struct {
	returnAddr memory.Addr
	base       int
	slots      int
}

// top returns the stack index of the last slot.
func (f *frame) top() int {
	return f.base + f.slots - 1
}
