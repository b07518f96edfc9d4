package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
)

// Observer receives VM execution events. Returning false from any method
// stops execution.
//
// Observer methods are called synchronously during execution, so
// implementations should be fast.
type Observer interface {
	// OnStep is called before each instruction executes.
	OnStep(addr memory.Addr, code op.Code, depth int) bool

	// OnCall is called after a frame is pushed for a call.
	OnCall(target memory.Addr, argc int, depth int) bool

	// OnReturn is called after a frame is popped.
	OnReturn(value int32, depth int) bool
}

// NoOpObserver implements Observer with methods that do nothing. Embed it to
// implement only some of the methods.
type NoOpObserver struct{}

func (NoOpObserver) OnStep(memory.Addr, op.Code, int) bool {
	return true
}

func (NoOpObserver) OnCall(memory.Addr, int, int) bool {
	return true
}

func (NoOpObserver) OnReturn(int32, int) bool {
	return true
}

// Tracer is an Observer that writes one line per event.
type Tracer struct {
	w io.Writer
	// Limit stops execution after this many steps. Zero means no limit.
	Limit int
	steps int
}

func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

func (t *Tracer) OnStep(addr memory.Addr, code op.Code, depth int) bool {
	t.steps++
	fmt.Fprintf(t.w, "%s%6d %s\n", strings.Repeat("  ", depth), addr, op.GetInfo(code).Name)
	return t.Limit == 0 || t.steps < t.Limit
}

func (t *Tracer) OnCall(target memory.Addr, argc int, depth int) bool {
	fmt.Fprintf(t.w, "%scall %d (%d args)\n", strings.Repeat("  ", depth-1), target, argc)
	return true
}

func (t *Tracer) OnReturn(value int32, depth int) bool {
	fmt.Fprintf(t.w, "%sreturn %d\n", strings.Repeat("  ", depth), value)
	return true
}

// Steps returns the number of instructions observed.
func (t *Tracer) Steps() int {
	return t.steps
}
