package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithInput sets the source read by the getchar trap. The default is an
// empty input.
func WithInput(r io.Reader) Option {
	return func(vm *VirtualMachine) {
		vm.input = r
	}
}

// WithOutput sets the destination of the print and putchar traps. The
// default discards output.
func WithOutput(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.output = w
	}
}

// WithContextCheckInterval sets how often the VM checks the context during
// execution, in number of instructions. A value of 0 disables checking.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithStackDepth sets the capacity of the value stack in cells.
func WithStackDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		vm.stack = make([]int32, depth)
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithLogger sets the logger that receives a debug event per run.
func WithLogger(log zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.log = log
	}
}
