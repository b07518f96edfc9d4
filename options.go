package dbasic

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/dbasic-io/dbasic/compiler"
	"github.com/dbasic-io/dbasic/vm"
)

const (
	// DefaultPoolSize is the size of a session's memory pool in bytes.
	DefaultPoolSize = 64 * 1024

	// DefaultImageSize is the part of the pool given to the image. The rest
	// is the compiler's scratch heap.
	DefaultImageSize = 48 * 1024
)

// Option configures a Session.
type Option func(*options)

type options struct {
	poolSize  int
	imageSize int
	filename  string
	input     io.Reader
	output    io.Writer
	listing   io.Writer
	logger    *zerolog.Logger
	registers []compiler.Register
	observer  vm.Observer
	recover   func(error)
}

func collectOptions(opts ...Option) *options {
	o := &options{
		poolSize:  DefaultPoolSize,
		imageSize: DefaultImageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) compilerConfig() *compiler.Config {
	return &compiler.Config{
		Filename:  o.filename,
		Logger:    o.logger,
		Registers: o.registers,
		Listing:   o.listing,
	}
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.input != nil {
		opts = append(opts, vm.WithInput(o.input))
	}
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	return opts
}

// WithPoolSize sets the total memory of the session and the share of it
// given to the image.
func WithPoolSize(size, imageSize int) Option {
	return func(o *options) {
		o.poolSize = size
		o.imageSize = imageSize
	}
}

// WithFilename sets the filename used in error messages.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithInput sets the reader consumed by getchar().
func WithInput(r io.Reader) Option {
	return func(o *options) {
		o.input = r
	}
}

// WithOutput sets the writer that receives program output.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithListing writes a disassembly of each compiled unit to w.
func WithListing(w io.Writer) Option {
	return func(o *options) {
		o.listing = w
	}
}

// WithLogger sets the logger used by the compiler and the machine.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &log
	}
}

// WithRegisters makes hardware register variables available to programs.
// This option is additive.
func WithRegisters(registers ...compiler.Register) Option {
	return func(o *options) {
		o.registers = append(o.registers, registers...)
	}
}

// WithObserver sets an observer for execution events, such as a vm.Tracer.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithRecover makes Exec report compile and runtime errors to fn and carry
// on with the next chunk instead of returning. Resource errors still stop
// execution.
func WithRecover(fn func(error)) Option {
	return func(o *options) {
		o.recover = fn
	}
}
