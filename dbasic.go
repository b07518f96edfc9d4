// Package dbasic compiles and runs dbasic programs.
//
// A Session owns a memory pool split between a bytecode image and the
// compiler's scratch heap. Source is compiled one chunk at a time and each
// chunk's main code runs as soon as it is sealed, so functions and globals
// defined by earlier chunks stay available to later ones:
//
//	s, _ := dbasic.NewSession(dbasic.WithOutput(os.Stdout))
//	s.Eval(ctx, "def sq(n) { return n * n; }")
//	s.Eval(ctx, "print sq(7);")
package dbasic

import (
	"context"
	"io"
	"strings"

	"github.com/dbasic-io/dbasic/compiler"
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/image"
	"github.com/dbasic-io/dbasic/internal/lexer"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/vm"
)

// Session is a persistent compile and execute environment. It is not safe
// for concurrent use.
type Session struct {
	opts    *options
	pool    *memory.Pool
	img     *image.Image
	machine *vm.VirtualMachine
	units   []compiler.Unit
	result  int32
}

// NewSession allocates the session's memory and creates its machine.
func NewSession(opts ...Option) (*Session, error) {
	o := collectOptions(opts...)
	pool, err := memory.NewPool(o.poolSize, o.imageSize)
	if err != nil {
		return nil, err
	}
	img := image.New(pool)
	return &Session{
		opts:    o,
		pool:    pool,
		img:     img,
		machine: vm.New(img.Bytes(), o.vmOpts()...),
	}, nil
}

// Image returns the session's image.
func (s *Session) Image() *image.Image {
	return s.img
}

// Result returns the value left on the stack by the last chunk that ran,
// such as the operand of a return statement in main code.
func (s *Session) Result() int32 {
	return s.result
}

// Units returns every unit compiled by the session, oldest first.
func (s *Session) Units() []compiler.Unit {
	return s.units
}

// Exec compiles src chunk by chunk and runs each chunk's main code after it
// is compiled. It stops at the first error unless WithRecover is set.
func (s *Session) Exec(ctx context.Context, src io.Reader) error {
	return s.process(ctx, src, true)
}

// Eval is Exec over a string.
func (s *Session) Eval(ctx context.Context, src string) error {
	return s.Exec(ctx, strings.NewReader(src))
}

// Compile compiles src into the image without running it and returns the
// units it produced.
func (s *Session) Compile(ctx context.Context, src string) ([]compiler.Unit, error) {
	first := len(s.units)
	err := s.process(ctx, strings.NewReader(src), false)
	return s.units[first:], err
}

func (s *Session) process(ctx context.Context, src io.Reader, run bool) error {
	c, err := compiler.New(s.img, s.pool.Heap(), lexer.NewReaderSource(src), s.opts.compilerConfig())
	if err != nil {
		return err
	}
	defer func() { s.units = append(s.units, c.Units()...) }()
	for {
		entry, err := c.Compile(ctx)
		if err == compiler.ErrEndOfInput {
			return nil
		}
		if err == nil && run {
			s.result, err = s.machine.Run(ctx, entry)
		}
		if err == nil {
			continue
		}
		if !s.recoverable(ctx, err) {
			return err
		}
		s.opts.recover(err)
	}
}

func (s *Session) recoverable(ctx context.Context, err error) bool {
	if s.opts.recover == nil || errors.IsFatal(err) {
		return false
	}
	return ctx.Err() == nil
}

// Run compiles and runs src in a new session.
func Run(ctx context.Context, src string, opts ...Option) error {
	s, err := NewSession(opts...)
	if err != nil {
		return err
	}
	return s.Eval(ctx, src)
}
