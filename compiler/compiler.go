// Package compiler compiles dbasic source into bytecode for the dbasic
// virtual machine.
//
// # Single-Pass Compilation
//
// The compiler reads tokens from a lexer and writes bytecode straight into an
// image. No syntax tree is kept beyond the expression being compiled: each
// expression is parsed into a small tree, code is generated for it, and the
// tree is discarded when the unit's scratch heap is reset.
//
// # Units
//
// Code is produced one unit at a time. A unit is either a function body,
// started by a def statement, or the main code. Functions must be defined
// before any main code in the same chunk and may not be nested. Finishing a
// unit seals its code into the image and resets the scratch heap along with
// the argument, local and label tables.
//
// # Forward Branches
//
// Control flow statements are driven by a fixed-depth block stack. Each open
// block records the operand offsets of branches that still need a target.
// When the target becomes known the offsets are patched in place. Goto
// labels work the same way, one fix-up list per label.
package compiler

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/dbasic-io/dbasic/dis"
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/image"
	"github.com/dbasic-io/dbasic/internal/lexer"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
	"github.com/dbasic-io/dbasic/symbol"
)

const (
	// MaxFrameSlots is the largest number of arguments plus locals a function
	// may have.
	MaxFrameSlots = 255

	mainName = "<main>"
)

// ErrEndOfInput is returned by Compile when the input ends before another
// statement begins.
var ErrEndOfInput = goerrors.New("end of input")

// Unit describes a sealed unit of code.
type Unit struct {
	Name  string
	Entry memory.Addr
	Size  int
}

type unitKind int

const (
	unitMain unitKind = iota
	unitFunction
)

// Config holds compiler configuration options.
type Config struct {
	// Filename is the source filename, used for error messages.
	Filename string

	// Logger receives debug events for each compile and sealed unit. Nil
	// disables logging.
	Logger *zerolog.Logger

	// Registers are hardware register variables made available to programs.
	Registers []Register

	// Intrinsics are built-in routines. Nil installs DefaultIntrinsics.
	Intrinsics []Intrinsic

	// Listing, when set, receives a disassembly of every sealed unit along
	// with its symbol tables.
	Listing io.Writer
}

// Compiler compiles statements read from a lexer into an image. A Compiler
// is not safe for concurrent use, and only one Compiler may use an image at
// a time.
type Compiler struct {
	img     *image.Image
	heap    *memory.Heap
	scan    *lexer.Lexer
	log     zerolog.Logger
	ulog    zerolog.Logger // log with the current compile id
	listing io.Writer

	// Set on a code generation error. Emission stops once it is set and the
	// error is reported at the next statement boundary.
	failure error

	// Last token read, used to locate errors
	tok token.Token

	// The unit under construction
	kind        unitKind
	codeSym     *symbol.Symbol
	codeName    string
	arguments   *symbol.Table
	locals      *symbol.Table
	localOffset int
	labels      labelTable

	nodes  *memory.Slab[node]
	blocks blockStack

	units []Unit
}

// New returns a Compiler that reads from src and compiles into img, whose
// scratch heap is heap. The built-in symbols are installed into the image and
// committed.
func New(img *image.Image, heap *memory.Heap, src lexer.LineSource, cfg *Config) (*Compiler, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Compiler{
		img:       img,
		heap:      heap,
		scan:      lexer.New(src, lexer.WithFile(cfg.Filename)),
		log:       zerolog.Nop(),
		ulog:      zerolog.Nop(),
		listing:   cfg.Listing,
		arguments: symbol.NewTable(),
		locals:    symbol.NewTable(),
		nodes:     memory.NewSlab[node](heap),
	}
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	}
	intrinsics := cfg.Intrinsics
	if intrinsics == nil {
		intrinsics = DefaultIntrinsics()
	}
	if err := c.installBuiltins(cfg.Registers, intrinsics); err != nil {
		img.Rollback()
		return nil, err
	}
	img.Commit()
	return c, nil
}

// Compile compiles the next chunk of input: statements are parsed until the
// input ends or the block stack is empty again after a statement. The main
// code of the chunk is terminated with HALT, sealed, and its entry address
// returned. ErrEndOfInput is returned when no statement remains.
//
// On any other error the image is rolled back to its state after the last
// sealed unit, the scratch heap is reset, and the remainder of the current
// input line is discarded.
func (c *Compiler) Compile(ctx context.Context) (memory.Addr, error) {
	id := uuid.Must(uuid.NewV4())
	log := c.log.With().
		Str("compile_id", id.String()).
		Str("file", c.scan.File()).
		Logger()
	c.ulog = log
	entry, err := c.compileChunk(ctx)
	if err != nil {
		c.abort()
		if err != ErrEndOfInput {
			err = c.locate(err)
			log.Debug().Err(err).Msg("compile failed")
		}
		return 0, err
	}
	log.Debug().
		Uint32("entry", uint32(entry)).
		Int("free", c.img.Free()).
		Msg("compiled chunk")
	return entry, nil
}

func (c *Compiler) compileChunk(ctx context.Context) (memory.Addr, error) {
	c.startUnit(unitMain, mainName, nil)
	for first := true; first || c.blocks.depth() > 0; first = false {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		tok, err := c.next()
		if err != nil {
			return 0, err
		}
		if tok.Type == token.EOF {
			if first {
				return 0, ErrEndOfInput
			}
			break
		}
		if err := c.parseStatement(tok); err != nil {
			return 0, err
		}
		if c.failure != nil {
			return 0, c.failure
		}
	}
	if err := c.checkOpenBlocks(); err != nil {
		return 0, err
	}
	c.emit(op.Halt)
	return c.finishUnit()
}

// startUnit begins a new unit. A function's code starts with a FRAME
// instruction whose slot count is patched when the unit is finished.
func (c *Compiler) startUnit(kind unitKind, name string, sym *symbol.Symbol) {
	c.arguments.Reset()
	c.locals.Reset()
	c.localOffset = 0
	c.kind = kind
	c.codeName = name
	c.codeSym = sym
	if kind == unitFunction {
		c.emit(op.Frame, 0)
	}
}

// finishUnit seals the unit under construction and returns its entry address.
func (c *Compiler) finishUnit() (memory.Addr, error) {
	if c.failure != nil {
		return 0, c.failure
	}
	if c.kind == unitFunction {
		if c.localOffset > MaxFrameSlots {
			return 0, c.fail(errors.Resourcef(errors.E4003,
				"too many arguments and locals in %s: %d", c.codeName, c.localOffset))
		}
		c.img.PatchByte(1, byte(c.localOffset))
		c.emit(op.Return)
	}
	if c.failure != nil {
		return 0, c.failure
	}
	if err := c.labels.check(c.scan); err != nil {
		return 0, err
	}
	entry, size := c.img.Seal()
	c.units = append(c.units, Unit{Name: c.codeName, Entry: entry, Size: size})
	if c.listing != nil {
		c.writeListing(entry, size)
	}
	c.ulog.Debug().
		Str("unit", c.codeName).
		Uint32("entry", uint32(entry)).
		Int("size", size).
		Int("args", c.arguments.Count()).
		Int("locals", c.locals.Count()).
		Msg("sealed unit")
	c.resetUnit()
	return entry, nil
}

func (c *Compiler) writeListing(entry memory.Addr, size int) {
	fmt.Fprintf(c.listing, "%s:\n", c.codeName)
	dis.New(dis.WithColor(false), dis.WithImage(c.img)).Listing(c.listing, c.img.Bytes(), entry, size)
	c.arguments.Dump(c.listing, "arguments")
	c.locals.Dump(c.listing, "locals")
	fmt.Fprintln(c.listing)
}

// resetUnit empties the scratch heap and the per-unit tables.
func (c *Compiler) resetUnit() {
	c.heap.Reset()
	c.arguments.Reset()
	c.locals.Reset()
	c.labels.reset()
	c.localOffset = 0
	c.kind = unitMain
	c.codeSym = nil
	c.codeName = mainName
}

// abort discards everything since the last sealed unit.
func (c *Compiler) abort() {
	c.img.Rollback()
	c.resetUnit()
	c.blocks.reset()
	c.failure = nil
	c.scan.Discard()
}

// locate attaches the position of the last token to an error that has none.
func (c *Compiler) locate(err error) error {
	ce, ok := err.(*errors.CompileError)
	if !ok || ce.HasLocation() {
		return err
	}
	return c.scan.Locate(ce, c.tok.Position)
}

// fail locates err at the last token read.
func (c *Compiler) fail(err *errors.CompileError) error {
	return c.scan.Locate(err, c.tok.Position)
}

// failAt locates err at pos.
func (c *Compiler) failAt(pos token.Position, err *errors.CompileError) error {
	return c.scan.Locate(err, pos)
}

// Units returns every unit sealed so far, oldest first.
func (c *Compiler) Units() []Unit {
	return c.units
}

// DumpGlobals writes the global symbol table.
func (c *Compiler) DumpGlobals(w io.Writer) {
	c.img.Globals().Dump(w, "symbols")
}

// Compile compiles all of src into img and returns the entry address of
// every chunk's main code, in order.
func Compile(ctx context.Context, img *image.Image, heap *memory.Heap, src string, cfg *Config) ([]memory.Addr, error) {
	c, err := New(img, heap, lexer.NewStringSource(src), cfg)
	if err != nil {
		return nil, err
	}
	var entries []memory.Addr
	for {
		entry, err := c.Compile(ctx)
		if err == ErrEndOfInput {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}
