package compiler

import (
	"github.com/dbasic-io/dbasic/op"
	"github.com/dbasic-io/dbasic/symbol"
)

// Register names a memory mapped hardware register. Programs read and write
// it like a global variable.
type Register struct {
	Name string
	Addr int32
}

// Intrinsic is a built-in routine given as ready-made function bytecode.
type Intrinsic struct {
	Name string
	Code []byte
}

func routine(frame byte, body ...byte) []byte {
	code := []byte{byte(op.Frame), frame}
	code = append(code, body...)
	return append(code, byte(op.Return))
}

// DefaultIntrinsics returns the standard built-in routines: getchar(),
// putchar(c), peek(addr), poke(addr, v), peekb(addr) and pokeb(addr, v).
func DefaultIntrinsics() []Intrinsic {
	lref := byte(op.LRef)
	return []Intrinsic{
		{"getchar", routine(0, byte(op.Trap), op.TrapGetChar)},
		{"putchar", routine(1, lref, 0, byte(op.Dup), byte(op.Trap), op.TrapPutChar)},
		{"peek", routine(1, lref, 0, byte(op.Load))},
		{"poke", routine(2, lref, 0, lref, 1, byte(op.Store))},
		{"peekb", routine(1, lref, 0, byte(op.LoadB))},
		{"pokeb", routine(2, lref, 0, lref, 1, byte(op.StoreB))},
	}
}

// installBuiltins declares registers and intrinsics as globals. Names that
// already exist in the image are left alone.
func (c *Compiler) installBuiltins(registers []Register, intrinsics []Intrinsic) error {
	for _, reg := range registers {
		if _, err := c.img.DeclareGlobal(reg.Name, symbol.Register, reg.Addr); err != nil {
			return err
		}
	}
	for _, in := range intrinsics {
		if _, found := c.img.FindGlobal(in.Name); found {
			continue
		}
		addr, err := c.img.StoreBytes(in.Code)
		if err != nil {
			return err
		}
		sym, err := c.img.DeclareGlobal(in.Name, symbol.Constant, int32(addr))
		if err != nil {
			return err
		}
		sym.Code = true
	}
	return nil
}
