// Package symbol defines symbol table entries and the ordered tables that
// hold them.
package symbol

import (
	"fmt"
	"io"

	"github.com/dbasic-io/dbasic/memory"
)

// Class is the storage class of a symbol.
type Class int

const (
	// Variable is a global variable. Its value is the address of its cell.
	Variable Class = iota
	// Constant is a named integer constant. Its value is the constant.
	Constant
	// Register is a hardware register variable. Its value is the register's
	// absolute address.
	Register
	// Argument is a function argument. Its value is a frame slot.
	Argument
	// Local is a function local variable. Its value is a frame slot.
	Local
)

func (c Class) String() string {
	switch c {
	case Variable:
		return "variable"
	case Constant:
		return "constant"
	case Register:
		return "register"
	case Argument:
		return "argument"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// IsFrameRelative reports whether symbols of this class live in the call
// frame rather than at an absolute address.
func (c Class) IsFrameRelative() bool {
	return c == Argument || c == Local
}

// Symbol is a named entry in a symbol table.
type Symbol struct {
	Name  string
	Class Class
	Value int32

	// Addr is where the entry itself was charged in the pool. Zero for
	// symbols that were never charged.
	Addr memory.Addr

	// Code is set for intrinsic routines whose value is an entry address.
	Code bool
}

// IsConstant reports whether the symbol's value is a compile time constant.
func (s *Symbol) IsConstant() bool {
	return s.Class == Constant
}

// Size returns the number of pool bytes charged for a symbol entry with the
// given name: class, value, link and the NUL terminated name.
func Size(name string) int {
	return memory.RoundUp(12 + len(name) + 1)
}

// Table is an ordered list of symbols. Lookup scans from the first entry, so
// an earlier symbol shadows a later one with the same name.
type Table struct {
	symbols []*Symbol
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add appends the symbol without checking for duplicates.
func (t *Table) Add(sym *Symbol) *Symbol {
	t.symbols = append(t.symbols, sym)
	return sym
}

// Find returns the first symbol with the given name.
func (t *Table) Find(name string) (*Symbol, bool) {
	for _, sym := range t.symbols {
		if sym.Name == name {
			return sym, true
		}
	}
	return nil, false
}

// Count returns the number of symbols in the table.
func (t *Table) Count() int {
	return len(t.symbols)
}

// Symbols returns the symbols in declaration order.
func (t *Table) Symbols() []*Symbol {
	return t.symbols
}

// Truncate drops every symbol after the first n.
func (t *Table) Truncate(n int) {
	for i := n; i < len(t.symbols); i++ {
		t.symbols[i] = nil
	}
	t.symbols = t.symbols[:n]
}

// Reset empties the table.
func (t *Table) Reset() {
	t.Truncate(0)
}

// Dump writes a listing of the table under the given tag. Nothing is written
// for an empty table.
func (t *Table) Dump(w io.Writer, tag string) {
	if len(t.symbols) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", tag)
	for _, sym := range t.symbols {
		fmt.Fprintf(w, "  %s %08x: %08x\n", sym.Name, uint32(sym.Addr), uint32(sym.Value))
	}
}
