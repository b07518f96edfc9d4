package compiler

import (
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/op"
)

// access says how the storage of a partially compiled expression is loaded
// and stored.
type access int

const (
	// accessNone means the value is already on the stack.
	accessNone access = iota
	// accessGlobal means the address of a cell is on the stack.
	accessGlobal
	// accessLocal means the value lives in a frame slot and nothing is on
	// the stack.
	accessLocal
	// accessIndexed means the address of a vector element is on the stack.
	accessIndexed
)

// pval is a partial value: the result of compiling an expression whose
// storage may still be loaded or stored.
type pval struct {
	access access
	slot   int
}

var rvalueOnly = pval{access: accessNone}

func (pv pval) isLvalue() bool {
	return pv.access != accessNone
}

// load turns pv into a value on the stack.
func (c *Compiler) load(pv pval) {
	switch pv.access {
	case accessGlobal, accessIndexed:
		c.emit(op.Load)
	case accessLocal:
		c.emit(op.LRef, int32(pv.slot))
	}
}

// store pops a value into pv's storage, leaving the value on the stack.
func (c *Compiler) store(pv pval) {
	switch pv.access {
	case accessGlobal, accessIndexed:
		c.emit(op.Store)
	case accessLocal:
		c.emit(op.LSet, int32(pv.slot))
	}
}

// dupAddress duplicates the address of pv so that it survives a load.
func (c *Compiler) dupAddress(pv pval) {
	switch pv.access {
	case accessGlobal, accessIndexed:
		c.emit(op.Dup)
	}
}

// keepLoaded copies the loaded value of pv beneath its address, or above it
// when there is no address on the stack.
func (c *Compiler) keepLoaded(pv pval) {
	switch pv.access {
	case accessGlobal, accessIndexed:
		c.emit(op.Tuck)
	case accessLocal:
		c.emit(op.Dup)
	}
}

func (c *Compiler) requireLvalue(pv pval, pos token.Position) error {
	if !pv.isLvalue() {
		return c.failAt(pos, errors.Semanticf(errors.E2001, "expecting an lvalue"))
	}
	return nil
}
