package compiler

import (
	"github.com/hashicorp/go-multierror"

	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/internal/lexer"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
)

// label is a goto target in the unit under construction. Until it is
// defined, the operands of the branches that reference it collect in refs.
type label struct {
	name    string
	offset  int
	defined bool
	refs    fixups
	pos     token.Position // first reference
}

type labelTable struct {
	labels []*label
}

func (t *labelTable) find(name string) *label {
	for _, l := range t.labels {
		if l.name == name {
			return l
		}
	}
	return nil
}

func (t *labelTable) empty() bool {
	return len(t.labels) == 0
}

func (t *labelTable) reset() {
	t.labels = nil
}

// check returns an error naming every label that was referenced but never
// defined.
func (t *labelTable) check(scan *lexer.Lexer) error {
	var result *multierror.Error
	for _, l := range t.labels {
		if !l.defined {
			err := errors.Semanticf(errors.E2006, "undefined label: %s", l.name)
			result = multierror.Append(result, scan.Locate(err, l.pos))
		}
	}
	if result != nil && len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result.ErrorOrNil()
}

// addLabel charges a new label entry to the scratch heap.
func (c *Compiler) addLabel(tok token.Token) (*label, error) {
	if _, err := c.heap.Allocate(memory.RoundUp(8 + len(tok.Literal) + 1)); err != nil {
		return nil, c.failAt(tok.Position, errors.OutOfMemory("heap"))
	}
	l := &label{name: tok.Literal, pos: tok.Position}
	c.labels.labels = append(c.labels.labels, l)
	return l, nil
}

// defineLabel binds a label to the current offset and patches every branch
// already waiting for it.
func (c *Compiler) defineLabel(tok token.Token) error {
	l := c.labels.find(tok.Literal)
	if l == nil {
		var err error
		if l, err = c.addLabel(tok); err != nil {
			return err
		}
	} else if l.defined {
		return c.failAt(tok.Position, errors.Semanticf(errors.E2005, "duplicate label: %s", tok.Literal))
	}
	l.defined = true
	l.offset = c.here()
	c.resolve(&l.refs, l.offset)
	return nil
}

func (c *Compiler) parseGoto() error {
	tok, err := c.require(token.IDENT)
	if err != nil {
		return err
	}
	l := c.labels.find(tok.Literal)
	if l == nil {
		if l, err = c.addLabel(tok); err != nil {
			return err
		}
	}
	if l.defined {
		c.emitBranchTo(op.Br, l.offset)
	} else {
		c.emitBranch(op.Br, &l.refs)
	}
	_, err = c.require(token.SEMICOLON)
	return err
}
