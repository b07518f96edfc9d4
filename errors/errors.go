// Package errors defines the compile error taxonomy and its formatting.
//
// Every compile error is one of three kinds. Syntax and Semantic errors reject
// the program being compiled; Resource errors mean the fixed memory pool or
// the block nesting stack was exhausted and are considered fatal.
package errors

import (
	goerrors "errors"
	"fmt"
)

// Kind is the category of a compile error.
type Kind int

const (
	// Syntax indicates an unexpected or missing token.
	Syntax Kind = iota
	// Semantic indicates a well formed construct that is not allowed.
	Semantic
	// Resource indicates memory pool or nesting stack exhaustion.
	Resource
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	case Resource:
		return "resource error"
	default:
		return "error"
	}
}

// FriendlyError is an interface for errors that have a human friendly message
// in addition to a the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// FatalError is an interface for errors that may or may not be fatal.
type FatalError interface {
	Error() string
	IsFatal() bool
}

// New returns a CompileError of the given kind and code without a source
// location. The compiler attaches the location when the error reaches it.
func New(kind Kind, code ErrorCode, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Syntaxf returns a new syntax error.
func Syntaxf(code ErrorCode, format string, args ...any) *CompileError {
	return New(Syntax, code, format, args...)
}

// Semanticf returns a new semantic error.
func Semanticf(code ErrorCode, format string, args ...any) *CompileError {
	return New(Semantic, code, format, args...)
}

// Resourcef returns a new resource error.
func Resourcef(code ErrorCode, format string, args ...any) *CompileError {
	return New(Resource, code, format, args...)
}

// OutOfMemory returns the resource error used for pool exhaustion.
func OutOfMemory(region string) *CompileError {
	return Resourcef(E4001, "insufficient memory in %s", region)
}

// AsCompileError returns the CompileError in err's chain, if any.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if goerrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsKind reports whether err is a CompileError of the given kind.
func IsKind(err error, kind Kind) bool {
	ce, ok := AsCompileError(err)
	return ok && ce.Kind == kind
}

// IsFatal reports whether err should be treated as unrecoverable at the
// process level.
func IsFatal(err error) bool {
	var fe FatalError
	if goerrors.As(err, &fe) {
		return fe.IsFatal()
	}
	return false
}
