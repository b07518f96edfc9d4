package errors

import (
	"fmt"
	"strings"
)

// CompileError represents a compilation error with source context.
type CompileError struct {
	Kind       Kind
	Code       ErrorCode
	Message    string
	Filename   string
	Line       int // 1-based, 0 when unknown
	Column     int // 1-based, 0 when unknown
	SourceLine string
	Note       string
	Cause      error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Filename != "" || e.Line > 0 {
		b.WriteString(" (")
		if e.Filename != "" {
			b.WriteString(e.Filename)
			b.WriteString(":")
		}
		fmt.Fprintf(&b, "%d:%d)", e.Line, e.Column)
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// IsFatal returns true for resource errors.
func (e *CompileError) IsFatal() bool {
	return e.Kind == Resource
}

// HasLocation reports whether a source location has been attached.
func (e *CompileError) HasLocation() bool {
	return e.Line > 0
}

// WithLocation returns a copy of the error located at the given position.
func (e *CompileError) WithLocation(filename string, line, column int, source string) *CompileError {
	located := *e
	located.Filename = filename
	located.Line = line
	located.Column = column
	located.SourceLine = source
	return &located
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *CompileError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *CompileError) ToFormatted() *FormattedError {
	fe := &FormattedError{
		Code:     e.Code,
		Kind:     e.Kind.String(),
		Message:  e.Message,
		Filename: e.Filename,
		Line:     e.Line,
		Column:   e.Column,
		Note:     e.Note,
	}
	if e.SourceLine != "" {
		fe.SourceLines = []SourceLineEntry{
			{Number: e.Line, Text: e.SourceLine, IsMain: true},
		}
	}
	return fe
}
