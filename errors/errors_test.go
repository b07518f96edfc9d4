package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "syntax error", Syntax.String())
	assert.Equal(t, "semantic error", Semantic.String())
	assert.Equal(t, "resource error", Resource.String())
	assert.Equal(t, "error", Kind(42).String())
}

func TestCompileErrorMessage(t *testing.T) {
	err := Syntaxf(E1001, "expecting ';', found '}'")
	assert.Equal(t, "syntax error: expecting ';', found '}'", err.Error())
	assert.False(t, err.HasLocation())

	located := err.WithLocation("t.bas", 3, 7, "x = 1 }")
	assert.Equal(t, "syntax error: expecting ';', found '}' (t.bas:3:7)", located.Error())
	assert.True(t, located.HasLocation())
	// The original is left untouched.
	assert.False(t, err.HasLocation())
}

func TestFriendlyErrorMessage(t *testing.T) {
	err := Semanticf(E2001, "expecting an lvalue").WithLocation("", 2, 5, "  1 = x;")
	expected := "semantic error[E2001]: expecting an lvalue\n" +
		"  --> 2:5\n" +
		"   |\n" +
		" 2 |   1 = x;\n" +
		"   |     ^\n"
	assert.Equal(t, expected, err.FriendlyErrorMessage())
}

func TestFormatWithoutLocation(t *testing.T) {
	err := OutOfMemory("heap")
	assert.Equal(t, "resource error[E4001]: insufficient memory in heap\n", err.FriendlyErrorMessage())
}

func TestFormatterColor(t *testing.T) {
	err := Syntaxf(E1002, "unterminated string").WithLocation("a.bas", 1, 3, `x "abc`)
	out := NewFormatter(true).Format(err.ToFormatted())
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "unterminated string")
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(OutOfMemory("image")))
	assert.False(t, IsFatal(Syntaxf(E1001, "x")))
	assert.False(t, IsFatal(Semanticf(E2003, "x")))
	assert.False(t, IsFatal(fmt.Errorf("plain")))

	wrapped := fmt.Errorf("compile: %w", Resourcef(E4002, "statements too deeply nested"))
	assert.True(t, IsFatal(wrapped))
	assert.True(t, IsKind(wrapped, Resource))
	assert.False(t, IsKind(wrapped, Syntax))
}

func TestAsCompileError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Semanticf(E2005, "duplicate label: x"))
	ce, ok := AsCompileError(wrapped)
	require.True(t, ok)
	assert.Equal(t, E2005, ce.Code)
	_, ok = AsCompileError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		kind Kind
		desc string
	}{
		{E1001, Syntax, "unexpected token"},
		{E2006, Semantic, "undefined label"},
		{E4001, Resource, "insufficient memory"},
		{ErrorCode("X"), Syntax, "unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.code.Kind())
			assert.Equal(t, tt.desc, tt.code.Description())
		})
	}
}
