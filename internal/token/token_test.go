package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test looking up values succeeds, then fails
func TestLookup(t *testing.T) {
	for key, val := range keywords {
		assert.Equal(t, val, LookupIdentifier(key))
		// Once the keywords are uppercase they'll no longer
		// match - so we find them as identifiers.
		assert.Equal(t, IDENT, LookupIdentifier(strings.ToUpper(key)))
		assert.True(t, IsKeyword(val))
	}
	assert.False(t, IsKeyword(IDENT))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "while", Describe(WHILE))
	assert.Equal(t, ";", Describe(SEMICOLON))
	assert.Equal(t, "<IDENTIFIER>", Describe(IDENT))
	assert.Equal(t, "<EOF>", Describe(EOF))
	assert.Equal(t, "@", Token{Type: ILLEGAL, Literal: "@"}.String())
	assert.Equal(t, "<NUMBER>", Token{Type: INT, Literal: "12"}.String())
}

func TestPosition(t *testing.T) {
	assert.False(t, NoPos.IsValid())
	assert.Equal(t, "3:1", Position{Line: 3, Column: 1}.String())
	assert.Equal(t, "a.bas:3:1", Position{File: "a.bas", Line: 3, Column: 1}.String())
}

func TestCompoundOperator(t *testing.T) {
	tests := []struct {
		in  Type
		out Type
	}{
		{PLUS_EQUALS, PLUS},
		{MINUS_EQUALS, MINUS},
		{ASTERISK_EQUALS, ASTERISK},
		{SLASH_EQUALS, SLASH},
		{MOD_EQUALS, MOD},
		{AMPERSAND_EQUALS, AMPERSAND},
		{BITOR_EQUALS, BITOR},
		{CARET_EQUALS, CARET},
		{LT_LT_EQUALS, LT_LT},
		{GT_GT_EQUALS, GT_GT},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			op, ok := CompoundOperator(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.out, op)
		})
	}
	_, ok := CompoundOperator(ASSIGN)
	assert.False(t, ok)
}
