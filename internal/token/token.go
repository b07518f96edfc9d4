// Package token defines language keywords and tokens used when lexing source code.
package token

import "fmt"

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in the input.
type Position struct {
	File   string // filename
	Line   int    // 1-indexed line number
	Column int    // 1-indexed column number
}

// IsValid returns true if this position has been set.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String returns the position as file:line:column.
func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// NoPos is the zero value Position, representing an invalid/unset position.
var NoPos = Position{}

// Token represents one token lexed from the input source code.
type Token struct {
	Type     Type
	Literal  string
	Value    int32 // numeric value of INT tokens
	Position Position
}

// String describes the token for use in diagnostics.
func (t Token) String() string {
	if t.Type == ILLEGAL {
		return t.Literal
	}
	return Describe(t.Type)
}

// Token types
const (
	EOF     Type = "EOF"
	ILLEGAL Type = "ILLEGAL"
	IDENT   Type = "IDENT"
	INT     Type = "INT"
	STRING  Type = "STRING"

	// Keywords
	DEF      Type = "DEF"
	VAR      Type = "VAR"
	IF       Type = "IF"
	ELSE     Type = "ELSE"
	FOR      Type = "FOR"
	DO       Type = "DO"
	WHILE    Type = "WHILE"
	GOTO     Type = "GOTO"
	RETURN   Type = "RETURN"
	PRINT    Type = "PRINT"
	BREAK    Type = "BREAK"
	CONTINUE Type = "CONTINUE"
	ASM      Type = "ASM"

	// Operators and delimiters
	AMPERSAND        Type = "&"
	AMPERSAND_EQUALS Type = "&="
	AND              Type = "&&"
	ASSIGN           Type = "="
	ASTERISK         Type = "*"
	ASTERISK_EQUALS  Type = "*="
	BANG             Type = "!"
	BITOR            Type = "|"
	BITOR_EQUALS     Type = "|="
	CARET            Type = "^"
	CARET_EQUALS     Type = "^="
	COLON            Type = ":"
	COMMA            Type = ","
	DOLLAR           Type = "$"
	EQ               Type = "=="
	GT               Type = ">"
	GT_EQUALS        Type = ">="
	GT_GT            Type = ">>"
	GT_GT_EQUALS     Type = ">>="
	LBRACE           Type = "{"
	LBRACKET         Type = "["
	LPAREN           Type = "("
	LT               Type = "<"
	LT_EQUALS        Type = "<="
	LT_LT            Type = "<<"
	LT_LT_EQUALS     Type = "<<="
	MINUS            Type = "-"
	MINUS_EQUALS     Type = "-="
	MINUS_MINUS      Type = "--"
	MOD              Type = "%"
	MOD_EQUALS       Type = "%="
	NOT_EQ           Type = "!="
	OR               Type = "||"
	PLUS             Type = "+"
	PLUS_EQUALS      Type = "+="
	PLUS_PLUS        Type = "++"
	RBRACE           Type = "}"
	RBRACKET         Type = "]"
	RPAREN           Type = ")"
	SEMICOLON        Type = ";"
	SLASH            Type = "/"
	SLASH_EQUALS     Type = "/="
	TILDE            Type = "~"
)

// Reserved keywords
var keywords = map[string]Type{
	"def":      DEF,
	"var":      VAR,
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"do":       DO,
	"while":    WHILE,
	"goto":     GOTO,
	"return":   RETURN,
	"print":    PRINT,
	"break":    BREAK,
	"continue": CONTINUE,
	"asm":      ASM,
}

var keywordNames = map[Type]string{}

func init() {
	for name, typ := range keywords {
		keywordNames[typ] = name
	}
}

// LookupIdentifier returns the keyword type for identifier, or IDENT when it
// is not a keyword.
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether the type is a reserved keyword.
func IsKeyword(t Type) bool {
	_, ok := keywordNames[t]
	return ok
}

// Describe returns the name of a token type as it appears in diagnostics.
func Describe(t Type) string {
	switch t {
	case EOF:
		return "<EOF>"
	case IDENT:
		return "<IDENTIFIER>"
	case INT:
		return "<NUMBER>"
	case STRING:
		return "<STRING>"
	case ILLEGAL:
		return "<ILLEGAL>"
	}
	if name, ok := keywordNames[t]; ok {
		return name
	}
	return string(t)
}

// CompoundOperator returns the binary operator of a compound assignment
// operator such as "+=".
func CompoundOperator(t Type) (Type, bool) {
	switch t {
	case PLUS_EQUALS:
		return PLUS, true
	case MINUS_EQUALS:
		return MINUS, true
	case ASTERISK_EQUALS:
		return ASTERISK, true
	case SLASH_EQUALS:
		return SLASH, true
	case MOD_EQUALS:
		return MOD, true
	case AMPERSAND_EQUALS:
		return AMPERSAND, true
	case BITOR_EQUALS:
		return BITOR, true
	case CARET_EQUALS:
		return CARET, true
	case LT_LT_EQUALS:
		return LT_LT, true
	case GT_GT_EQUALS:
		return GT_GT, true
	}
	return "", false
}
