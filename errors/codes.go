package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Syntax errors
//   - E2xxx: Semantic errors
//   - E4xxx: Resource errors
type ErrorCode string

const (
	// Syntax errors (E1xxx)
	E1001 ErrorCode = "E1001" // Unexpected token
	E1002 ErrorCode = "E1002" // Unterminated string literal
	E1003 ErrorCode = "E1003" // Invalid syntax
	E1004 ErrorCode = "E1004" // Token too long
	E1005 ErrorCode = "E1005" // Unterminated block

	// Semantic errors (E2xxx)
	E2001 ErrorCode = "E2001" // Lvalue required
	E2002 ErrorCode = "E2002" // Constant expression required
	E2003 ErrorCode = "E2003" // Invalid break statement
	E2004 ErrorCode = "E2004" // Invalid continue statement
	E2005 ErrorCode = "E2005" // Duplicate label
	E2006 ErrorCode = "E2006" // Undefined label
	E2007 ErrorCode = "E2007" // Misplaced function definition
	E2008 ErrorCode = "E2008" // Malformed declaration

	// Resource errors (E4xxx)
	E4001 ErrorCode = "E4001" // Insufficient memory
	E4002 ErrorCode = "E4002" // Statements too deeply nested
	E4003 ErrorCode = "E4003" // Frame too large
	E4004 ErrorCode = "E4004" // Branch out of range
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E1001: "unexpected token",
	E1002: "unterminated string literal",
	E1003: "invalid syntax",
	E1004: "token too long",
	E1005: "unterminated block",

	E2001: "lvalue required",
	E2002: "constant expression required",
	E2003: "invalid break statement",
	E2004: "invalid continue statement",
	E2005: "duplicate label",
	E2006: "undefined label",
	E2007: "misplaced function definition",
	E2008: "malformed declaration",

	E4001: "insufficient memory",
	E4002: "statements too deeply nested",
	E4003: "frame too large",
	E4004: "branch out of range",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Kind returns the error kind implied by the code prefix.
func (c ErrorCode) Kind() Kind {
	if len(c) < 2 {
		return Syntax
	}
	switch c[1] {
	case '2':
		return Semantic
	case '4':
		return Resource
	default:
		return Syntax
	}
}
