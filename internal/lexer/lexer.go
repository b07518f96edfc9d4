// Package lexer converts dbasic source text into tokens.
//
// The lexer pulls lines from a LineSource on demand. It keeps one character of
// pushback, one saved token for the parser's lookahead, and whether it is
// inside a block comment, all of which survive line boundaries.
package lexer

import (
	"io"
	"strconv"
	"strings"

	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/internal/token"
)

// MaxTokenLength is the longest identifier, number or string accepted.
const MaxTokenLength = 32

const eof = -1

// Lexer is used to tokenize source code.
type Lexer struct {
	src  LineSource
	file string

	line     string // current line including its newline
	lineNo   int
	prevLine string
	prevNo   int
	pos      int
	atEOF    bool
	readErr  error

	inComment bool
	saved     *token.Token
	start     token.Position
}

// Option is a configuration function for a Lexer.
type Option func(*Lexer)

// WithFile sets the file name reported in token positions.
func WithFile(file string) Option {
	return func(l *Lexer) {
		l.file = file
	}
}

// New returns a Lexer reading from src.
func New(src LineSource, opts ...Option) *Lexer {
	l := &Lexer{src: src}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewString returns a Lexer over an in-memory string.
func NewString(input string, opts ...Option) *Lexer {
	return New(NewStringSource(input), opts...)
}

// File returns the file name given with WithFile.
func (l *Lexer) File() string {
	return l.file
}

// Next returns the next token. The saved token, if any, is returned first.
func (l *Lexer) Next() (token.Token, error) {
	if l.saved != nil {
		tok := *l.saved
		l.saved = nil
		return tok, nil
	}
	return l.scan()
}

// Unread saves tok so that the next call to Next returns it. Only one token
// may be saved at a time.
func (l *Lexer) Unread(tok token.Token) {
	if l.saved != nil {
		panic("lexer: a token is already saved")
	}
	l.saved = &tok
}

// AtLabel reports whether a ':' follows on the current line, consuming it if
// so. It is called right after an identifier has been read and never forms a
// token.
func (l *Lexer) AtLabel() bool {
	if l.saved != nil {
		return false
	}
	for l.pos < len(l.line) {
		switch l.line[l.pos] {
		case ' ', '\t':
			l.pos++
		case ':':
			l.pos++
			return true
		default:
			return false
		}
	}
	return false
}

// Discard drops the saved token, the rest of the current line and any open
// block comment. It is used to resynchronize after a compile error.
func (l *Lexer) Discard() {
	l.saved = nil
	l.inComment = false
	l.pos = len(l.line)
}

// SourceLine returns the text of a recently read line, or "" when the line
// is no longer available.
func (l *Lexer) SourceLine(line int) string {
	switch {
	case line == l.lineNo && line > 0:
		return strings.TrimSuffix(l.line, "\n")
	case line == l.prevNo && line > 0:
		return l.prevLine
	}
	return ""
}

// Locate attaches a source position and its line text to err.
func (l *Lexer) Locate(err *errors.CompileError, pos token.Position) *errors.CompileError {
	if !pos.IsValid() {
		return err
	}
	return err.WithLocation(pos.File, pos.Line, pos.Column, l.SourceLine(pos.Line))
}

func (l *Lexer) readc() int {
	for l.pos >= len(l.line) {
		if l.atEOF {
			return eof
		}
		text, n, err := l.src.ReadLine()
		if err != nil {
			l.atEOF = true
			if err != io.EOF {
				l.readErr = err
			}
			return eof
		}
		if l.line != "" {
			l.prevLine, l.prevNo = strings.TrimSuffix(l.line, "\n"), l.lineNo
		}
		l.line, l.lineNo, l.pos = text+"\n", n, 0
	}
	c := l.line[l.pos]
	l.pos++
	return int(c)
}

func (l *Lexer) unreadc(c int) {
	if c != eof {
		l.pos--
	}
}

func (l *Lexer) accept(c int) bool {
	if next := l.readc(); next != c {
		l.unreadc(next)
		return false
	}
	return true
}

// getc returns the next character with comments removed.
func (l *Lexer) getc() int {
	if l.inComment {
		if !l.skipComment() {
			return eof
		}
		l.inComment = false
	}
	for {
		c := l.readc()
		if c != '/' {
			return c
		}
		switch next := l.readc(); next {
		case '/':
			// Leave the newline to terminate the comment.
			l.pos = len(l.line) - 1
		case '*':
			if !l.skipComment() {
				l.inComment = true
				return eof
			}
		default:
			l.unreadc(next)
			return '/'
		}
	}
}

func (l *Lexer) skipComment() bool {
	last := 0
	for {
		c := l.readc()
		if c == eof {
			return false
		}
		if last == '*' && c == '/' {
			return true
		}
		last = c
	}
}

func (l *Lexer) skipSpaces() int {
	for {
		c := l.getc()
		if !isSpace(c) {
			return c
		}
	}
}

func (l *Lexer) token(typ token.Type, literal string) token.Token {
	return token.Token{Type: typ, Literal: literal, Position: l.start}
}

func (l *Lexer) errorf(code errors.ErrorCode, format string, args ...any) error {
	return l.Locate(errors.Syntaxf(code, format, args...), l.start)
}

func (l *Lexer) scan() (token.Token, error) {
	c := l.skipSpaces()
	l.start = token.Position{File: l.file, Line: l.lineNo, Column: l.pos}
	if c == eof {
		if l.readErr != nil {
			return token.Token{}, l.readErr
		}
		l.start.Column++
		return l.token(token.EOF, ""), nil
	}
	switch c {
	case '"':
		return l.readString()
	case '\'':
		return l.readChar()
	case '(':
		return l.token(token.LPAREN, "("), nil
	case ')':
		return l.token(token.RPAREN, ")"), nil
	case '{':
		return l.token(token.LBRACE, "{"), nil
	case '}':
		return l.token(token.RBRACE, "}"), nil
	case '[':
		return l.token(token.LBRACKET, "["), nil
	case ']':
		return l.token(token.RBRACKET, "]"), nil
	case ',':
		return l.token(token.COMMA, ","), nil
	case ';':
		return l.token(token.SEMICOLON, ";"), nil
	case ':':
		return l.token(token.COLON, ":"), nil
	case '$':
		return l.token(token.DOLLAR, "$"), nil
	case '~':
		return l.token(token.TILDE, "~"), nil
	case '+':
		if l.accept('+') {
			return l.token(token.PLUS_PLUS, "++"), nil
		}
		return l.withAssign(token.PLUS, token.PLUS_EQUALS), nil
	case '-':
		if l.accept('-') {
			return l.token(token.MINUS_MINUS, "--"), nil
		}
		return l.withAssign(token.MINUS, token.MINUS_EQUALS), nil
	case '*':
		return l.withAssign(token.ASTERISK, token.ASTERISK_EQUALS), nil
	case '/':
		return l.withAssign(token.SLASH, token.SLASH_EQUALS), nil
	case '%':
		return l.withAssign(token.MOD, token.MOD_EQUALS), nil
	case '^':
		return l.withAssign(token.CARET, token.CARET_EQUALS), nil
	case '=':
		return l.withAssign(token.ASSIGN, token.EQ), nil
	case '!':
		return l.withAssign(token.BANG, token.NOT_EQ), nil
	case '&':
		if l.accept('&') {
			return l.token(token.AND, "&&"), nil
		}
		return l.withAssign(token.AMPERSAND, token.AMPERSAND_EQUALS), nil
	case '|':
		if l.accept('|') {
			return l.token(token.OR, "||"), nil
		}
		return l.withAssign(token.BITOR, token.BITOR_EQUALS), nil
	case '<':
		if l.accept('<') {
			return l.withAssign(token.LT_LT, token.LT_LT_EQUALS), nil
		}
		return l.withAssign(token.LT, token.LT_EQUALS), nil
	case '>':
		if l.accept('>') {
			return l.withAssign(token.GT_GT, token.GT_GT_EQUALS), nil
		}
		return l.withAssign(token.GT, token.GT_EQUALS), nil
	}
	switch {
	case isDigit(c):
		return l.readNumber(c)
	case isIdentChar(c):
		return l.readIdentifier(c)
	}
	return l.token(token.ILLEGAL, string(rune(c))), nil
}

// withAssign returns assigned when the next character is '=' and plain
// otherwise.
func (l *Lexer) withAssign(plain, assigned token.Type) token.Token {
	if l.accept('=') {
		return l.token(assigned, string(assigned))
	}
	return l.token(plain, string(plain))
}

func (l *Lexer) readIdentifier(c int) (token.Token, error) {
	var b strings.Builder
	b.WriteByte(byte(c))
	for {
		c = l.readc()
		if !isIdentChar(c) {
			l.unreadc(c)
			break
		}
		if b.Len() >= MaxTokenLength {
			return token.Token{}, l.errorf(errors.E1004, "identifier too long")
		}
		b.WriteByte(byte(c))
	}
	name := b.String()
	return l.token(token.LookupIdentifier(name), name), nil
}

func (l *Lexer) readNumber(c int) (token.Token, error) {
	var literal, digits strings.Builder
	base := 10
	literal.WriteByte(byte(c))
	if c == '0' {
		switch next := l.readc(); next {
		case 'x', 'X':
			base = 16
			literal.WriteByte(byte(next))
		case 'b', 'B':
			base = 2
			literal.WriteByte(byte(next))
		default:
			l.unreadc(next)
		}
	}
	if base == 10 {
		digits.WriteByte(byte(c))
	}
	for {
		c = l.readc()
		if !isIdentChar(c) {
			l.unreadc(c)
			break
		}
		if literal.Len() >= MaxTokenLength {
			return token.Token{}, l.errorf(errors.E1004, "number too long")
		}
		literal.WriteByte(byte(c))
		if c != '_' {
			digits.WriteByte(byte(c))
		}
	}
	value, err := strconv.ParseUint(digits.String(), base, 32)
	if err != nil {
		return token.Token{}, l.errorf(errors.E1003, "invalid number: %s", literal.String())
	}
	tok := l.token(token.INT, literal.String())
	tok.Value = int32(uint32(value))
	return tok, nil
}

func (l *Lexer) readString() (token.Token, error) {
	var b strings.Builder
	for {
		c := l.readc()
		if c == eof || c == '\n' {
			l.unreadc(c)
			return token.Token{}, l.errorf(errors.E1002, "unterminated string")
		}
		if c == '"' {
			break
		}
		if c == '\\' {
			c = l.literalChar()
		}
		if b.Len() >= MaxTokenLength {
			return token.Token{}, l.errorf(errors.E1004, "string too long")
		}
		b.WriteByte(byte(c))
	}
	return l.token(token.STRING, b.String()), nil
}

func (l *Lexer) readChar() (token.Token, error) {
	c := l.readc()
	if c == '\\' {
		c = l.literalChar()
	}
	if c == eof || c == '\n' || !l.accept('\'') {
		return token.Token{}, l.errorf(errors.E1002, "expecting a closing single quote")
	}
	tok := l.token(token.INT, string(rune(c)))
	tok.Value = int32(c)
	return tok, nil
}

// literalChar reads the character after a backslash. A backslash at the end
// of the input stands for itself.
func (l *Lexer) literalChar() int {
	c := l.readc()
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case eof, '\n':
		l.unreadc(c)
		return '\\'
	}
	return c
}

func isSpace(c int) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c int) bool {
	return '0' <= c && c <= '9'
}

func isIdentChar(c int) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || isDigit(c) || c == '_'
}
