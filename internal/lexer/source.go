package lexer

import (
	"bufio"
	"io"
	"strings"
)

// LineSource supplies source text one line at a time. ReadLine returns the
// line without its terminator together with its 1-indexed line number. The
// end of input is reported as io.EOF, which is distinct from an empty line.
type LineSource interface {
	ReadLine() (string, int, error)
}

// StringSource reads lines from an in-memory string.
type StringSource struct {
	lines []string
	next  int
}

// NewStringSource returns a LineSource over input.
func NewStringSource(input string) *StringSource {
	s := &StringSource{}
	if input != "" {
		s.lines = strings.Split(strings.TrimSuffix(input, "\n"), "\n")
	}
	return s
}

// ReadLine implements LineSource.
func (s *StringSource) ReadLine() (string, int, error) {
	if s.next >= len(s.lines) {
		return "", 0, io.EOF
	}
	line := strings.TrimSuffix(s.lines[s.next], "\r")
	s.next++
	return line, s.next, nil
}

// ReaderSource reads lines from an io.Reader.
type ReaderSource struct {
	r      *bufio.Reader
	lineNo int
	done   bool
}

// NewReaderSource returns a LineSource over r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: bufio.NewReader(r)}
}

// ReadLine implements LineSource.
func (s *ReaderSource) ReadLine() (string, int, error) {
	if s.done {
		return "", 0, io.EOF
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", 0, err
		}
		s.done = true
		if line == "" {
			return "", 0, io.EOF
		}
	}
	s.lineNo++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, s.lineNo, nil
}
