package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Formatter formats errors with optional colors.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool

	colorError     *color.Color
	colorErrorBold *color.Color
	colorCode      *color.Color
	colorLocation  *color.Color
	colorLineNum   *color.Color
	colorCaret     *color.Color
	colorNote      *color.Color
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	f := &Formatter{
		UseColor:       useColor,
		colorError:     color.New(color.FgRed),
		colorErrorBold: color.New(color.FgHiRed, color.Bold),
		colorCode:      color.New(color.FgHiBlack),
		colorLocation:  color.New(color.FgCyan),
		colorLineNum:   color.New(color.FgHiBlack),
		colorCaret:     color.New(color.FgHiRed),
		colorNote:      color.New(color.FgHiBlue),
	}
	// The formatter decides on color itself, independent of color.NoColor.
	for _, c := range []*color.Color{
		f.colorError, f.colorErrorBold, f.colorCode, f.colorLocation,
		f.colorLineNum, f.colorCaret, f.colorNote,
	} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// FormattedError represents an error ready for display.
type FormattedError struct {
	Code        ErrorCode
	Kind        string
	Message     string
	Filename    string
	Line        int
	Column      int
	SourceLines []SourceLineEntry
	Note        string
}

// SourceLineEntry represents a line of source code with its number.
type SourceLineEntry struct {
	Number int
	Text   string
	IsMain bool // True if this is the line with the error
}

// Format formats the error as a string.
func (f *Formatter) Format(err *FormattedError) string {
	var b strings.Builder

	lineNumWidth := 2
	if err.Line >= 100 {
		lineNumWidth = len(fmt.Sprintf("%d", err.Line))
	}

	f.writeHeader(&b, err)
	f.writeLocation(&b, err, lineNumWidth)
	f.writeSource(&b, err, lineNumWidth)
	if err.Note != "" {
		f.writeNote(&b, err.Note, lineNumWidth)
	}
	return b.String()
}

func (f *Formatter) writeHeader(b *strings.Builder, err *FormattedError) {
	label := "error"
	if err.Kind != "" {
		label = err.Kind
	}
	b.WriteString(f.colorErrorBold.Sprint(label))
	if err.Code != "" {
		b.WriteString(f.colorCode.Sprintf("[%s]", err.Code))
	}
	b.WriteString(f.colorError.Sprint(": "))
	b.WriteString(err.Message)
	b.WriteString("\n")
}

func (f *Formatter) writeLocation(b *strings.Builder, err *FormattedError, lineNumWidth int) {
	if err.Line == 0 && err.Filename == "" {
		return
	}
	b.WriteString(strings.Repeat(" ", lineNumWidth))
	b.WriteString(f.colorLocation.Sprint("-->"))
	b.WriteString(" ")

	loc := ""
	if err.Filename != "" {
		loc = err.Filename
		if err.Line > 0 {
			loc += fmt.Sprintf(":%d:%d", err.Line, err.Column)
		}
	} else if err.Line > 0 {
		loc = fmt.Sprintf("%d:%d", err.Line, err.Column)
	}
	b.WriteString(f.colorLocation.Sprint(loc))
	b.WriteString("\n")
}

func (f *Formatter) writeSource(b *strings.Builder, err *FormattedError, lineNumWidth int) {
	if len(err.SourceLines) == 0 {
		return
	}
	padding := strings.Repeat(" ", lineNumWidth)

	b.WriteString(padding)
	b.WriteString(f.colorLineNum.Sprint(" |"))
	b.WriteString("\n")

	for _, line := range err.SourceLines {
		b.WriteString(f.colorLineNum.Sprintf("%*d |", lineNumWidth, line.Number))
		b.WriteString(" ")
		b.WriteString(line.Text)
		b.WriteString("\n")

		if line.IsMain && err.Column > 0 {
			b.WriteString(padding)
			b.WriteString(f.colorLineNum.Sprint(" |"))
			b.WriteString(" ")
			b.WriteString(strings.Repeat(" ", err.Column-1))
			b.WriteString(f.colorCaret.Sprint("^"))
			b.WriteString("\n")
		}
	}
}

func (f *Formatter) writeNote(b *strings.Builder, note string, lineNumWidth int) {
	b.WriteString(strings.Repeat(" ", lineNumWidth))
	b.WriteString(f.colorLineNum.Sprint(" = "))
	b.WriteString(f.colorNote.Sprint("note: "))
	b.WriteString(note)
	b.WriteString("\n")
}
