package testing

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// OutputConfig configures output formatting.
type OutputConfig struct {
	// Writer is where output is written.
	Writer io.Writer

	// Verbose shows the output of passing tests too.
	Verbose bool

	// UseColor enables ANSI color codes.
	UseColor bool
}

// Output handles formatting and printing test results.
type Output struct {
	w       io.Writer
	verbose bool
	green   *color.Color
	red     *color.Color
}

// NewOutput creates a new Output formatter.
func NewOutput(cfg OutputConfig) *Output {
	o := &Output{
		w:       cfg.Writer,
		verbose: cfg.Verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
	}
	for _, c := range []*color.Color{o.green, o.red} {
		if cfg.UseColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

// StartTest prints the "=== RUN" line for a test.
func (o *Output) StartTest(filename, name string) {
	fmt.Fprintf(o.w, "=== RUN   %s/%s\n", filename, name)
}

// EndTest prints the result line for a test (--- PASS, --- FAIL, etc.).
func (o *Output) EndTest(result *TestResult) {
	var status string
	switch result.Status {
	case StatusPassed:
		status = o.green.Sprint("--- PASS:")
	case StatusFailed:
		status = o.red.Sprint("--- FAIL:")
	case StatusError:
		status = o.red.Sprint("--- ERROR:")
	default:
		status = fmt.Sprintf("--- %s:", result.Status)
	}
	fmt.Fprintf(o.w, "%s %s (%.3fs)\n", status, result.Name, result.Duration.Seconds())

	if result.Status == StatusError && result.Error != nil {
		fmt.Fprintf(o.w, "    %s\n", strings.TrimRight(result.Error.Error(), "\n"))
	}
	for _, failure := range result.Failures {
		o.printFailure(&failure)
	}
	if o.verbose || result.Status != StatusPassed {
		for _, line := range result.Logs {
			fmt.Fprintf(o.w, "    %s\n", line)
		}
	}
}

func (o *Output) printFailure(f *Failure) {
	loc := ""
	if f.File != "" {
		loc = f.File + ": "
	}
	fmt.Fprintf(o.w, "    %s%s\n", loc, f.Message)
	if f.Got != "" || f.Want != "" {
		fmt.Fprintf(o.w, "        %s:  %q\n", o.red.Sprint("got"), f.Got)
		fmt.Fprintf(o.w, "        %s: %q\n", o.green.Sprint("want"), f.Want)
	}
}

// CompileError prints a compilation error for a test file.
func (o *Output) CompileError(filename string, err error) {
	fmt.Fprintf(o.w, "%s %s\n", o.red.Sprint("COMPILE ERROR:"), filename)
	fmt.Fprintf(o.w, "    %s\n", strings.TrimRight(err.Error(), "\n"))
}

// Summary prints the final summary line.
func (o *Output) Summary(summary *Summary) {
	fmt.Fprintln(o.w)
	if summary.Success() {
		fmt.Fprintln(o.w, o.green.Sprint("PASS"))
	} else {
		fmt.Fprintln(o.w, o.red.Sprint("FAIL"))
	}

	var parts []string
	if summary.Passed > 0 {
		parts = append(parts, o.green.Sprintf("%d passed", summary.Passed))
	}
	if summary.Failed > 0 {
		parts = append(parts, o.red.Sprintf("%d failed", summary.Failed))
	}
	if summary.Errors > 0 {
		parts = append(parts, o.red.Sprintf("%d errors", summary.Errors))
	}
	if len(parts) > 0 {
		fmt.Fprintln(o.w, strings.Join(parts, ", "))
	}
}

// PrintResults prints all results in Go test style.
func (o *Output) PrintResults(summary *Summary) {
	for _, file := range summary.Files {
		if file.CompileErr != nil {
			o.CompileError(file.Filename, file.CompileErr)
		}
	}
	for _, file := range summary.Files {
		for _, test := range file.Tests {
			o.StartTest(file.Filename, test.Name)
			o.EndTest(test)
		}
	}
	o.Summary(summary)
}
