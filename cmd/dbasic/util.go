package main

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dbasic-io/dbasic/errors"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(strings.TrimRight(s, "\n")))
	os.Exit(1)
}

func bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isTerminalIO() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
}

func useColor() bool {
	return !color.NoColor
}

func marshalJSON(v any) ([]byte, error) {
	if useColor() {
		return prettyjson.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// formatError renders compile errors with their source line and caret.
// Aggregated errors are rendered one after another.
func formatError(err error) error {
	if err == nil {
		return nil
	}
	formatter := errors.NewFormatter(useColor() && isTerminal(os.Stderr))
	var merr *multierror.Error
	if goerrors.As(err, &merr) {
		var b strings.Builder
		for _, e := range merr.Errors {
			b.WriteString(formatOne(formatter, e))
		}
		return goerrors.New(b.String())
	}
	return goerrors.New(formatOne(formatter, err))
}

func formatOne(formatter *errors.Formatter, err error) string {
	if ce, ok := errors.AsCompileError(err); ok {
		return formatter.Format(ce.ToFormatted())
	}
	return err.Error() + "\n"
}
