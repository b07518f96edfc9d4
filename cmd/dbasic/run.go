package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dbasic-io/dbasic"
	"github.com/dbasic-io/dbasic/vm"
)

func runHandler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	opts := getSessionOptions(stderr)

	if shouldRunRepl(cmd, args) {
		return runRepl(ctx, cmd.InOrStdin(), stdout, stderr, opts)
	}

	code, filename, err := getCode(cmd, args)
	if err != nil {
		return err
	}
	opts = append(opts, dbasic.WithFilename(filename), dbasic.WithOutput(stdout))
	if !viper.GetBool("stdin") {
		opts = append(opts, dbasic.WithInput(cmd.InOrStdin()))
	}
	if viper.GetBool("trace") {
		opts = append(opts, dbasic.WithObserver(vm.NewTracer(stderr)))
	}
	if viper.GetBool("listing") {
		opts = append(opts, dbasic.WithListing(stderr))
	}
	return formatError(dbasic.Run(ctx, code, opts...))
}

// promptReader writes a prompt before each read of the underlying reader.
type promptReader struct {
	r      io.Reader
	w      io.Writer
	prompt string
}

func (p *promptReader) Read(b []byte) (int, error) {
	fmt.Fprint(p.w, p.prompt)
	return p.r.Read(b)
}

// runRepl compiles and runs statements as they are typed. Errors are
// reported and the session carries on.
func runRepl(ctx context.Context, in io.Reader, stdout, stderr io.Writer, opts []dbasic.Option) error {
	fmt.Fprintf(stdout, "dbasic %s\n", version)
	opts = append(opts,
		dbasic.WithOutput(stdout),
		dbasic.WithRecover(func(err error) {
			fmt.Fprint(stderr, formatError(err).Error())
		}),
	)
	s, err := dbasic.NewSession(opts...)
	if err != nil {
		return err
	}
	err = s.Exec(ctx, &promptReader{r: in, w: stdout, prompt: "> "})
	fmt.Fprintln(stdout)
	return formatError(err)
}
