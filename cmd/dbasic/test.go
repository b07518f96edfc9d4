package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dbasic-io/dbasic/testing"
)

var errTestsFailed = errors.New("tests failed")

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [patterns...]",
		Short: "Run *_test.bas files",
		RunE:  testHandler,
	}
	cmd.Flags().BoolP("verbose", "v", false, "Show output of passing tests")
	cmd.Flags().StringP("run", "r", "", "Run only tests matching pattern")
	return cmd
}

func testHandler(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	runPattern, _ := cmd.Flags().GetString("run")
	cfg := &testing.Config{
		Patterns:   args,
		RunPattern: runPattern,
		Verbose:    verbose,
		Options:    getSessionOptions(cmd.ErrOrStderr()),
	}

	summary, err := testing.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	output := testing.NewOutput(testing.OutputConfig{
		Writer:   cmd.OutOrStdout(),
		Verbose:  cfg.Verbose,
		UseColor: useColor(),
	})
	output.PrintResults(summary)
	if !summary.Success() {
		return errTestsFailed
	}
	return nil
}
