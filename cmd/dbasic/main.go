package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dbasic-io/dbasic"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "dbasic [file]",
		Short:         "Compile and run dbasic programs",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
		RunE: runHandler,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dbasic.yaml)")
	pf.StringP("code", "c", "", "Code to compile")
	pf.Bool("stdin", false, "Read code from stdin")
	pf.Int("pool-size", dbasic.DefaultPoolSize, "Total memory in bytes")
	pf.Int("image-size", dbasic.DefaultImageSize, "Memory given to the bytecode image")
	pf.Bool("no-color", false, "Disable colored output")
	pf.Bool("debug", false, "Log compiler and machine events to stderr")

	flags := root.Flags()
	flags.Bool("trace", false, "Trace executed instructions to stderr")
	flags.Bool("listing", false, "Write a listing of each compiled unit to stderr")
	flags.Bool("no-repl", false, "Disable the interactive mode")

	bindFlags(pf, "code", "stdin", "pool-size", "image-size", "no-color", "debug")
	bindFlags(flags, "trace", "listing", "no-repl")

	root.AddCommand(newDisCmd(), newTestCmd(), newVersionCmd())
	return root
}

// initConfig reads the config file and environment. A missing default
// config file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".dbasic")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("dbasic")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	processGlobalFlags()
	return nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			if strings.ToLower(format) == "json" {
				out, err := marshalJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (json or text)")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fatal(err)
	}
}
