package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbasic-io/dbasic"
	"github.com/dbasic-io/dbasic/compiler"
	"github.com/dbasic-io/dbasic/dis"
	"github.com/dbasic-io/dbasic/memory"
)

type disassembledUnit struct {
	Name         string            `json:"name"`
	Entry        memory.Addr       `json:"entry"`
	Size         int               `json:"size"`
	Instructions []dis.Instruction `json:"instructions"`
}

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble compiled dbasic code",
		Args:  cobra.MaximumNArgs(1),
		RunE:  disHandler,
	}
	cmd.Flags().String("func", "", "Function to disassemble")
	cmd.Flags().StringP("output", "o", "text", "Output format (json or text)")
	cmd.Flags().Bool("globals", false, "Also print the global symbol table")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	code, filename, err := getCode(cmd, args)
	if err != nil {
		return err
	}
	opts := append(getSessionOptions(cmd.ErrOrStderr()), dbasic.WithFilename(filename))
	s, err := dbasic.NewSession(opts...)
	if err != nil {
		return err
	}
	units, err := s.Compile(cmd.Context(), code)
	if err != nil {
		return formatError(err)
	}

	if name, _ := cmd.Flags().GetString("func"); name != "" {
		units = filterUnits(units, name)
		if len(units) == 0 {
			return fmt.Errorf("function %q not found", name)
		}
	}

	d := dis.New(dis.WithColor(useColor()), dis.WithImage(s.Image()))
	listing := make([]disassembledUnit, 0, len(units))
	for _, u := range units {
		instructions, err := d.Disassemble(s.Image().Bytes(), u.Entry, u.Size)
		if err != nil {
			return err
		}
		listing = append(listing, disassembledUnit{
			Name:         u.Name,
			Entry:        u.Entry,
			Size:         u.Size,
			Instructions: instructions,
		})
	}

	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("output")
	switch strings.ToLower(format) {
	case "json":
		data, err := marshalJSON(listing)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "text", "":
		printListing(out, d, listing)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	if globals, _ := cmd.Flags().GetBool("globals"); globals {
		s.Image().Globals().Dump(out, "symbols")
	}
	return nil
}

func filterUnits(units []compiler.Unit, name string) []compiler.Unit {
	var matched []compiler.Unit
	for _, u := range units {
		if u.Name == name {
			matched = append(matched, u)
		}
	}
	return matched
}

func printListing(w io.Writer, d *dis.Disassembler, listing []disassembledUnit) {
	for i, u := range listing {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", u.Name)
		d.Print(w, u.Instructions)
	}
}
