package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// openInput opens path for reading; "-" selects the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("input file is required, use -i flag")
	}
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// createOutput creates path for writing; "-" selects the command's stdout.
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("output file is required, use -o flag")
	}
	if path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, nil
}

// closeOutput closes w and keeps the first error.
func closeOutput(w io.Closer, err *error) {
	if cerr := w.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to close output: %w", cerr)
	}
}

// printInfo writes a progress line to stderr when --verbose is set.
func printInfo(cmd *cobra.Command, format string, args ...any) {
	if !v.GetBool("verbose") {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
