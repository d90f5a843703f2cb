package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// getBinaryPath returns the path to the learnosity_qti binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "learnosity_qti"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/learnosity_qti ./cmd/learnosity_qti'", binaryPath)
	}

	return binaryPath
}

// resetFlags restores every flag of cmd to its default so commands can be
// executed more than once in one test binary.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// executeCommand runs the root command in-process with args and returns its
// combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(convertCommand)
	resetFlags(validateOutputCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
