package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/elearning-innovation/learnosity-qti/internal/pipeline"
	"github.com/elearning-innovation/learnosity-qti/internal/schemas"
)

var validateOutputCmd = &cobra.Command{
	Use:   "validate-output",
	Short: "Validate conversion output against the JSON Schemas",
	Long: `Validates every raw/*.json results file and every log/*.json job log under
an output directory. Raw files can be checked against a schema file of your own
with --schema; job logs always use the built-in schema.`,
	RunE: runValidateOutput,
}

var (
	validateOutputDir    string
	validateOutputSchema string
)

func init() {
	validateOutputCmd.Flags().StringVarP(&validateOutputDir, "dir", "d", "", "Output directory written by convert-to-learnosity (required)")
	validateOutputCmd.Flags().StringVarP(&validateOutputSchema, "schema", "s", "", "Schema file for raw results (optional, defaults to the built-in schema)")

	if err := validateOutputCmd.MarkFlagRequired("dir"); err != nil {
		panic(fmt.Sprintf("failed to mark dir flag as required: %v", err))
	}

	rootCmd.AddCommand(validateOutputCmd)
}

func runValidateOutput(cmd *cobra.Command, _ []string) error {
	if info, err := os.Stat(validateOutputDir); err != nil || !info.IsDir() {
		return fmt.Errorf("output directory not found: %s", validateOutputDir)
	}

	rawFiles, err := filepath.Glob(filepath.Join(validateOutputDir, pipeline.RawDir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list raw files: %w", err)
	}
	logFiles, err := filepath.Glob(filepath.Join(validateOutputDir, pipeline.LogDir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Strings(rawFiles)
	sort.Strings(logFiles)

	if len(rawFiles) == 0 && len(logFiles) == 0 {
		return fmt.Errorf("no output files found in %s", validateOutputDir)
	}

	out := cmd.OutOrStdout()
	failed := 0
	check := func(path string, validate func(string) error) {
		if err := validate(path); err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "✗ %s\n%v\n", path, err)
			return
		}
		_, _ = fmt.Fprintf(out, "✓ %s\n", path)
	}

	for _, path := range rawFiles {
		check(path, validateRawFile)
	}
	for _, path := range logFiles {
		check(path, func(p string) error {
			return validateFile(p, schemas.ValidateJobLog)
		})
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d files", failed, len(rawFiles)+len(logFiles))
	}
	_, _ = fmt.Fprintf(out, "Validation passed: %d files\n", len(rawFiles)+len(logFiles))
	return nil
}

func validateRawFile(path string) error {
	if validateOutputSchema != "" {
		return schemas.ValidateJSON(validateOutputSchema, path)
	}
	return validateFile(path, schemas.ValidateRawResults)
}

func validateFile(path string, validate func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return validate(data)
}
