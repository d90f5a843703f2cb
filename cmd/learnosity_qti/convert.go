package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/elearning-innovation/learnosity-qti/internal/config"
	"github.com/elearning-innovation/learnosity-qti/internal/identifier"
	"github.com/elearning-innovation/learnosity-qti/internal/logging"
	"github.com/elearning-innovation/learnosity-qti/internal/observability"
	"github.com/elearning-innovation/learnosity-qti/internal/pipeline"
)

var convertCommand = &cobra.Command{
	Use:     "convert-to-learnosity",
	Aliases: []string{"convert:to:learnosity"},
	Short:   "Convert QTI content packages to Learnosity JSON",
	Long: `Walks the input directory for imsmanifest.xml files, converts every QTI item
(and optionally every shared passage) they list, and writes:

  <output>/raw/<dir>.json     conversion results per manifest directory
  <output>/final/<dir>.json   flat items, questions and features per directory
  <output>/log/convert-to-learnosity.log.json   the job log

Configuration can be loaded from a JSON file using --config and from
LEARNOSITY_QTI_* environment variables. Command-line arguments override both.`,
	RunE: runConvertCmd,
}

var (
	convertConfigPath          string
	convertInput               string
	convertOutput              string
	convertOrganisationID      int
	convertItemReferenceSource string
	convertPassages            bool
	convertSingleItem          bool
	convertDryRun              bool
	convertAppendLogs          bool
	convertNoScoringInference  bool
	convertWorkers             int
	convertAssetsBaseURL       string
	convertNoValidateOutput    bool
	convertVerbose             bool
	convertJSONLogs            bool
)

func init() {
	// Config file flag (processed first)
	convertCommand.Flags().StringVar(&convertConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	convertCommand.Flags().StringVarP(&convertInput, "input", "i", "./data/input", "QTI content root, or one item file with --single-item")
	convertCommand.Flags().StringVarP(&convertOutput, "output", "o", "./data/output", "Output root for raw/, final/ and log/")
	convertCommand.Flags().IntVar(&convertOrganisationID, "organisation_id", 0, "Learnosity organisation id used for asset URLs and item metadata")
	convertCommand.Flags().StringVar(&convertItemReferenceSource, "item-reference-source", "metadata", "Where item references come from: item, metadata, resource or filename")
	convertCommand.Flags().BoolVar(&convertPassages, "passage-only-items", false, "Also convert webcontent passages into passage-only items")
	convertCommand.Flags().BoolVar(&convertSingleItem, "single-item", false, "Treat --input as a single QTI item file")
	convertCommand.Flags().BoolVar(&convertDryRun, "dry-run", false, "Convert without writing any output")
	convertCommand.Flags().BoolVar(&convertAppendLogs, "append-logs", false, "Write a timestamped job log instead of overwriting the last one")
	convertCommand.Flags().BoolVar(&convertNoScoringInference, "no-scoring-inference", false, "Do not infer scoring types from response processing")
	convertCommand.Flags().IntVar(&convertWorkers, "workers", 1, "Number of manifest directories converted concurrently")
	convertCommand.Flags().StringVar(&convertAssetsBaseURL, "assets-base-url", "", "Base URL of the asset store (defaults to the Learnosity asset host)")
	convertCommand.Flags().BoolVar(&convertNoValidateOutput, "no-validate-output", false, "Skip JSON Schema validation of written files")
	convertCommand.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "Print detailed debug information")
	convertCommand.Flags().BoolVar(&convertJSONLogs, "json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(convertCommand)
}

// loadConvertConfig layers flags over the config file, the environment and
// the defaults.
func loadConvertConfig(cmd *cobra.Command) (config.Config, error) {
	env := config.FromEnv()
	cfg := env.MergeWithDefaults(config.Defaults())

	if convertConfigPath != "" {
		loaded, err := config.LoadConfig(convertConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded.MergeWithDefaults(cfg)
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = convertInput
	}
	if flags.Changed("output") {
		cfg.Output = convertOutput
	}
	if flags.Changed("organisation_id") {
		cfg.OrganisationID = convertOrganisationID
	}
	if flags.Changed("item-reference-source") {
		cfg.ItemReferenceSource = convertItemReferenceSource
	}
	if flags.Changed("passage-only-items") {
		cfg.ConvertPassages = convertPassages
	}
	if flags.Changed("single-item") {
		cfg.SingleItem = convertSingleItem
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = convertDryRun
	}
	if flags.Changed("append-logs") {
		cfg.AppendLogs = convertAppendLogs
	}
	if flags.Changed("no-scoring-inference") {
		cfg.NoScoringInference = convertNoScoringInference
	}
	if flags.Changed("workers") {
		cfg.Workers = convertWorkers
	}
	if flags.Changed("assets-base-url") {
		cfg.AssetsBaseURL = convertAssetsBaseURL
	}
	if flags.Changed("no-validate-output") {
		cfg.NoValidateOutput = convertNoValidateOutput
	}
	if flags.Changed("verbose") {
		cfg.Verbose = convertVerbose
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs = convertJSONLogs
	}
	return cfg, nil
}

func runConvertCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConvertConfig(cmd)
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.JSONLogs, cfg.Verbose); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync()

	if messages := cfg.Validate(); len(messages) > 0 {
		return printValidationError(cmd.ErrOrStderr(), &pipeline.ValidationError{Messages: messages})
	}

	policy, err := identifier.PolicyForSource(cfg.ItemReferenceSource)
	if err != nil {
		return printValidationError(cmd.ErrOrStderr(), &pipeline.ValidationError{Messages: []string{err.Error()}})
	}

	converter := pipeline.NewConverter(cfg.OrganisationID, cfg.AssetsBaseURL)
	converter.ConvertPassages = cfg.ConvertPassages
	if cfg.NoScoringInference {
		converter.Scoring = nil
	}

	summary, err := pipeline.RunPipeline(cmd.Context(), pipeline.RunOptions{
		Input:          cfg.Input,
		Output:         cfg.Output,
		Policy:         policy,
		SingleItem:     cfg.SingleItem,
		DryRun:         cfg.DryRun,
		AppendLogs:     cfg.AppendLogs,
		ValidateOutput: !cfg.NoValidateOutput,
		Workers:        cfg.Workers,
		Converter:      converter,
		Logger:         logging.Logger,
	})
	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) {
		return printValidationError(cmd.ErrOrStderr(), validationErr)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	printer.PrintJobLog(summary.Log)
	if cfg.Verbose {
		printer.PrintIgnoredItems(summary.Log)
		printer.PrintWarnings(summary.Log)
		printer.PrintFinalFiles(summary.FinalFiles)
	}

	for _, path := range summary.FailedManifests {
		_, _ = fmt.Fprintf(out, "⚠️ Warning: manifest %s could not be read\n", path)
	}
	if cfg.DryRun {
		_, _ = fmt.Fprintf(out, "Dry run complete: %d manifests converted, nothing written.\n", summary.Manifests)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Done! Converted %d manifests. Job log: %s\n", summary.Manifests, summary.LogPath)
	return nil
}

//nolint:errcheck // writing to stderr; errors are not recoverable
func printValidationError(w io.Writer, err *pipeline.ValidationError) error {
	fmt.Fprintln(w, "Validation error")
	for _, m := range err.Messages {
		fmt.Fprintf(w, "  - %s\n", m)
	}
	return err
}
