// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "LEARNOSITY_QTI_"

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional in the file; missing values come from the
// environment, CLI flags or defaults.
type Config struct {
	// Paths
	Input  string `json:"input,omitempty" validate:"required"`  // QTI content root, or one item file in single-item mode
	Output string `json:"output,omitempty" validate:"required"` // Output root holding raw/, final/ and log/

	// Conversion
	OrganisationID      int    `json:"organisation_id,omitempty" validate:"gt=0"`
	ItemReferenceSource string `json:"item_reference_source,omitempty" validate:"oneof=item metadata resource filename"`
	ConvertPassages     bool   `json:"passage_only_items,omitempty"`  // Also convert webcontent passages
	SingleItem          bool   `json:"single_item,omitempty"`         // Input is a single item file
	DryRun              bool   `json:"dry_run,omitempty"`             // Convert without writing output
	AppendLogs          bool   `json:"append_logs,omitempty"`         // Timestamp the job log instead of overwriting
	NoScoringInference  bool   `json:"no_scoring_inference,omitempty"` // Skip response processing classification
	Workers             int    `json:"workers,omitempty" validate:"min=0,max=64"`
	AssetsBaseURL       string `json:"assets_base_url,omitempty" validate:"omitempty,url"`
	NoValidateOutput    bool   `json:"no_validate_output,omitempty"` // Skip schema validation of written files

	// Logging
	Verbose  bool `json:"verbose,omitempty"`
	JSONLogs bool `json:"json_logs,omitempty"`
}

// Defaults returns the built-in defaults.
func Defaults() Config {
	return Config{
		Input:               "./data/input",
		Output:              "./data/output",
		ItemReferenceSource: "metadata",
		Workers:             1,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads LEARNOSITY_QTI_* variables. Unset or unparsable values are
// left zero.
func FromEnv() Config {
	var cfg Config
	cfg.Input = os.Getenv(EnvPrefix + "INPUT")
	cfg.Output = os.Getenv(EnvPrefix + "OUTPUT")
	cfg.ItemReferenceSource = os.Getenv(EnvPrefix + "ITEM_REFERENCE_SOURCE")
	cfg.AssetsBaseURL = os.Getenv(EnvPrefix + "ASSETS_BASE_URL")
	if v, err := strconv.Atoi(os.Getenv(EnvPrefix + "ORGANISATION_ID")); err == nil {
		cfg.OrganisationID = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvPrefix + "WORKERS")); err == nil {
		cfg.Workers = v
	}
	return cfg
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer config file values over the environment and defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Input == "" {
		result.Input = defaults.Input
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.ItemReferenceSource == "" {
		result.ItemReferenceSource = defaults.ItemReferenceSource
	}
	if result.AssetsBaseURL == "" {
		result.AssetsBaseURL = defaults.AssetsBaseURL
	}

	// Int fields: use default if zero
	if result.OrganisationID == 0 {
		result.OrganisationID = defaults.OrganisationID
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	// Bool fields: cannot distinguish unset from false, so a true anywhere wins
	result.ConvertPassages = result.ConvertPassages || defaults.ConvertPassages
	result.SingleItem = result.SingleItem || defaults.SingleItem
	result.DryRun = result.DryRun || defaults.DryRun
	result.AppendLogs = result.AppendLogs || defaults.AppendLogs
	result.NoScoringInference = result.NoScoringInference || defaults.NoScoringInference
	result.NoValidateOutput = result.NoValidateOutput || defaults.NoValidateOutput
	result.Verbose = result.Verbose || defaults.Verbose
	result.JSONLogs = result.JSONLogs || defaults.JSONLogs

	return result
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks field values and the input and output paths. It returns one
// human readable message per problem, or nil.
func (c *Config) Validate() []string {
	var messages []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []string{err.Error()}
		}
		for _, fe := range fieldErrs {
			messages = append(messages, fieldMessage(fe))
		}
	}

	if c.Input != "" {
		info, err := os.Stat(c.Input)
		switch {
		case err != nil:
			messages = append(messages, fmt.Sprintf("The input path %q does not exist", c.Input))
		case c.SingleItem && info.IsDir():
			messages = append(messages, fmt.Sprintf("The input path %q must be an item file in single-item mode", c.Input))
		case !c.SingleItem && !info.IsDir():
			messages = append(messages, fmt.Sprintf("The input path %q is not a directory", c.Input))
		}
	}

	if c.Output != "" {
		if info, err := os.Stat(c.Output); err == nil && !info.IsDir() {
			messages = append(messages, fmt.Sprintf("The output path %q is not a directory", c.Output))
		}
	}

	return messages
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s option is required", fe.Field())
	case "gt":
		return fmt.Sprintf("The %s option must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("The %s option must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max":
		return fmt.Sprintf("The %s option must be between 0 and 64", fe.Field())
	case "url":
		return fmt.Sprintf("The %s option must be a valid URL", fe.Field())
	}
	return fmt.Sprintf("The %s option is invalid (%s)", fe.Field(), fe.Tag())
}
