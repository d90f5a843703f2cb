// Package logging provides the structured logger shared by the converter.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names. Use these instead of raw strings so log lines stay
// greppable across packages.
const (
	FieldManifest      = "manifest"
	FieldDir           = "dir"
	FieldHref          = "href"
	FieldItemReference = "item_reference"
	FieldPath          = "path"
	FieldCount         = "count"
	FieldError         = "error"
	FieldScoringType   = "scoring_type"
)

// Logger is the process logger. It is a no-op until Initialize is called so
// packages can log safely from tests.
var Logger = zap.NewNop().Sugar()

// Initialize replaces Logger. JSON output uses zap's production encoder;
// otherwise a terse console encoder writes to stderr.
func Initialize(jsonOutput, verbose bool) error {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		zapLogger, err := config.Build()
		if err != nil {
			return err
		}
		Logger = zapLogger.Sugar()
		return nil
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		ConsoleSeparator: " ",
	}
	Logger = zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)).Sugar()
	return nil
}

// Sync flushes buffered log entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = Logger.Sync()
}
