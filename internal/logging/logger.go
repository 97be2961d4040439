package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// #region new-logger
// NewLogger builds a logger that writes errors to stderr and everything
// below error level to stdout. jsonOutput selects the JSON encoder over the
// console encoder.
func NewLogger(level string, jsonOutput bool) (*zap.Logger, error) {
	var minLevel zapcore.Level
	if err := minLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return newLogger(minLevel, jsonOutput, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr)), nil
}

func newLogger(minLevel zapcore.Level, jsonOutput bool, stdout, stderr zapcore.WriteSyncer) *zap.Logger {
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel && lvl >= minLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl < zapcore.ErrorLevel && lvl >= minLevel
	})

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(config)
	} else {
		config.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(config)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stderr, isErrorLevel),
		zapcore.NewCore(encoder, stdout, isInfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}

// #endregion new-logger

// #region run-fields
// RunFields returns the structured fields describing an evaluation run.
func RunFields(entry RunEntry) []zap.Field {
	fields := []zap.Field{
		zap.String("trigger", entry.TriggerType),
		zap.Int("n", entry.N),
		zap.Int("entities", entry.EntityCount),
		zap.Duration("duration", entry.Duration),
		zap.String("outcome", entry.Outcome),
	}
	if entry.RunID != "" {
		fields = append(fields, zap.String("run_id", entry.RunID))
	}
	if entry.Dataset != "" {
		fields = append(fields, zap.String("dataset", entry.Dataset))
	}
	if entry.Reason != "" {
		fields = append(fields, zap.String("reason", entry.Reason))
	}
	return fields
}

// #endregion run-fields
