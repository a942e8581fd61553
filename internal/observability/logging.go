// Package observability provides logger construction for the CLI and server.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger used by commands and long-running
// components. It defaults to a no-op logger so library code can log without
// nil checks before InitCLILogger runs.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger at the given level.
//
// When jsonOutput is false, logs use a human-readable console encoding on
// stderr, which keeps stdout clean for command output.
func InitCLILogger(level string, jsonOutput bool) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if !jsonOutput {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than failing CLI startup.
		CLILogger = zap.NewNop()
		return
	}
	CLILogger = logger
}

// Sync flushes any buffered log entries. Safe to call on a no-op logger.
func Sync() {
	_ = CLILogger.Sync()
}
