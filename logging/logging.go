// Package logging configures the process-wide structured logger
// shared by every subsystem.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is shared between the CLI's verbosity flag and the
// renderer's validation-layer toggle.
var level = zap.NewAtomicLevelAt(zap.InfoLevel)

var log *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		// Building the production config can only fail on a
		// misconfigured encoder, which never happens with the
		// defaults above.
		panic(err)
	}
	log = l
}

// SetVerbose raises or lowers the process-wide log level.
func SetVerbose(verbose bool) {
	if verbose {
		level.SetLevel(zap.DebugLevel)
	} else {
		level.SetLevel(zap.InfoLevel)
	}
}

// Named returns a sugared logger scoped to the given subsystem
// name (e.g. "cull", "upload", "vk").
func Named(name string) *zap.SugaredLogger {
	return log.Named(name).Sugar()
}

// Sync flushes any buffered log entries. Call once at process exit.
func Sync() error { return log.Sync() }
