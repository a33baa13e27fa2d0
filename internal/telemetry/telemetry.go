// Package telemetry wraps structured logging for the signing engine. The
// engine never touches os.Stdout or the standard log package directly:
// every stage transition and failure goes through a *zap.Logger so a host
// application can route it, redact it, or drop it entirely.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the package-level logger, safe to call before Init: it defaults
// to a no-op sink so a session created in a test binary that never calls
// Init doesn't panic.
var Log *zap.Logger

func init() {
	Log = zap.NewNop()
}

// Init builds the global logger for the given environment ("production"
// or anything else, treated as development). Call once at process
// startup, before any signing session is created.
func Init(env string) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		panic(err)
	}
	Log = built
}

// Sync flushes any buffered log entries. Call on process shutdown.
func Sync() {
	_ = Log.Sync()
}

// Session returns a logger scoped to one signing session, tagging every
// entry with a session identifier so concurrent hosts' log lines don't
// interleave unreadably.
func Session(sessionID string) *zap.Logger {
	return Log.With(zap.String("session_id", sessionID))
}

// Stage returns fields describing the engine's current position in the
// state machine, for attaching to a stage-transition log line.
func Stage(stage string, idx1, idx2 uint32) []zap.Field {
	return []zap.Field{
		zap.String("stage", stage),
		zap.Uint32("idx1", idx1),
		zap.Uint32("idx2", idx2),
	}
}
