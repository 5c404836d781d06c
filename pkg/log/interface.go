// Package log provides structured logging for cytoprofile analysis runs.
//
// The package defines a minimal, slog-style logging interface backed by
// zerolog. Loggers carry contextual fields through With, so a pipeline stage
// can derive a stage-scoped logger once and have every message tagged with
// the stage name, run identifier, and data shape.
package log

// Logger is a structured logging interface with slog-style variadic
// key-value fields. If the first field passed to Error is an error, its
// stack trace (when produced by pkg/errors) is attached to the event.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs potentially problematic but non-fatal conditions.
	Warn(msg string, fields ...any)

	// Error logs error conditions.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger
}

// Level represents a logging level. Values match log/slog.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Common field keys used across the pipeline.
const (
	StageKey    = "stage"
	RunIDKey    = "run_id"
	SamplesKey  = "n_samples"
	FeaturesKey = "n_features"
	ModelKey    = "model"
	SeedKey     = "seed"
	DurationKey = "duration_ms"
)
