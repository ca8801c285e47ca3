package logger

import (
	"fmt"
	"github.com/lmittmann/tint"
	"io"
	"log/slog"
	"os"
)

// Logger is a slog.Logger whose derived loggers keep the Component helper.
type Logger struct {
	*slog.Logger
}

func New(cfg *Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	log := &Logger{slog.New(newHandler(cfg))}

	var attrs []any
	if cfg.Service != "" {
		attrs = append(attrs, "service", cfg.Service)
	}
	if cfg.Version != "" {
		attrs = append(attrs, "version", cfg.Version)
	}
	if len(attrs) > 0 {
		log = log.With(attrs...)
	}
	return log, nil
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// newHandler picks tint for human-readable text and slog's JSON handler
// otherwise. Colour is only used on the process's own stdout or stderr.
func newHandler(cfg *Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.Format == "text" {
		return tint.NewHandler(out, &tint.Options{
			Level:      cfg.SlogLevel(),
			AddSource:  cfg.AddSource,
			TimeFormat: "15:04:05",
			NoColor:    out != os.Stdout && out != os.Stderr,
		})
	}

	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     cfg.SlogLevel(),
		AddSource: cfg.AddSource,
	})
}

// Component tags records with the emitting part of the pipeline, for example
// "service/changelog" or "upstream/jira".
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.Logger.With("component", name)}
}

// With returns a logger that adds attrs to every record, keeping the
// Component helper available on the result.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}
