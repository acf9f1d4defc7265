// Package observability provides structured logging, metrics, tracing and
// health checks for hearth processes.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the record encoding.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level  slog.Level
	Format LogFormat
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
	// Service and Version are attached to every record when set.
	Service string
	Version string
}

// LogConfigFor builds the logger settings of one hearth process. Production
// logs JSON to stdout with source locations; anything else logs text to
// stderr. Explicit level and format values win over the environment default.
// Unknown levels fall back to info.
func LogConfigFor(appEnv, level, format, service string) LogConfig {
	cfg := LogConfig{
		Level:   slog.LevelInfo,
		Format:  LogFormatText,
		Output:  os.Stderr,
		Service: service,
		Version: "dev",
	}
	if cfg.Service == "" {
		cfg.Service = "hearth"
	}
	if appEnv == "production" {
		cfg.Format = LogFormatJSON
		cfg.Output = os.Stdout
		cfg.AddSource = true
		cfg.Version = "unknown"
	}

	if level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = l
		}
	}
	if format != "" {
		cfg.Format = LogFormat(strings.ToLower(format))
	}
	return cfg
}

// NewLogger creates a logger whose records carry the correlation, request
// and membership ids found on the logging context.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == LogFormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	var static []slog.Attr
	if cfg.Service != "" {
		static = append(static, slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		static = append(static, slog.String("version", cfg.Version))
	}
	return slog.New(contextHandler{handler.WithAttrs(static)})
}

// contextHandler copies ContextAttrs onto each record.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(ContextAttrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// LogOperation creates a logger with operation-specific attributes.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) *slog.Logger {
	args := append([]any{OperationKey, operation}, attrs...)
	return logger.With(args...)
}
