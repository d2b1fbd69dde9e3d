package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger writes JSON to stdout. Records carry the service name and, under an
// active span or request, the trace and request ids.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "dev" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	handler := NewTraceHandler(slog.NewJSONHandler(w, opts))

	return slog.New(handler).With(
		slog.String("service", ServiceName),
		slog.String("env", env),
	)
}
