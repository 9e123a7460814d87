package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const runIDKey ctxKey = "run_id"

// WithRunID stamps the run identifier onto the context so every log record
// emitted during the run can be correlated.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RunID(ctx); id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

// NewFileLogger opens an append-only JSON log at path. The console stays free
// for interactive output; all structured logging goes to the file.
func NewFileLogger(path string) (*slog.Logger, func() error, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, err
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}

	handler := NewContextHandler(slog.NewJSONHandler(f, nil))
	return slog.New(handler), f.Close, nil
}
