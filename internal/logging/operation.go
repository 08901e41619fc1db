package logging

import (
	"context"
	"log/slog"
	"time"
)

// Operation logs the outcome of a unit of work started with Start.
type Operation struct {
	name  string
	attrs []any
	start time.Time
}

// Start begins timing an operation.
func Start(name string, attrs ...any) *Operation {
	return &Operation{name: name, attrs: attrs, start: time.Now()}
}

// End logs the operation with its duration. Failures log at error level.
func (o *Operation) End(ctx context.Context, err error) {
	level := slog.LevelInfo
	attrs := append([]any{"duration", time.Since(o.start).String()}, o.attrs...)
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, "error", err)
	}
	slog.Log(ctx, level, o.name, attrs...)
}
