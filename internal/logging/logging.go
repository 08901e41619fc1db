// Package logging provides structured logging setup for bb.
package logging

import (
	"io"
	"log/slog"
)

// New builds a logger writing to w.
// Dev mode uses human-readable text at debug level; otherwise JSON at warn
// level so that routine progress stays out of command output.
func New(w io.Writer, devMode bool) *slog.Logger {
	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})
	}
	return slog.New(handler)
}

// Setup initializes the default slog logger.
func Setup(w io.Writer, devMode bool) {
	slog.SetDefault(New(w, devMode))
}
