// Package hgdblog builds the fan-out logger the rest of the core threads
// through as a *slog.Logger, the way the teacher's debugger types thread a
// *Backend pointer. It wires github.com/samber/slog-multi, which the teacher's
// go.mod declares but never imports.
package hgdblog

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// New builds a logger that always writes human-readable text to stderr and,
// when enabled is true, additionally fans out JSON lines to w (cmd/hgdb's
// replay command passes os.Stderr, enabled by +DEBUG_LOG or its --log flag).
func New(enabled bool, w io.Writer) *slog.Logger {
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	if !enabled || w == nil {
		return slog.New(textHandler)
	}
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(slogmulti.Fanout(textHandler, jsonHandler))
}

// Discard returns a logger that drops everything, for tests that don't care
// about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
