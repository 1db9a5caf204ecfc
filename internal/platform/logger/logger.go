package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log shippers can
// index household_id and request_id fields.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
