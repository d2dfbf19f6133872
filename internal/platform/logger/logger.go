package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Handlers and middleware
// receive it explicitly rather than reaching for a global.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
