// Package logging provides structured logging setup for house-market.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Setup initializes the default slog logger.
// Dev mode uses colored human-readable text at debug level; prod uses JSON.
// CLI output goes to stdout, so logs are written to stderr.
func Setup(devMode bool) {
	slog.SetDefault(slog.New(newHandler(os.Stderr, devMode)))
}

func newHandler(w io.Writer, devMode bool) slog.Handler {
	if devMode {
		return tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
}
