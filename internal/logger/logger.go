package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes the global zerolog logger from environment configuration.
//   - level: log level string (trace, debug, info, warn, error, fatal, panic);
//     unknown values fall back to info
//   - format: "json" for production, "pretty" (or "text") for human-readable
//     dev output
//
// Returns the configured root logger. Components derive their own logger
// from it via log.With().Str("component", ...).
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer

	switch format {
	case "pretty", "text":
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	default:
		writer = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}
