package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger. development logs to a console writer
// at debug; every other env logs JSON at info. LOG_LEVEL overrides the level.
func NewLogger(appEnv string) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, os.Getenv("LOG_LEVEL"))
}

func newLogger(w io.Writer, appEnv, levelName string) zerolog.Logger {
	dev := appEnv == "development"
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}
	if name := strings.ToLower(strings.TrimSpace(levelName)); name != "" {
		if parsed, err := zerolog.ParseLevel(name); err == nil {
			level = parsed
		}
	}
	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "gateway").
		Str("env", appEnv).
		Logger()
}
