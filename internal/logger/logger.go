// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init sets up the global logger. When logFile is non-empty, output goes to
// a size-rotated file as well as the console.
func Init(level, logFile string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var out io.Writer = console
	if logFile != "" {
		out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		})
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}

// With returns a child of the default logger tagged with a component name.
func With(component string) zerolog.Logger {
	if zerolog.DefaultContextLogger == nil {
		l := Init("info", "")
		return l.With().Str("component", component).Logger()
	}
	return zerolog.DefaultContextLogger.With().Str("component", component).Logger()
}
