package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a JSON slog logger configured at the provided level. If the
// level string is invalid it defaults to info.
func New(level string) *slog.Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithFile writes to stdout and to a size-rotated file at path.
func NewWithFile(level, path string) (*slog.Logger, io.Closer) {
	if path == "" {
		return New(level), nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	return NewWithWriter(level, io.MultiWriter(os.Stdout, rotator)), rotator
}

// NewWithWriter builds the JSON logger on an arbitrary writer.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
