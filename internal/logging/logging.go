package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure builds a zerolog logger from config values. When file is set, log
// lines are also written as JSON to a size-rotated file; the returned closer
// releases it and is never nil.
func Configure(level, format, file string) (zerolog.Logger, io.Closer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	console := New(os.Stdout, level, format)
	if file == "" {
		return console, nopCloser{}
	}

	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	out := zerolog.MultiLevelWriter(consoleWriter(os.Stdout, format), rotated)
	return zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger(), rotated
}

// New returns a logger writing to w.
func New(w io.Writer, level, format string) zerolog.Logger {
	return zerolog.New(consoleWriter(w, format)).Level(parseLevel(level)).With().Timestamp().Logger()
}

func consoleWriter(w io.Writer, format string) io.Writer {
	if strings.EqualFold(format, "console") {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return w
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
