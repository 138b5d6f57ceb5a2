// Package logging builds the process logger.
//
// Records go to stderr as slog text and, when a file is configured, to a
// size-rotated log file as well.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level slog.Level

	// File, when set, receives a copy of every record.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Stderr replaces os.Stderr, mostly for tests.
	Stderr io.Writer
}

// New returns a logger and a function that closes the log file.
func New(options Options) (*slog.Logger, func() error) {
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	writer := stderr
	closer := func() error { return nil }
	if options.File != "" {
		file := &lumberjack.Logger{
			Filename:   options.File,
			MaxSize:    options.MaxSizeMB,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAgeDays,
		}
		writer = io.MultiWriter(stderr, file)
		closer = file.Close
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: options.Level})
	return slog.New(handler), closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
