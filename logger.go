package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logFile = "logs/autodl.log"

// NewLogger returns a JSON slog.Logger writing to stdout and, when file is
// non-empty, to a size-rotated log file. The returned closer flushes the file.
func NewLogger(level slog.Leveler, file string) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if file != "" {
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}
	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(h), closer
}
