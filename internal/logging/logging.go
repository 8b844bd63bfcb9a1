// Package logging builds the process slog.Logger from the [log] config section.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"lichess-gateway/internal/config"
)

// New returns the configured logger and, when logging to a file, the rotating
// writer that must be closed on shutdown. The closer is nil otherwise.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	w, closer := writer(cfg)
	return slog.New(handler(w, cfg)), closer
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func writer(cfg config.LogConfig) (io.Writer, io.Closer) {
	switch cfg.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    cfg.Rotation.MaxSizeMB,
		MaxBackups: cfg.Rotation.MaxBackups,
		MaxAge:     cfg.Rotation.MaxAgeDays,
		Compress:   cfg.Rotation.Compress,
	}
	return lj, lj
}
