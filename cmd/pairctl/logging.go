package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rickgao/channel-console/internal/config"
)

// newLogger builds the slog handler described by cfg.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	case "text", "":
		h = slog.NewTextHandler(w, hopts)
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", cfg.Format)
	}

	return slog.New(h), nil
}
