// Package log provides logging functionality for backfill.
package log

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"backfill/pkg/config"
)

// NewLogger returns a logger writing to w configured from cfg.
func NewLogger(w io.Writer, cfg config.LogConfig) (*log.Logger, error) {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})

	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		logger.SetLevel(level)
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	case "", "text":
		logger.SetFormatter(log.TextFormatter)
	}

	return logger, nil
}
