package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// GetLogFormat returns "json" when LOG_FORMAT=json, otherwise "text".
func (c *Config) GetLogFormat() string {
	if strings.EqualFold(c.v.GetString("LOG_FORMAT"), "json") {
		return "json"
	}
	return "text"
}

// SetupLog configures a global slog logger whose level follows LOG_LEVEL changes.
func SetupLog(cfg *Config) {
	slog.SetDefault(NewLogger(cfg, os.Stderr))
}

// NewLogger builds a logger writing to w in the configured format.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	var lv slog.LevelVar
	cfg.OnLogLevelChange(func(level slog.Level) { lv.Set(level) })
	opts := &slog.HandlerOptions{Level: &lv}
	if cfg.GetLogFormat() == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
