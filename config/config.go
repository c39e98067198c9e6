// Package config reads quail settings from the environment.
package config

import (
	"io"
	"log/slog"

	"github.com/xyproto/env/v2"
)

// Config holds settings that command-line flags may override.
type Config struct {
	LogLevel   slog.Level
	OutputPath string // where build writes textual IR
	MaxSteps   int64  // instruction budget for run
	ModuleName string
}

const (
	DefaultOutputPath = "out.ll"
	DefaultMaxSteps   = 10_000_000
	DefaultModuleName = "quail"
)

// Load reads QUAIL_LOG, QUAIL_OUT, QUAIL_MAX_STEPS and QUAIL_MODULE.
// Unset or malformed values fall back to defaults.
func Load() Config {
	c := Config{
		LogLevel:   slog.LevelWarn,
		OutputPath: env.Str("QUAIL_OUT", DefaultOutputPath),
		MaxSteps:   int64(env.Int("QUAIL_MAX_STEPS", DefaultMaxSteps)),
		ModuleName: env.Str("QUAIL_MODULE", DefaultModuleName),
	}
	if lvl := env.Str("QUAIL_LOG"); lvl != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(lvl)); err == nil {
			c.LogLevel = l
		}
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	return c
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
