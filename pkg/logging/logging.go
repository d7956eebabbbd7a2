// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/vanhub/pkg/config"
)

// Setup points log.Logger at the configured writer and level. forceStderr is
// set when stdout carries a protocol (MCP over stdio).
func Setup(cfg config.LoggingConfig, forceStderr bool) {
	var out io.Writer = os.Stdout
	if forceStderr || strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	log.Logger = New(cfg, out)
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
}

// New builds a logger writing to out in the configured format.
func New(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(cfg.Format, "json") {
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
}

// ParseLevel maps a level name to zerolog, falling back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
