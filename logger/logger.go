package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/AlfredDev/alfred/services/fetchengine/config"
)

// New returns a configured zerolog.Logger.
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !cfg.IsDevelopment() {
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		return log
	}
	log := zerolog.New(out).With().Timestamp().Logger()
	return log
}
