// Package logging builds the zap loggers used by the CLI, the REST client and
// the reference server.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return lvl, fmt.Errorf("logging: unknown level %q", name)
	}
	return lvl, nil
}

// New returns a production logger at the given level writing to path.
// An empty path writes to stderr.
func New(level, path string) (*zap.Logger, error) {
	return NewWith(level, func(cfg *zap.Config) {
		if path != "" {
			cfg.OutputPaths = []string{path}
			cfg.ErrorOutputPaths = []string{path}
		}
	})
}

// NewWith returns a logger built from zap's production config after cfgFn
// has adjusted it.
func NewWith(level string, cfgFn func(*zap.Config)) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level.SetLevel(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if cfgFn != nil {
		cfgFn(&cfg)
	}

	lggr, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: building logger: %w", err)
	}
	return lggr, nil
}
