// Package logger builds zap loggers and carries request-scoped loggers in
// contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/docassist/internal/version"
)

// environments maps DOCASSIST_ENV values to base configurations.
var environments = map[string]func() zap.Config{
	"prod": func() zap.Config {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	},
	"local":  developmentConfig,
	"dev":    developmentConfig,
	"docker": developmentConfig,
}

func developmentConfig() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// NewLogger builds the logger of one binary. prod writes JSON with build
// metadata, the other environments write colored console lines. A non-empty
// level (debug, info, warn, error) replaces the environment default.
func NewLogger(env, service string, level ...string) (*zap.Logger, error) {
	base, ok := environments[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	cfg := base()
	if env == "prod" {
		cfg.InitialFields = map[string]any{
			"version": version.Version,
			"commit":  version.Commit,
		}
	}

	if len(level) > 0 && level[0] != "" {
		lvl, err := zap.ParseAtomicLevel(level[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level[0], err)
		}
		cfg.Level = lvl
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.Named(service), nil
}
