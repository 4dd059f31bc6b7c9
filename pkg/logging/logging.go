// Package logging builds the zap loggers shared by the SRIK services.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production logger. Development environments get the console
// encoder; level accepts the zapcore names ("debug", "info", "warn", ...).
func New(service, env, level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if strings.EqualFold(env, "development") || strings.EqualFold(env, "dev") {
		config = zap.NewDevelopmentConfig()
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("service", service)), nil
}
