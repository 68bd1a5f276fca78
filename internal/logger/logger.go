package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Params struct {
	fx.In

	LogLevel zapcore.Level
}

// NewLogger is the fx constructor around New.
func NewLogger(p Params) (*zap.Logger, error) {
	return New(p.LogLevel)
}

// New builds a JSON production logger at warn and above, and a colored
// development logger otherwise.
func New(level zapcore.Level) (*zap.Logger, error) {
	// production mode
	if level >= zapcore.WarnLevel {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		return config.Build()
	}

	// development mode, more detailed logging
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return config.Build()
}
