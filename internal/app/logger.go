package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "studio_booking"

// NewLogger JSON в production, цветной консольный вывод в остальных окружениях
func NewLogger(env string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     env,
	}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger
}
