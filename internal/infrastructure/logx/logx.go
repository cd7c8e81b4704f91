package logx

import (
	"strings"

	"bunkerprices-service/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func init() {
	appCfg := config.Load()

	zapCfg := zap.NewProductionConfig()
	if appCfg.Env == "dev" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if appCfg.LogLevel != "" {
		_ = zapCfg.Level.UnmarshalText([]byte(strings.ToLower(appCfg.LogLevel)))
	}

	var err error
	logger, err = zapCfg.Build(zap.AddCaller(), zap.Fields(zap.String("service", "bunkerprices")))
	if err != nil {
		panic(err)
	}
}

// L returns the process-wide logger.
func L() *zap.Logger { return logger }

// With returns the process logger scoped to a component.
func With(component string) *zap.Logger {
	return logger.With(zap.String("component", component))
}
