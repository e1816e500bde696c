package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Alive/internal/config/server"
	"github.com/NordCoder/Alive/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := obs.NewLogger(*cfg.AsLoggerConfig())
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	o, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enable {
		logger.Info("otel enabled", zap.String("endpoint", cfg.OTEL.OTLPEndpoint))
	}
	return o.Shutdown, nil
}
