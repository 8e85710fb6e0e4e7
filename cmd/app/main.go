package main

import (
	"context"
	"time"

	"roombook/config"
	"roombook/di"
	"roombook/helper"
	"roombook/shared/logger"

	"github.com/rs/zerolog/log"
)

const otelFlushTimeout = 5 * time.Second

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg.Server.Env)

	logger.SetLogLevel(cfg)

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	app := di.InitializeService()

	app.Reminder.Start(context.Background())

	app.HTTP.OnShutdown(app.Reminder.Stop)
	app.HTTP.OnShutdown(func() {
		if err := app.Kafka.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close kafka writers")
		}
	})
	app.HTTP.OnShutdown(func() {
		if err := app.DB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database pools")
		}
	})
	app.HTTP.OnShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), otelFlushTimeout)
		defer cancel()

		if err := app.Otel.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	})

	app.HTTP.Serve()
}
