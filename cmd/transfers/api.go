package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dipdup-io/token-transfers/internal/api"
	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/dipdup-io/token-transfers/internal/storage/postgres"
	"github.com/dipdup-net/go-lib/hasura"
	"github.com/rs/zerolog/log"
)

const defaultAPIBind = "0.0.0.0:8080"

func runAPI(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pg, err := postgres.Create(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Err(err).Msg("closing database connection")
		}
	}()

	if cfg.Hasura != nil {
		if err := hasura.Create(ctx, hasura.GenerateArgs{
			Config:         cfg.Hasura,
			DatabaseConfig: cfg.Database,
			Models:         []any{new(storage.Transfer)},
		}); err != nil {
			log.Err(err).Msg("hasura.Create")
		}
	}

	if cfg.Metrics.Bind != "" {
		url, stop, err := api.StartMetricsServer(cfg.Metrics.Bind)
		if err != nil {
			return err
		}
		defer stop()
		log.Info().Str("url", url).Msg("metrics server started")
	}

	handler := api.New(pg.Transfer, api.Options{
		AllowedOrigins:     cfg.API.AllowedOrigins,
		EnableReqLogger:    cfg.API.RequestLogs,
		SlowQueryThreshold: time.Duration(cfg.API.SlowQueryThreshold) * time.Millisecond,
		EnableMetrics:      cfg.Metrics.Bind != "",
	})

	bind := cfg.API.Bind
	if bind == "" {
		bind = defaultAPIBind
	}
	url, stop, err := api.StartServer(bind, handler, time.Duration(cfg.API.ReadTimeout)*time.Second)
	if err != nil {
		return err
	}
	defer stop()
	log.Info().Str("url", url).Msg("API server started")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
	case <-ctx.Done():
	}
	log.Info().Msg("stopping API server...")
	return nil
}
