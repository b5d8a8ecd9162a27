package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tecnolua/ClubePharma/internal/config"
	kafkax "github.com/tecnolua/ClubePharma/internal/kafka"
	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/notify"
	"github.com/tecnolua/ClubePharma/internal/postgres"
	"github.com/tecnolua/ClubePharma/internal/redisx"
	"github.com/tecnolua/ClubePharma/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	service := cfg.ServiceName + "-notifier"
	lg := logger.Init(service, cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.With(ctx, lg)

	shutdownTracing, err := tracing.Init(service, cfg.AppEnv, cfg.JaegerEndpoint)
	if err != nil {
		lg.Fatal().Err(err).Msg("tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// DB, for recipient lookups only
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		lg.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		lg.Fatal().Err(err).Msg("smtp")
	}
	h := notify.NewHandler(mailer, &notify.PgDirectory{DB: db}, redisx.NewDedup(rdb))

	topics := notify.Topics()
	cons := kafkax.NewConsumer(cfg.KafkaBrokers(), cfg.NotifierGroup, topics, cfg.NotifierWorkers)
	lg.Info().
		Str("group", cfg.NotifierGroup).
		Strs("topics", topics).
		Int("workers", cfg.NotifierWorkers).
		Msg("notifier consumer started")

	// Start returns when ctx ends or the reader fails.
	if err := cons.Start(ctx, h.Handle); err != nil && ctx.Err() == nil {
		lg.Error().Err(err).Msg("consumer exit")
	}
	lg.Info().Msg("notifier stopped")
}
