package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tecnolua/ClubePharma/internal/auth"
	"github.com/tecnolua/ClubePharma/internal/cart"
	"github.com/tecnolua/ClubePharma/internal/catalog"
	"github.com/tecnolua/ClubePharma/internal/config"
	"github.com/tecnolua/ClubePharma/internal/coupons"
	"github.com/tecnolua/ClubePharma/internal/httpx"
	kafkax "github.com/tecnolua/ClubePharma/internal/kafka"
	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/mercadopago"
	"github.com/tecnolua/ClubePharma/internal/orders"
	"github.com/tecnolua/ClubePharma/internal/payments"
	"github.com/tecnolua/ClubePharma/internal/postgres"
	"github.com/tecnolua/ClubePharma/internal/redisx"
	"github.com/tecnolua/ClubePharma/internal/tracing"
)

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	lg := logger.Init(cfg.ServiceName, cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.AppEnv, cfg.JaegerEndpoint)
	if err != nil {
		lg.Fatal().Err(err).Msg("tracing")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		lg.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		lg.Fatal().Err(err).Msg("db migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	emitter := kafkax.NewEmitter(cfg.ServiceName)
	var producers []*kafkax.Producer
	for _, topic := range []string{
		orders.TopicOrderCreated,
		orders.TopicOrderCancelled,
		orders.TopicOrderStatusChanged,
		payments.TopicPaymentApproved,
	} {
		p := kafkax.NewProducer(cfg.KafkaBrokers(), topic, 1024)
		p.Start(ctx)
		emitter.Register(topic, p)
		producers = append(producers, p)
	}

	// Services
	gateway := mercadopago.New(mercadopago.Config{
		BaseURL:         cfg.MercadoPagoBaseURL,
		AccessToken:     cfg.MercadoPagoToken,
		FrontendURL:     cfg.FrontendURL,
		NotificationURL: cfg.WebhookURL(),
	})
	orderRepo := &orders.Repo{DB: db}
	payRepo := payments.NewRepo(db)

	router := httpx.NewRouter(httpx.Deps{
		Logger:       lg,
		ExposeErrors: cfg.ExposeErrors(),
		Verifier:     auth.NewHS256(cfg.JWTSecret),
		Directory:    &auth.PgDirectory{DB: db},
		Orders:       orders.NewService(orderRepo, emitter),
		Idempotency:  redisx.NewIdempotency(rdb),
		Cart:         cart.NewService(&cart.Repo{DB: db}),
		Catalog:      catalog.NewService(&catalog.Repo{DB: db}),
		Payments:     payments.NewService(payRepo, gateway),
		Webhooks:     payments.NewReconciler(gateway, payRepo, redisx.NewDedup(rdb), emitter),
		Coupons:      coupons.NewService(&coupons.Repo{DB: db}),
		Health: map[string]httpx.Pinger{
			"postgres": db,
			"redis":    redisPinger{rdb},
		},
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		lg.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		lg.Warn().Err(err).Msg("http shutdown")
	}
	for _, p := range producers {
		p.Close() // close inbox, flush and close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	if err := shutdownTracing(sctx); err != nil {
		lg.Warn().Err(err).Msg("tracing shutdown")
	}
}
