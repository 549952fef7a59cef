package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"terangahub.app/push/internal/application"
	"terangahub.app/push/internal/config"
	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/infrastructure/postgres"
	"terangahub.app/push/internal/infrastructure/redis"
	"terangahub.app/push/internal/infrastructure/sqlite"
	"terangahub.app/push/internal/infrastructure/webpush"
	kafkaconsumer "terangahub.app/push/internal/kafka"
	"terangahub.app/push/internal/metrics"
	transporthttp "terangahub.app/push/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Msg("starting terangahub-push")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Subscription store ────────────────────────────────────────────────────
	repo, closeStore := openStore(ctx, cfg.Database)
	defer closeStore()

	// ── Metrics ──────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ── Push sender & SSE Hub ─────────────────────────────────────────────────
	sender := webpush.New(webpush.Config{
		PublicKey:  cfg.VAPID.PublicKey,
		PrivateKey: cfg.VAPID.PrivateKey,
		Subscriber: cfg.VAPID.Subscriber,
		TTL:        cfg.VAPID.TTL,
		Urgency:    cfg.VAPID.Urgency,
		Timeout:    cfg.VAPID.Timeout,
	})
	hub := transporthttp.NewHub()

	// ── Application Service ───────────────────────────────────────────────────
	svc := application.NewService(repo, sender, hub, m, application.Options{PruneOnGone: cfg.VAPID.PruneOnGone})

	// ── HTTP Server ───────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc, hub, m, cfg.VAPID.PublicKey, cfg.Database.Driver)
	router := transporthttp.NewRouter(handler, transporthttp.AuthConfig{
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		UserRole:    cfg.Auth.UserRole,
		ServiceRole: cfg.Auth.ServiceRole,
	}, reg)

	// ── Kafka Consumer (optional) ─────────────────────────────────────────────
	if cfg.Kafka.Enabled {
		var dedupe kafkaconsumer.Deduper
		if cfg.Redis.Addr != "" {
			d, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.DedupeTTL)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to connect to redis")
			}
			defer d.Close()
			dedupe = d
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis event de-duplication enabled")
		}

		consumer, err := kafkaconsumer.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.ConsumerGroupID,
			cfg.Kafka.Topics,
			kafkaconsumer.NewProcessor(svc, dedupe, m),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka consumer")
		}

		go consumer.Start(ctx)
		log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")
	}

	// ── Start HTTP Server ─────────────────────────────────────────────────────
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("terangahub-push stopped")
}

// openStore connects the configured subscription backend and applies its schema.
func openStore(ctx context.Context, db config.DatabaseConfig) (domain.SubscriptionRepository, func()) {
	switch db.Driver {
	case "sqlite":
		repo, err := sqlite.Open(db.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", db.SQLitePath).Msg("failed to open sqlite store")
		}
		log.Info().Str("path", db.SQLitePath).Msg("sqlite store ready")
		return repo, func() { _ = repo.Close() }

	default:
		pool, err := pgxpool.New(ctx, db.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		repo := postgres.New(pool)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres migration failed")
		}
		log.Info().Msg("postgres connected")
		return repo, pool.Close
	}
}
