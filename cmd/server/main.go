package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	banhandler "headcount/internal/ban/handler"
	occupancyhandler "headcount/internal/occupancy/handler"
	reporthandler "headcount/internal/report/handler"
	scanhandler "headcount/internal/scan/handler"

	"headcount/internal/ban"
	"headcount/internal/db"
	"headcount/internal/identity"
	"headcount/internal/occupancy"
	occupancycache "headcount/internal/occupancy/cache"
	occupancymetrics "headcount/internal/occupancy/metrics"
	"headcount/internal/platform/config"
	"headcount/internal/platform/httpserver"
	"headcount/internal/platform/logger"
	"headcount/internal/platform/postgres"
	platformredis "headcount/internal/platform/redis"
	"headcount/internal/policy"
	"headcount/internal/report"
	"headcount/internal/scan"
	"headcount/internal/scan/aamva"
	scanmetrics "headcount/internal/scan/metrics"
	httptransport "headcount/internal/transport/http"
	"headcount/pkg/platform/audit/consumer"
	"headcount/pkg/platform/audit/outbox"
	auditpostgres "headcount/pkg/platform/audit/store/postgres"
	"headcount/pkg/platform/audit/publisher"
	"headcount/pkg/platform/middleware/auth"
	"headcount/pkg/platform/middleware/throttle"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services; everything here is construction order and
// shutdown.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.IdentitySecretDefault {
		log.Warn("identity secret is the development default; ban tokens will not survive a production rollout")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditStore := auditpostgres.New(pool)
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	if len(cfg.Kafka.Brokers) > 0 {
		relay, err := outbox.NewRelay(ctx, pool, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, cfg.Kafka.PollInterval, log)
		if err != nil {
			log.Error("outbox relay setup failed", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox relay stopped", "error", err)
			}
		}()

		auditConsumer, err := consumer.New(cfg.Kafka.Brokers, "headcount-audit", cfg.Kafka.AuditTopic, auditStore, log)
		if err != nil {
			log.Error("audit consumer setup failed", "error", err)
			os.Exit(1)
		}
		defer auditConsumer.Close()
		go func() {
			if err := auditConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	hasher := identity.NewHasher(cfg.IdentitySecret)
	identityStore := identity.NewPostgres(pool)
	policyService := policy.NewService(policy.NewPostgres(pool))
	scanStore := scan.NewPostgres(pool)
	banService := ban.NewService(ban.NewPostgres(pool), hasher, scanStore, auditPublisher, log)

	occupancyStore := occupancy.NewPostgres(pool)
	occupancyService := occupancy.NewService(
		occupancyStore,
		occupancycache.New(redisClient),
		auditPublisher,
		occupancymetrics.New(),
		log,
	)

	scanService := scan.NewService(
		aamva.New(),
		hasher,
		scanStore,
		banService,
		policyService,
		occupancyService,
		identityStore,
		auditPublisher,
		scanmetrics.New(),
		log,
	)

	reportService := report.NewService(occupancyStore)

	verifier := auth.NewVerifier(cfg.JWTSigningKey)
	limiter := throttle.NewLimiter(cfg.Throttle.Limit, cfg.Throttle.Window)
	router := httptransport.NewRouter(verifier, limiter, log,
		scanhandler.New(scanService, log),
		banhandler.New(banService, log),
		occupancyhandler.New(occupancyService, log),
		reporthandler.New(reportService, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("headcount listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
