package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veil/internal/audit"
	"veil/internal/engine"
	"veil/internal/engine/metrics"
	"veil/internal/history"
	"veil/internal/masking"
	"veil/internal/masking/paillier"
	"veil/internal/platform/config"
	"veil/internal/platform/httpserver"
	"veil/internal/platform/logger"
	"veil/internal/platform/postgres"
	platformredis "veil/internal/platform/redis"
	"veil/internal/policy"
	"veil/internal/scoring"
	"veil/internal/token"
	httptransport "veil/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Decision logic lives
// in internal/engine; everything here is plumbing.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	key, err := paillier.GenerateKey(rand.Reader, cfg.PaillierBits)
	if err != nil {
		log.Error("generate encoding keypair", "error", err)
		os.Exit(1)
	}

	policyCfg := policy.Default()
	model, err := scoring.NewModel(scoring.DefaultWeights())
	if err != nil {
		log.Error("build scoring model", "error", err)
		os.Exit(1)
	}

	registry := masking.NewRegistry(
		masking.NewEncoder(&key.PublicKey),
		masking.NewGeneralizer(masking.DefaultGeneralizeRules()),
		masking.NewPerturber(masking.DefaultPerturbConfig(policyCfg.EpsilonFor), nil),
	)

	var db *sql.DB
	if cfg.PostgresURL != "" {
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	historyStore, cleanup, err := buildHistoryStore(ctx, cfg, db, log)
	if err != nil {
		log.Error("connect history store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	primarySink, auditLog, err := buildAuditStore(ctx, db, log)
	if err != nil {
		log.Error("prepare audit store", "error", err)
		os.Exit(1)
	}
	publisherOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()

		// Broker fan-out runs off the decision path; the channel sink drops
		// when the worker falls too far behind.
		fanout := audit.NewChannelSink(256)
		go func() {
			_ = audit.NewWorker(kafkaSink, fanout.Events(), log).Run(workerCtx)
		}()
		publisherOpts = append(publisherOpts, audit.WithSecondary(fanout))
	}
	publisher := audit.NewPublisher(primarySink, publisherOpts...)

	eng, err := engine.NewService(
		model,
		scoring.DefaultFactorParams(),
		policyCfg,
		policy.NewInMemoryOverrideStore(),
		registry,
		historyStore,
		publisher,
		engine.WithLogger(log),
		engine.WithMetrics(metrics.New()),
		engine.WithWindow(cfg.HistoryWindow),
		engine.WithDecrypter(masking.NewDecrypter(key)),
	)
	if err != nil {
		log.Error("build decision engine", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.JWTSigningKey, "veil")
	handler := httptransport.NewHandler(eng, tokens, auditLog, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting veil", "addr", cfg.Addr, "key_id", key.PublicKey.Fingerprint())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildHistoryStore picks the history backend: Postgres when configured, then
// Redis, else the in-process store.
func buildHistoryStore(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (history.Store, func(), error) {
	if db != nil {
		store := history.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("history store", "backend", "postgres")
		return store, func() {}, nil
	}
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("history store", "backend", "redis")
		return history.NewRedisStore(client.Client), func() { client.Close() }, nil
	}
	log.Info("history store", "backend", "memory")
	return history.NewInMemoryStore(), func() {}, nil
}

// buildAuditStore returns the fail-closed primary sink and the trail behind
// the operator listing endpoint. Both are Postgres-backed when a database is
// available.
func buildAuditStore(ctx context.Context, db *sql.DB, log *slog.Logger) (audit.Sink, httptransport.AuditReader, error) {
	if db != nil {
		store := audit.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("audit store", "backend", "postgres")
		return store, store, nil
	}
	log.Info("audit store", "backend", "memory")
	store := audit.NewInMemoryStore()
	return store, store, nil
}
