package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/config"
	"github.com/afigueroah/shucway-app-main-sub002/internal/infra"
	"github.com/afigueroah/shucway-app-main-sub002/internal/observability/metrics"
	"github.com/afigueroah/shucway-app-main-sub002/internal/router"
	"github.com/afigueroah/shucway-app-main-sub002/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event consumers are wired here (composition root) so that the pool has
	// access to the mailer without the services knowing about it.
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	worker.StartWorkerPool(ctx, rdb, worker.Handlers{
		worker.JobEventoCaja: worker.NewNotificacionWorker(mailer, cfg.SupervisorEmail, cfg.CajaSimboloMoneda),
	}, cfg.WorkerPoolSize)

	ledgerCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "venta_ledger"})
	r, cajaSvc, err := router.New(cfg, router.Deps{
		DB:         db,
		Redis:      rdb,
		LedgerCB:   ledgerCB,
		Publicador: dispatcher,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	worker.StartExpiryCron(ctx, cajaSvc, cfg.CajaSweepInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().
			Dur("max_session_age", cfg.CajaMaxSessionAge).
			Msgf("caja backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
