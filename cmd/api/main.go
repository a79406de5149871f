package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"arcpay/internal/config"
	"arcpay/internal/core/reconcile"
	"arcpay/internal/gateway"
	"arcpay/internal/gateway/proxy"
	"arcpay/internal/gateway/razorpay"
	httpx "arcpay/internal/http"
	paymentsvc "arcpay/internal/services/payment"
	"arcpay/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	ledger := postgres.NewLedger(pool)

	var gw gateway.Client
	switch cfg.Gateway.Mode {
	case "proxy":
		gw = proxy.New(cfg.Gateway.ProxyURL, cfg.Gateway.KeyID, cfg.Gateway.Timeout)
	default:
		gw = razorpay.New(cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	}

	svc := paymentsvc.NewService(ledger, gw)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
	}

	worker := reconcile.NewWorker(ledger, cfg.Reconcile.StaleAfter, cfg.Reconcile.PollEvery)
	go worker.Run(ctx)

	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:  cfg,
		Service: svc,
		Redis:   rdb,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("mode", cfg.Gateway.Mode).Msgf("arcpay API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
