package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pratik-mahalle/satwatch/internal/api/handlers"
	"github.com/pratik-mahalle/satwatch/internal/api/middleware"
	"github.com/pratik-mahalle/satwatch/internal/api/router"
	"github.com/pratik-mahalle/satwatch/internal/config"
	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/publisher"
	"github.com/pratik-mahalle/satwatch/internal/services"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/worker"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	log.WithFields(map[string]interface{}{
		"backend": cfg.Backend.BaseURL,
		"addr":    cfg.Server.Addr(),
	}).Info("Starting satwatchd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiClient := client.NewClient(client.Config{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.Backend.Timeout,
		HealthTimeout: cfg.Backend.HealthTimeout,
	})

	store := state.New()
	syncer := services.NewSynchronizer(apiClient, store, log, cfg.Backend.AnomalyLimit)
	monitor := services.NewMonitor(apiClient, store, log)
	poller := worker.NewPoller(syncer, monitor, worker.Intervals{
		Health:     cfg.Polling.HealthInterval,
		Satellites: cfg.Polling.SatellitesInterval,
		Anomalies:  cfg.Polling.AnomaliesInterval,
		Stats:      cfg.Polling.StatsInterval,
	}, log)

	if cfg.Redis.Enabled() {
		rdb, err := publisher.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, dashboard publishing disabled")
		} else {
			defer rdb.Close()
			pub := publisher.New(rdb, store, cfg.Redis.Channel, log)
			go pub.Run(ctx)
		}
	}

	hub := handlers.NewStreamHub(store, log)
	go hub.Run(ctx)

	refreshLimiter := middleware.NewRateLimiter(cfg.Server.RefreshRate, cfg.Server.RefreshBurst)
	go refreshLimiter.RunCleanup(ctx, time.Minute)

	h := &router.Handlers{
		Health:    handlers.NewHealthHandler(store, log),
		Dashboard: handlers.NewDashboardHandler(store, poller, log),
		Stream:    handlers.NewStreamHandler(hub, cfg.Server.AllowedOrigins, log),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.New(cfg, log, h, refreshLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.With("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorWithErr(err, "HTTP server exited")
			stop()
		}
	}()

	if err := poller.Start(ctx); err != nil {
		log.ErrorWithErr(err, "Failed to start poller")
		stop()
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
	poller.Stop()

	log.Info("satwatchd stopped")
}
