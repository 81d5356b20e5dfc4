package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/config"
	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/handlers"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/KDR9MGR/digital-payments-sub001/internal/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payments api",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	database, err := db.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	router, orchestrator := handlers.NewRouter(database, cfg, logger)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()

	sweeper := sweep.NewSweeper(
		repository.NewTransactionRepository(database),
		repository.NewIdempotencyRepository(database),
		orchestrator,
		orchestrator.Processor(),
		logger,
		cfg.Sweep,
	)
	go sweeper.Run(sweepCtx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
