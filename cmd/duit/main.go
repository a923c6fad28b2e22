package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"duit/internal/amqp"
	"duit/internal/config"
	apphttp "duit/internal/http"
	applog "duit/internal/log"
	"duit/internal/services"
	"duit/internal/storage"
	"duit/internal/store"
	"duit/internal/store/memory"
	"duit/internal/store/remote"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Choose upstream backend (default: remote). Memory keeps all
	// state in process for local development.
	backend := os.Getenv("DATA_BACKEND")
	if backend == "" {
		backend = "remote"
	}

	var (
		txSource  store.TransactionSource
		directory store.UserDirectory
	)
	switch backend {
	case "memory":
		mem := memory.NewStore()
		txSource, directory = mem, mem
		logger.Info("Initialized memory backend", "backend", backend)
	default:
		cli := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, logger.WithComponent(applog.ComponentRemote))
		txSource, directory = cli, cli
		logger.Info("Initialized remote backend", "backend", backend, "base_url", cfg.RemoteBaseURL)
	}

	// AMQP is optional; without it the periodic worker catch-up still
	// pushes local writes upstream.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, sync messages disabled", "error", err)
			amqpClient = nil
		}
	}

	txService := services.NewTransactionService(repo, txSource, amqpClient)
	authService := services.NewAuthService(repo, directory, cfg.OwnerUsername, cfg.OwnerPassword)

	srv := apphttp.NewServer(":"+cfg.Port, txService, authService)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting duit server", "port", cfg.Port, "backend", backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
