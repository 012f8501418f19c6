package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hasali19/tress/app/api"
	"github.com/hasali19/tress/app/cfg"
	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/enrich"
	"github.com/hasali19/tress/app/feed"
	"github.com/hasali19/tress/app/push"
	"github.com/hasali19/tress/app/worker"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if config.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting Tress server", "version", cfg.GetVersion())

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", config.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	if config.VAPIDPublicKey == "" || config.VAPIDPrivateKey == "" {
		slog.Warn("VAPID keys not configured, push notifications will fail until they are set")
	}

	feedRepo := database.NewFeedRepository(db)
	postRepo := database.NewPostRepository(db)
	subRepo := database.NewSubscriptionRepository(db)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	parser := feed.NewParser()
	fetcher := enrich.NewFetcher(httpClient, config.UserAgent, enrich.DefaultRetryPolicy())
	pushClient := push.NewClient(httpClient, config.VAPIDSubject,
		config.VAPIDPublicKey, config.VAPIDPrivateKey)

	ingestor := worker.NewIngestor(postRepo, subRepo, fetcher, pushClient)
	syncWorker := worker.New(feedRepo, ingestor, parser, httpClient, config.UserAgent,
		time.Duration(config.SyncInterval)*time.Second)
	syncWorker.Start()
	defer syncWorker.Stop()

	apiHandler := api.NewHandler(feedRepo, postRepo, subRepo, syncWorker,
		parser, httpClient, config.UserAgent, config.VAPIDPublicKey)
	server := api.NewServer(apiHandler, config.UIDir)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Worker is stopped via defer: the in-flight sync settles, queued
	// requests are dropped.
	slog.Info("Shutdown complete")
}
