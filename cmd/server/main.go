package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/api"
	"github.com/yourusername/dataset-fetch-go/api/handlers"
	"github.com/yourusername/dataset-fetch-go/internal/app"
	"github.com/yourusername/dataset-fetch-go/internal/infrastructure"
	"github.com/yourusername/dataset-fetch-go/pkg/logger"
)

var configPath = flag.String("config", "", "Config file path")

func main() {
	flag.Parse()

	if err := runServer(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(configPath string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Data.LogsPath(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize run logs: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting dataset-fetch server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("root_dir", config.Data.RootDir),
		zap.String("convention", config.Data.Convention))

	if err := os.MkdirAll(filepath.Dir(config.Queue.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	repo, err := infrastructure.NewSQLiteRunRepository(config.Queue.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	fs := afero.NewOsFs()
	fetcher := app.NewFetcher(
		fs,
		infrastructure.NewHTTPTransport(fs, &config.Transport),
		infrastructure.NewArchiveExtractor(fs),
		infrastructure.NewRootLock(),
		config.Data.Layout(),
		log,
	)

	runMgr := app.NewRunManager(repo, fetcher, notifier, log)
	queueMgr := app.NewQueueManager(repo, runMgr, &config.Queue, multiLog)
	queueMgr.SetNotifier(notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queueMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue manager: %w", err)
	}

	router := api.SetupRouter(api.RouterDeps{
		QueueMgr:    queueMgr,
		RunMgr:      runMgr,
		Planner:     fetcher,
		Data:        config.Data,
		Logger:      log,
		MultiLogger: multiLog,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// cancels the in-flight run before waiting for the worker
	cancel()
	if err := queueMgr.Stop(); err != nil {
		log.Error("Error stopping queue manager", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
