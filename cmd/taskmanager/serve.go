package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/ai-task-manager-go/internal/handlers"
	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/middleware"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/ai-task-manager-go/internal/services/assistant"
	"github.com/ai-task-manager-go/internal/services/cache"
	"github.com/ai-task-manager-go/internal/services/conversation"
	"github.com/ai-task-manager-go/internal/services/storage"
	"github.com/ai-task-manager-go/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err := logger.NewLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log.Info("Starting AI Task Manager...")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metrics := middleware.NewMetrics()
		if cfg.Monitoring.Metrics.Enabled {
			go func() {
				log.WithFields(logrus.Fields{
					"port": cfg.Monitoring.Metrics.Port,
					"path": cfg.Monitoring.Metrics.Path,
				}).Info("Starting metrics server")

				if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
					log.WithError(err).Error("Metrics server failed")
				}
			}()
		}

		gateway := ai.New(cfg.AI, log, metrics)
		metrics.SetAIEnabled(gateway.Provider(), gateway.Enabled())

		storageManager, err := storage.NewManager(ctx, cfg.Storage, log, metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer storageManager.Close()

		localizer, err := i18n.NewLocalizer(cfg.I18n)
		if err != nil {
			return fmt.Errorf("failed to initialize i18n: %w", err)
		}

		cacheService := cache.NewCache(cfg.Cache, log, metrics)
		assistantService := assistant.NewService(gateway, cacheService, log, metrics)
		bridge := conversation.NewBridge(storageManager, gateway, localizer, cfg.Context.MaxMessages, log)

		router := handlers.NewRouter(handlers.Dependencies{
			Config:    cfg,
			Logger:    log,
			Localizer: localizer,
			Metrics:   metrics,
			Limiter:   middleware.NewRateLimiter(cfg, log),
			Gateway:   gateway,
			Storage:   storageManager,
			Assistant: assistantService,
			Bridge:    bridge,
		})

		scheduler := startPeriodicTasks(ctx, storageManager, metrics, log)
		defer scheduler.Stop()

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithFields(logrus.Fields{
				"port":     cfg.Server.Port,
				"storage":  storageManager.Type(),
				"provider": gateway.Provider(),
			}).Info("HTTP server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server failed: %w", err)
			}
		case <-ctx.Done():
			log.Info("Shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}

		log.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// startPeriodicTasks refreshes the stored-count gauges every minute
func startPeriodicTasks(ctx context.Context, storage *storage.Manager, metrics *middleware.Metrics, log *logrus.Logger) *cron.Cron {
	scheduler := cron.New()
	refresh := func() {
		tasks, messages, err := storage.Counts(ctx)
		if err != nil {
			log.WithError(err).Debug("Failed to refresh stored counts")
			return
		}
		metrics.SetStoredCounts(tasks, messages)
	}

	if _, err := scheduler.AddFunc("@every 1m", refresh); err != nil {
		log.WithError(err).Error("Failed to schedule count refresh")
	}
	refresh()
	scheduler.Start()
	return scheduler
}
