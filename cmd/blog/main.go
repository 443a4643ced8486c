// Package main はブログサーバーのエントリーポイントです。
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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/config"
	"github.com/yourusername/blog-forge/internal/logging"
	"github.com/yourusername/blog-forge/internal/storage"
	"github.com/yourusername/blog-forge/internal/web"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "blog",
		Short:        "Multi-user blog server",
		SilenceUsage: true,
		// サブコマンド省略時は serve と同じ
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newHashPasswordCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// bootstrap は設定・ロガー・ストアを初期化します。
func bootstrap(ctx context.Context) (*config.Config, *logrus.Logger, *storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	store, err := storage.Open(cfg.DatabasePath, logging.GormLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	return cfg, logger, store, nil
}

func runServe(ctx context.Context) error {
	cfg, logger, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is not set; using the development secret")
	}

	authManager := auth.NewManager(cfg, store, logger)

	var notifier web.Notifier
	if cfg.NotificationsEnabled() {
		manager, cleanup, err := setupJobs(cfg, store, logger)
		if err != nil {
			return fmt.Errorf("failed to set up jobs: %w", err)
		}
		defer cleanup()
		manager.StartWorkers()
		notifier = manager
		logger.Info("comment notification workers started")
	} else {
		logger.Info("QUEUE_REDIS_URL is not set; comment notifications are disabled")
	}

	server, err := web.NewServer(cfg, store, authManager, notifier, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "mode": cfg.GinMode}).Info("starting blog server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-stop.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}
	return nil
}
