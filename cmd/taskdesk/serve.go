package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"taskdesk/internal/chat"
	"taskdesk/internal/config"
	"taskdesk/internal/reminder"
	"taskdesk/internal/server"
	"taskdesk/internal/storage"
	"taskdesk/internal/storage/sqlite"
	"taskdesk/internal/tasks"
	"taskdesk/internal/webhook"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the web app and the due date sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(cfg config.Config, logger *slog.Logger) error {
	logger.Info("taskdesk starting", slog.String("version", Version))
	gin.SetMode(gin.ReleaseMode)

	kv, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := tasks.Open(ctx, kv, logger)

	chatOpts := []chat.Option{}
	if cfg.WebhookURL != "" {
		chatOpts = append(chatOpts, chat.WithAssistant(webhook.New(cfg.WebhookURL, cfg.WebhookTimeout)))
	} else {
		logger.Info("no AI webhook configured; chat answers locally only")
	}
	router := chat.NewRouter(store, logger, chatOpts...)

	feed := reminder.NewFeed(0)
	sweeper := &reminder.Sweeper{
		Source: store.Active,
		Observer: reminder.Multi{
			reminder.LogObserver{Logger: logger},
			reminder.Gate{
				Allowed: func() bool {
					on, err := storage.GetBool(ctx, kv, storage.NotificationsKey, false)
					if err != nil {
						logger.Warn("reading notification preference", slog.String("error", err.Error()))
					}
					return on
				},
				Next: feed,
			},
		},
		Interval:  cfg.SweepInterval,
		Lookahead: cfg.DueSoonWindow,
		Logger:    logger,
	}
	var sweeps sync.WaitGroup
	sweeps.Add(1)
	go func() {
		defer sweeps.Done()
		sweeper.Run(ctx)
	}()
	// The sweep must finish before kv.Close runs.
	defer sweeps.Wait()

	srv := server.New(server.Options{
		Store:     store,
		Chat:      router,
		Prefs:     kv,
		Alerts:    feed,
		Logger:    logger,
		StaticDir: cfg.StaticDir,
		PublicURL: cfg.PublicURL,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	err = serveUntil(ctx, httpServer, logger)
	stop()
	return err
}

// serveUntil runs httpServer until ctx is done or the listener fails, then
// shuts it down. A listener failure is returned.
func serveUntil(ctx context.Context, httpServer *http.Server, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	<-serveErr

	logger.Info("server stopped")
	return nil
}
