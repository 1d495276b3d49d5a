package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/logistica-inteligente/logistica/internal/app"
	"github.com/logistica-inteligente/logistica/internal/idp"
	"github.com/logistica-inteligente/logistica/internal/observability"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping idp startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	accounts, err := idp.SeedAccounts()
	if err != nil {
		logger.Error("seed accounts", slog.Any("error", err))
		os.Exit(1)
	}

	server := idp.NewServer(idp.ServerConfig{
		Logger:        logger,
		SessionTTL:    cfg.IDPSessionTTL,
		RatePerMinute: cfg.IDPRatePerMinute,
		Secure:        cfg.IsProduction(),
		Metrics:       observability.NewMetrics(),
	}, accounts)

	httpServer := &http.Server{
		Addr:         cfg.IDPAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("identity server listening", slog.String("addr", cfg.IDPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("identity server", slog.Any("error", err))
		os.Exit(1)
	}
}
