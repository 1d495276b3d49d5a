package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/logistica-inteligente/logistica/internal/app"
	"github.com/logistica-inteligente/logistica/internal/auth"
	"github.com/logistica-inteligente/logistica/internal/guard"
	"github.com/logistica-inteligente/logistica/internal/platform/cache"
	"github.com/logistica-inteligente/logistica/internal/platform/db"
	"github.com/logistica-inteligente/logistica/internal/session"
	"github.com/logistica-inteligente/logistica/internal/syncer"
	"github.com/logistica-inteligente/logistica/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping cli startup")
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

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Error("init session store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	userSyncer, closeSyncer := buildSyncer(cfg)
	defer closeSyncer()

	controller, err := auth.NewController(auth.ControllerConfig{
		Provider:    buildProvider(cfg),
		Store:       store,
		Syncer:      userSyncer,
		SyncTimeout: cfg.SyncTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("init auth controller", slog.Any("error", err))
		os.Exit(1)
	}
	defer controller.Close()

	command := "status"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	if err := run(ctx, controller, command, args); err != nil {
		logger.Error("command failed",
			slog.String("command", command),
			slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, controller *auth.Controller, command string, args []string) error {
	switch command {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		remember := fs.String("remember", "", "path to resume after login")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := controller.Login(ctx, *email, *password); err != nil {
			return err
		}
		user := controller.CurrentUser()
		fmt.Printf("signed in as %s\n", user.Email)
		fmt.Printf("continue to %s\n", guard.Resume(*remember))
		return nil

	case "logout":
		controller.InitializeAuth(ctx)
		if err := controller.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil

	case "status":
		controller.InitializeAuth(ctx)
		snap := controller.Snapshot()
		if user := snap.User(); snap.State == auth.StateAuthenticated && user != nil {
			fmt.Printf("authenticated as %s (expires %s)\n",
				user.Email, snap.Session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		}
		fmt.Println("not authenticated")
		return nil

	case "open":
		fs := flag.NewFlagSet("open", flag.ExitOnError)
		path := fs.String("path", guard.DefaultLandingPath, "application path to navigate to")
		if err := fs.Parse(args); err != nil {
			return err
		}
		controller.InitializeAuth(ctx)
		decision := guard.Evaluate(controller.Snapshot(), *path)
		if decision.Allow {
			fmt.Printf("allowed: %s\n", *path)
			return nil
		}
		fmt.Printf("redirect to %s (remembering %s)\n", decision.RedirectTo, decision.RememberPath)
		return nil

	default:
		return fmt.Errorf("unknown command %q (expected login, logout, status or open)", command)
	}
}

func buildProvider(cfg *app.Config) auth.Provider {
	if cfg.AuthProvider == "remote" {
		return auth.NewRemoteProvider(auth.RemoteConfig{
			BaseURL: cfg.IdentityURL,
			APIKey:  cfg.IdentityAPIKey,
		})
	}
	return auth.NewMockProvider(nil, auth.WithMockTTL(cfg.SessionTTL))
}

func buildStore(ctx context.Context, cfg *app.Config) (auth.SessionStore, func(), error) {
	switch cfg.SessionStore {
	case "redis":
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.SessionProfile), func() { _ = client.Close() }, nil
	case "postgres":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewPostgresStore(pool, cfg.SessionProfile)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	default:
		return session.NewFileStore(cfg.SessionFile), func() {}, nil
	}
}

func buildSyncer(cfg *app.Config) (auth.UserSyncer, func()) {
	switch cfg.SyncMode {
	case "queue":
		client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		return jobs.NewQueueSyncer(client), func() { _ = client.Close() }
	case "off":
		return nil, func() {}
	default:
		return syncer.NewHTTPSyncer(cfg.SyncURL, cfg.SyncTimeout), func() {}
	}
}
