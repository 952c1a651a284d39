package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/treasury/internal/app"
	"github.com/MrJamesThe3rd/treasury/internal/auth"
	"github.com/MrJamesThe3rd/treasury/internal/config"
	"github.com/MrJamesThe3rd/treasury/internal/discord"
	treasuryHttp "github.com/MrJamesThe3rd/treasury/internal/http"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	bankHandler "github.com/MrJamesThe3rd/treasury/internal/http/bank"
	companyHandler "github.com/MrJamesThe3rd/treasury/internal/http/company"
	"github.com/MrJamesThe3rd/treasury/internal/http/login"
	txHandler "github.com/MrJamesThe3rd/treasury/internal/http/transaction"
	userHandler "github.com/MrJamesThe3rd/treasury/internal/http/user"
)

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	svc := app.NewServices(repos)

	if cfg.Bootstrap.Username != "" {
		u, created, err := svc.Users.Bootstrap(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password)
		if err != nil {
			return fmt.Errorf("bootstrap superuser: %w", err)
		}

		if created {
			slog.Info("created first superuser", "username", u.Username)
		}
	}

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Expiry)
	discordClient := discord.New(discord.Config{
		ClientID:     cfg.Discord.ClientID,
		ClientSecret: cfg.Discord.ClientSecret,
		RedirectURL:  cfg.Discord.RedirectURL,
	})

	if !discordClient.Configured() {
		slog.Info("discord linking disabled")
	}

	mw := authn.New(tokens, repos.Users)

	router := treasuryHttp.New(treasuryHttp.Handlers{
		Authn:        mw,
		Login:        login.NewHandler(svc.Users, tokens, mw),
		Users:        userHandler.NewHandler(svc.Users, tokens, discordClient, mw),
		Companies:    companyHandler.NewHandler(svc.Companies),
		Banks:        bankHandler.NewHandler(svc.Banks),
		Transactions: txHandler.NewHandler(svc.Transactions, svc.Parser),
	}, cfg.CORS.Origins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "driver", cfg.DB.Driver)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
