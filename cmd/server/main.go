// Package main is the entrypoint for the MailSense API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/sahanas/mailsense/internal/analyzer"
	"github.com/sahanas/mailsense/internal/api"
	"github.com/sahanas/mailsense/internal/api/handler"
	mw "github.com/sahanas/mailsense/internal/api/middleware"
	"github.com/sahanas/mailsense/internal/cache"
	"github.com/sahanas/mailsense/internal/config"
	"github.com/sahanas/mailsense/internal/gmail"
	"github.com/sahanas/mailsense/internal/ollama"
	"github.com/sahanas/mailsense/internal/seed"
	"github.com/sahanas/mailsense/internal/store"
	"github.com/sahanas/mailsense/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "mailbox_provider", cfg.Mailbox.Provider, "model", cfg.Ollama.Model, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and resolve the default user the mailbox is bound to
	pgStore := store.NewPostgresStore(pool)
	defaultUser, err := pgStore.GetDefaultUser(ctx)
	if err != nil {
		return fmt.Errorf("load default user: %w", err)
	}

	// 6. Create model backend
	backend := ollama.NewClient(cfg.Ollama)
	if backend.Available(ctx) {
		slog.Info("model backend reachable", "backend", backend.Name(), "model", cfg.Ollama.Model)
	} else {
		slog.Warn("model backend unreachable, analysis will use heuristic fallbacks", "backend", backend.Name())
	}

	// 7. Create mailbox provider
	mailbox, err := buildMailbox(ctx, cfg, redisCache, defaultUser)
	if err != nil {
		return fmt.Errorf("create mailbox provider: %w", err)
	}
	slog.Info("mailbox provider ready", "provider", cfg.Mailbox.Provider)

	// 8. Build router with dependencies
	triage := handler.NewTriage(pgStore, redisCache, mailbox, analyzer.New(backend, logger), logger)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler:       handler.NewHealthHandler(pgStore, redisCache, backend, cfg.Mailbox.Provider),
		InboxHandler:        handler.NewInboxHandler(mailbox),
		ListMessagesHandler: handler.NewListMessagesHandler(pgStore),
		MessageHandler:      handler.NewMessageHandler(triage),
		ReplyHandler:        handler.NewReplyHandler(triage),
		SendHandler:         handler.NewSendHandler(triage),
		PrioritizeHandler:   handler.NewPrioritizeHandler(triage),
		AnalyticsHandler:    handler.NewAnalyticsHandler(pgStore),
		CreateKeyHandler:    handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:     handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:    handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// buildMailbox selects the mailbox provider. The Gmail provider needs an
// OAuth token provisioned in the cache for the default user; the seed
// provider reads a local CSV and needs no credentials.
func buildMailbox(ctx context.Context, cfg *config.Config, c cache.Cache, user *models.User) (models.Mailbox, error) {
	switch cfg.Mailbox.Provider {
	case "seed":
		return seed.Load(cfg.Mailbox.SeedFile)
	case "gmail":
		raw, found, err := c.GetOAuthToken(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("read oauth token: %w", err)
		}
		if !found {
			return nil, fmt.Errorf("no oauth token for user %s; provision one with the oauth helper before starting with MAILBOX_PROVIDER=gmail", user.ID)
		}
		var token oauth2.Token
		if err := json.Unmarshal(raw, &token); err != nil {
			return nil, fmt.Errorf("decode oauth token: %w", err)
		}
		return gmail.NewClient(ctx, cfg.Google, &token)
	default:
		return nil, fmt.Errorf("unknown mailbox provider %q", cfg.Mailbox.Provider)
	}
}
