// Command gmail-auth provisions a Gmail OAuth token for the default user.
// It prints the consent URL, reads the authorization code from stdin,
// exchanges it, and stores the token in Redis where the server expects it.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sahanas/mailsense/internal/cache"
	"github.com/sahanas/mailsense/internal/config"
	"github.com/sahanas/mailsense/internal/gmail"
	"github.com/sahanas/mailsense/internal/store"
)

// Tokens carry a refresh token, so the cache entry can outlive the access
// token itself.
const tokenTTL = 30 * 24 * time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("gmail-auth failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	ctx := context.Background()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	user, err := store.NewPostgresStore(pool).GetDefaultUser(ctx)
	if err != nil {
		return fmt.Errorf("load default user: %w", err)
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	oauthCfg := gmail.OAuthConfig(cfg.Google)
	fmt.Println("Open this URL in a browser and approve access:")
	fmt.Println()
	fmt.Println(oauthCfg.AuthCodeURL("state-token"))
	fmt.Println()
	fmt.Print("Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}

	token, err := oauthCfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := redisCache.SetOAuthToken(ctx, user.ID, raw, tokenTTL); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	fmt.Printf("Token stored for user %s. Start the server with MAILBOX_PROVIDER=gmail.\n", user.ID)
	return nil
}
