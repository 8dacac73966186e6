package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the MailSense server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ollama   OllamaConfig
	Mailbox  MailboxConfig
	Google   GoogleConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// OllamaConfig configures the model backend adapter. Model is the preferred
// model; the adapter always appends the free default as a fallback when
// Model differs from it.
type OllamaConfig struct {
	BaseURL      string
	Model        string
	ProbeTimeout time.Duration
	LocalTimeout time.Duration
	CloudTimeout time.Duration
}

// MailboxConfig selects the mailbox provider: "gmail" or "seed".
type MailboxConfig struct {
	Provider string
	SeedFile string
	MaxFetch int
}

// GoogleConfig holds OAuth2 client credentials for the Gmail provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

var validMailboxProviders = map[string]bool{
	"gmail": true,
	"seed":  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("MAILSENSE_PORT", 8080),
			Env:  envString("MAILSENSE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Ollama: OllamaConfig{
			BaseURL:      envString("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:        envString("OLLAMA_MODEL", "llama3.1:8b"),
			ProbeTimeout: envDuration("OLLAMA_PROBE_TIMEOUT", 2*time.Second),
			LocalTimeout: envDuration("OLLAMA_LOCAL_TIMEOUT", 60*time.Second),
			CloudTimeout: envDuration("OLLAMA_CLOUD_TIMEOUT", 120*time.Second),
		},
		Mailbox: MailboxConfig{
			Provider: envString("MAILBOX_PROVIDER", "gmail"),
			SeedFile: envString("MAILBOX_SEED_FILE", "synthetic_emails.csv"),
			MaxFetch: envInt("MAILBOX_MAX_FETCH", 25),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  envString("GOOGLE_OAUTH_REDIRECT_URI", "http://localhost:8080/api/v1/auth/callback"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Ollama.BaseURL, "http://") && !strings.HasPrefix(c.Ollama.BaseURL, "https://") {
		return fmt.Errorf("OLLAMA_BASE_URL must start with http:// or https://, got %q", c.Ollama.BaseURL)
	}

	if !validMailboxProviders[c.Mailbox.Provider] {
		return fmt.Errorf("MAILBOX_PROVIDER must be one of gmail, seed; got %q", c.Mailbox.Provider)
	}

	if c.Mailbox.Provider == "gmail" {
		if c.Google.ClientID == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required when MAILBOX_PROVIDER is gmail")
		}
		if c.Google.ClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_SECRET is required when MAILBOX_PROVIDER is gmail")
		}
	}

	if c.Mailbox.Provider == "seed" && c.Mailbox.SeedFile == "" {
		return fmt.Errorf("MAILBOX_SEED_FILE is required when MAILBOX_PROVIDER is seed")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
