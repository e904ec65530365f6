package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"time"

	"github.com/joho/godotenv"
)

// Prefix namespaces every variable read by Load.
const Prefix = "SELPIX"

type Config struct {
	Port        string `env:"PORT" default:"8080"`
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" default:"selpix.db"`
	// WSOrigins lists extra host patterns allowed to open the feed socket.
	WSOrigins []string `env:"WS_ORIGINS" separator:","`
	// TrustedProxies lists CIDRs or addresses whose forwarding headers name
	// the client. Empty means the peer address is always used.
	TrustedProxies []string `env:"TRUSTED_PROXIES" separator:","`

	Log struct {
		Level  string `env:"LEVEL" default:"info"`
		Format string `env:"FORMAT" default:"text"`
	} `env:"LOG"`

	Auth struct {
		JWTSecret string        `env:"JWT_SECRET" required:"true"`
		TokenTTL  time.Duration `env:"TOKEN_TTL" default:"24h"`
		// RateLimit caps register and login attempts per client IP per RateWindow.
		RateLimit  int           `env:"AUTH_RATE_LIMIT" default:"10"`
		RateWindow time.Duration `env:"AUTH_RATE_WINDOW" default:"1m"`
	}

	Billing struct {
		LemonSigningSecret  string        `env:"LEMON_SIGNING_SECRET"`
		StripeWebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
		RetryLimit          int           `env:"WEBHOOK_RETRY_LIMIT" default:"5"`
		RetainProcessedFor  time.Duration `env:"WEBHOOK_RETENTION" default:"720h"`
	}

	Email struct {
		PostmarkToken string `env:"POSTMARK_TOKEN"`
		From          string `env:"FROM" default:"billing@selpix.app"`
	} `env:"EMAIL"`

	Backup struct {
		Bucket     string        `env:"BUCKET"`
		Endpoint   string        `env:"ENDPOINT"`
		Region     string        `env:"REGION" default:"auto"`
		AccessKey  string        `env:"ACCESS_KEY"`
		SecretKey  string        `env:"SECRET_KEY"`
		Passphrase string        `env:"PASSPHRASE"`
		Prefix     string        `env:"PREFIX" default:"backups/"`
		Interval   time.Duration `env:"INTERVAL" default:"24h"`
		Retention  time.Duration `env:"RETENTION" default:"720h"`
	} `env:"BACKUP"`

	Stats struct {
		Interval time.Duration `env:"STATS_INTERVAL" default:"1h"`
	}
}

// Load reads an optional .env file at path (".env" when empty) and then
// fills a Config from SELPIX_* variables. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	var cfg Config
	if err := ParseEnvTags(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// tickers panic on non-positive periods
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"SELPIX_STATS_INTERVAL", c.Stats.Interval},
		{"SELPIX_BACKUP_INTERVAL", c.Backup.Interval},
		{"SELPIX_AUTH_RATE_WINDOW", c.Auth.RateWindow},
		{"SELPIX_WEBHOOK_RETENTION", c.Billing.RetainProcessedFor},
	}
	for _, v := range durations {
		if v.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", v.name, v.d)
		}
	}
	if c.Auth.RateLimit <= 0 {
		return fmt.Errorf("SELPIX_AUTH_RATE_LIMIT must be positive, got %d", c.Auth.RateLimit)
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("SELPIX_TRUSTED_PROXIES: %q is not an address or CIDR", p)
		}
	}
	return nil
}
