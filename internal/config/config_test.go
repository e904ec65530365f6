package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SELPIX_JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.DatabaseURL != "selpix.db" {
		t.Errorf("database url = %q, want selpix.db", cfg.DatabaseURL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Billing.RetryLimit != 5 {
		t.Errorf("retry limit = %d, want 5", cfg.Billing.RetryLimit)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Backup.Prefix != "backups/" || cfg.Backup.Interval != 24*time.Hour || cfg.Backup.Retention != 720*time.Hour {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	if cfg.Email.From != "billing@selpix.app" || cfg.Email.PostmarkToken != "" {
		t.Errorf("email = %+v", cfg.Email)
	}
}

func TestLoadBackupAndEmail(t *testing.T) {
	t.Setenv("SELPIX_JWT_SECRET", "s3cret")
	t.Setenv("SELPIX_BACKUP_BUCKET", "selpix-snapshots")
	t.Setenv("SELPIX_BACKUP_RETENTION", "168h")
	t.Setenv("SELPIX_EMAIL_POSTMARK_TOKEN", "pm-token")
	t.Setenv("SELPIX_WS_ORIGINS", "admin.selpix.app,localhost:5173")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backup.Bucket != "selpix-snapshots" || cfg.Backup.Retention != 168*time.Hour || cfg.Backup.Region != "auto" {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	if cfg.Email.PostmarkToken != "pm-token" {
		t.Errorf("postmark token = %q", cfg.Email.PostmarkToken)
	}
	if len(cfg.WSOrigins) != 2 || cfg.WSOrigins[1] != "localhost:5173" {
		t.Errorf("ws origins = %v", cfg.WSOrigins)
	}
}

func TestLoadRequiredSecret(t *testing.T) {
	t.Setenv("SELPIX_JWT_SECRET", "")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing JWT secret")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SELPIX_STATS_INTERVAL", "0s"},
		{"SELPIX_STATS_INTERVAL", "-5m"},
		{"SELPIX_BACKUP_INTERVAL", "0"},
		{"SELPIX_AUTH_RATE_WINDOW", "-1s"},
		{"SELPIX_AUTH_RATE_LIMIT", "0"},
		{"SELPIX_TRUSTED_PROXIES", "10.0.0.0/8,proxy.internal"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("SELPIX_JWT_SECRET", "s3cret")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("SELPIX_JWT_SECRET", "s3cret")
	t.Setenv("SELPIX_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.1.10" {
		t.Errorf("trusted proxies = %v", cfg.TrustedProxies)
	}
}

func TestLoadNestedPrefixAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "SELPIX_JWT_SECRET=fromfile\nSELPIX_LOG_LEVEL=debug\nSELPIX_STATS_INTERVAL=15m\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("SELPIX_JWT_SECRET")
		os.Unsetenv("SELPIX_LOG_LEVEL")
		os.Unsetenv("SELPIX_STATS_INTERVAL")
	})

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "fromfile" {
		t.Errorf("jwt secret = %q, want fromfile", cfg.Auth.JWTSecret)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Stats.Interval != 15*time.Minute {
		t.Errorf("stats interval = %v, want 15m", cfg.Stats.Interval)
	}
}

func TestParseEnvTagsSlice(t *testing.T) {
	var cfg struct {
		Hosts []string `env:"HOSTS"`
		Rate  float64  `env:"RATE" default:"1.5"`
	}
	t.Setenv("APP_HOSTS", "a, b,,c")
	if err := ParseEnvTags("APP", &cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Hosts) != 3 || cfg.Hosts[1] != "b" {
		t.Errorf("hosts = %v", cfg.Hosts)
	}
	if cfg.Rate != 1.5 {
		t.Errorf("rate = %v, want 1.5", cfg.Rate)
	}
}

func TestParseEnvTagsRejectsNonPointer(t *testing.T) {
	var cfg struct{}
	if err := ParseEnvTags("", cfg); err == nil {
		t.Fatal("expected error for non-pointer")
	}
}
