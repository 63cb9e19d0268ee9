package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sqliteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "panel.db")
	t.Setenv("PANEL_CONFIG", "")
}

func TestLoadDefaults(t *testing.T) {
	sqliteEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Session.Name != "panelsession" || cfg.Mail.Transport != "log" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Mail.From != "noreply@localhost" {
		t.Errorf("mail from = %q", cfg.Mail.From)
	}
	if cfg.RateLimit.Capacity != 10 || cfg.RateLimit.RefillInterval != 6*time.Second || cfg.RateLimit.KeyStrategy != "ip_route" {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if !cfg.Cache.Methods["GET"] || cfg.Cache.Prefix != "panelcache" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("SITE_URL", "https://cp.ae97.net/")
	t.Setenv("MAIL_DOMAIN", "ae97.net")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("AUTH_ADMINS", " lord@ae97.net, ,dev@ae97.net ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SiteURL != "https://cp.ae97.net" {
		t.Errorf("site url = %q", cfg.SiteURL)
	}
	if cfg.Mail.From != "noreply@ae97.net" {
		t.Errorf("mail from = %q", cfg.Mail.From)
	}
	if cfg.RateLimit.Capacity != 1 || cfg.RateLimit.TTL != 50*time.Second {
		t.Errorf("rate limit not clamped: %+v", cfg.RateLimit)
	}
	if len(cfg.Admins) != 2 || cfg.Admins[0] != "lord@ae97.net" || cfg.Admins[1] != "dev@ae97.net" {
		t.Errorf("admins = %q", cfg.Admins)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"mysql without user", map[string]string{"DB_DRIVER": "mysql", "DB_NAME": "panel"}},
		{"unknown transport", map[string]string{"MAIL_TRANSPORT": "pigeon"}},
		{"bcrypt cost", map[string]string{"BCRYPT_COST": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqliteEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	sqliteEnv(t)
	path := filepath.Join(t.TempDir(), "panel.yaml")
	if err := os.WriteFile(path, []byte("app:\n  port: \"9090\"\nmail:\n  transport: queue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PANEL_CONFIG", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Mail.Transport != "queue" {
		t.Errorf("file values not applied: port=%q transport=%q", cfg.Port, cfg.Mail.Transport)
	}
}
