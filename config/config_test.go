package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected default port %q", cfg.Server.Port)
	}
	if len(cfg.Trends.Feeds) == 0 {
		t.Fatal("default trend feeds missing")
	}
	if cfg.RateLimit.Namespaces["api"].Max == 0 {
		t.Fatal("default api rate limit missing")
	}
	if cfg.Parser.TitleCaseMinLen != 10 {
		t.Fatalf("unexpected title-case threshold %d", cfg.Parser.TitleCaseMinLen)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  port: "9090"
cache:
  record_ttl: 120
rate_limit:
  namespaces:
    api:
      max: 5
      window: 30
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("file value not applied: %q", cfg.Server.Port)
	}
	if cfg.Cache.RecordTTL != 120 {
		t.Fatalf("file value not applied: %d", cfg.Cache.RecordTTL)
	}
	if rule := cfg.RateLimit.Namespaces["api"]; rule.Max != 5 || rule.Window != 30 {
		t.Fatalf("rate limit rule not applied: %+v", rule)
	}
	// untouched sections keep their defaults
	if cfg.Database.Path == "" {
		t.Fatal("defaults lost while merging the file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("ADMIN_KEY", "sekrit")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Fatalf("PORT override not applied: %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("REDIS_ADDR override not applied: %q", cfg.Redis.Addr)
	}
	if cfg.AdminKey != "sekrit" {
		t.Fatalf("ADMIN_KEY override not applied: %q", cfg.AdminKey)
	}
}

func TestGetServerAddress(t *testing.T) {
	cases := []struct {
		port string
		want string
	}{
		{"8080", ":8080"},
		{"127.0.0.1:8080", "127.0.0.1:8080"},
	}
	for _, tc := range cases {
		cfg := &Config{Server: ServerConfig{Port: tc.port}}
		if got := cfg.GetServerAddress(); got != tc.want {
			t.Fatalf("GetServerAddress(%q) = %q, want %q", tc.port, got, tc.want)
		}
	}
}

func TestTrendsTimeout(t *testing.T) {
	if got := (TrendsConfig{}).Timeout(); got != 10*time.Second {
		t.Fatalf("zero timeout should default to 10s, got %v", got)
	}
	if got := (TrendsConfig{TimeoutSecs: 3}).Timeout(); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
}
