package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{
		"GITHUB_USERNAME", "GITHUB_TOKEN", "GH_TOKEN", "SITE_URL", "CONTACT_EMAIL",
		"FORM_ENDPOINT", "PORT", "HOST", "REPOSITORY_CACHE_TTL", "LOG_LEVEL", "DSN", "PGHOST",
		"SITEMAP_PATH", "SERVICE_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
	cfg := New()

	checks := []struct{ name, got, want string }{
		{"username", cfg.GetGitHubUsername(), "SIAKOU"},
		{"token", cfg.GetGitHubToken(), ""},
		{"site", cfg.GetSiteURL(), "https://siakou.dev"},
		{"email", cfg.GetContactEmail(), "SIAKOU2006@gmail.com"},
		{"form", cfg.GetFormEndpoint(), ""},
		{"addr", cfg.GetAddr(), "localhost:8080"},
		{"sitemap", cfg.GetSitemapPath(), filepath.Join("public", "sitemap.xml")},
		{"service", cfg.GetServiceName(), "portfolio"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if cfg.GetRepositoryCacheTTL() != time.Hour {
		t.Errorf("cache ttl = %v", cfg.GetRepositoryCacheTTL())
	}
	if cfg.GetLogLevel() != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.GetLogLevel())
	}
	if cfg.HasDsn() || cfg.TelemetryEnabled() {
		t.Errorf("HasDsn=%v TelemetryEnabled=%v", cfg.HasDsn(), cfg.TelemetryEnabled())
	}
}

func TestOverrides(t *testing.T) {
	cfg := New()
	cfg.Set("GITHUB_TOKEN", "")
	cfg.Set("GH_TOKEN", "gh-secret")
	cfg.Set("SITE_URL", "https://example.org/")
	cfg.Set("REPOSITORY_CACHE_TTL", "15m")
	cfg.Set("LOG_LEVEL", "WARNING")
	cfg.Set("HOST", "0.0.0.0")
	cfg.Set("PORT", "9000")

	if got := cfg.GetGitHubToken(); got != "gh-secret" {
		t.Errorf("token = %q", got)
	}
	if got := cfg.GetSiteURL(); got != "https://example.org" {
		t.Errorf("site = %q", got)
	}
	if got := cfg.GetRepositoryCacheTTL(); got != 15*time.Minute {
		t.Errorf("ttl = %v", got)
	}
	if got := cfg.GetLogLevel(); got != slog.LevelWarn {
		t.Errorf("level = %v", got)
	}
	if got := cfg.GetAddr(); got != "0.0.0.0:9000" {
		t.Errorf("addr = %q", got)
	}

	cfg.Set("REPOSITORY_CACHE_TTL", "soon")
	if got := cfg.GetRepositoryCacheTTL(); got != time.Hour {
		t.Errorf("invalid ttl should fall back to default, got %v", got)
	}
}

func TestGetDsn(t *testing.T) {
	cfg := New()
	cfg.Set("DSN", "postgres://app@db:5432/portfolio?sslmode=disable")
	u, err := cfg.GetDsn()
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "db:5432" || u.Path != "/portfolio" {
		t.Errorf("dsn = %s", u)
	}

	cfg = New()
	cfg.Set("DSN", "")
	cfg.Set("PGUSER", "me")
	cfg.Set("PGHOST", "pg.internal")
	cfg.Set("PGPORT", "6543")
	cfg.Set("PGDATABASE", "site")
	u, err = cfg.GetDsn()
	if err != nil {
		t.Fatal(err)
	}
	if want := "postgres://me@pg.internal:6543/site?sslmode=disable"; u.String() != want {
		t.Errorf("dsn = %s, want %s", u, want)
	}
	if !cfg.HasDsn() {
		t.Errorf("HasDsn = false with PGHOST set")
	}
}

func TestGetDsnUnixSocket(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, ".s.PGSQL.5433")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name, host, port string
		wantHost         string
		wantPort         string
	}{
		{"directory", dir, "", dir, "5432"},
		{"socket file", sock, "", dir, "5433"},
		{"socket file with PGPORT", sock, "7000", dir, "7000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Set("DSN", "")
			cfg.Set("PGUSER", "me")
			cfg.Set("PGDATABASE", "site")
			cfg.Set("PGHOST", tt.host)
			cfg.Set("PGPORT", tt.port)
			u, err := cfg.GetDsn()
			if err != nil {
				t.Fatal(err)
			}
			q := u.Query()
			if u.Host != "" || u.Path != "/site" || u.User.Username() != "me" {
				t.Errorf("dsn = %s", u)
			}
			if q.Get("host") != tt.wantHost || q.Get("port") != tt.wantPort || q.Get("sslmode") != "disable" {
				t.Errorf("query = %v, want host=%s port=%s", q, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestGetDsnRejectsMissingScheme(t *testing.T) {
	cfg := New()
	cfg.Set("DSN", "just-a-host")
	if _, err := cfg.GetDsn(); err == nil {
		t.Fatal("expected an error for a DSN without a scheme")
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("GITHUB_USERNAME", "")
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	if err := os.WriteFile(path, []byte("GITHUB_USERNAME: octocat\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := New()
	if err := cfg.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetGitHubUsername(); got != "octocat" {
		t.Errorf("username = %q", got)
	}
	if err := New().Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load of a missing file succeeded")
	}
}

func TestNewLoggerFollowsLevel(t *testing.T) {
	cfg := New()
	cfg.Set("LOG_LEVEL", "error")
	cfg.Set("LOG_FORMAT", "json")
	var buf bytes.Buffer
	log := NewLogger(cfg, &buf)
	log.Info("hidden")
	log.Error("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at error level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected json error record, got %s", out)
	}
}
