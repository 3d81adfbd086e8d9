package config

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct{ v *viper.Viper }

func New() *Config {
	vv := viper.New()
	vv.AutomaticEnv()
	return &Config{v: vv}
}

// Load reads the optional config file at path. Env vars keep precedence over file values.
func (c *Config) Load(path string) error {
	if path == "" {
		return nil
	}
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// HasDsn reports whether a database was configured through DSN or PGHOST.
func (c *Config) HasDsn() bool {
	return c.v.GetString("DSN") != "" || c.v.GetString("PGHOST") != ""
}

// GetDsn returns DSN when set. Otherwise it assembles a postgres URL from the libpq
// PGUSER, PGHOST, PGPORT and PGDATABASE variables. A PGHOST starting with "/" names a
// socket directory, or a socket file whose ".s.PGSQL.<port>" name supplies the port
// when PGPORT is unset.
func (c *Config) GetDsn() (*url.URL, error) {
	if dsn := c.v.GetString("DSN"); dsn != "" {
		u, err := url.Parse(dsn)
		if err != nil || u.Scheme == "" {
			return nil, errors.New("invalid DSN: must be in format driver://dataSourceName")
		}
		return u, nil
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.User(c.firstOf("postgres", "PGUSER", "USER")),
		Path:   "/" + c.firstOf("postgres", "PGDATABASE"),
	}
	q := url.Values{"sslmode": {"disable"}}
	host := c.firstOf("localhost", "PGHOST")
	port := c.v.GetString("PGPORT")
	if !strings.HasPrefix(host, "/") {
		u.Host = net.JoinHostPort(host, cmp.Or(port, "5432"))
		u.RawQuery = q.Encode()
		return u, nil
	}
	dir, socketPort := splitSocketPath(host)
	q.Set("host", dir)
	q.Set("port", cmp.Or(port, socketPort, "5432"))
	u.RawQuery = q.Encode()
	return u, nil
}

func (c *Config) firstOf(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := c.v.GetString(k); v != "" {
			return v
		}
	}
	return fallback
}

// splitSocketPath returns the socket directory for path and, when path is the socket
// file itself, the port encoded in its name.
func splitSocketPath(path string) (dir, port string) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return path, ""
	}
	port, ok := strings.CutPrefix(filepath.Base(path), ".s.PGSQL.")
	if _, err := strconv.Atoi(port); !ok || err != nil {
		port = ""
	}
	return filepath.Dir(path), port
}

func (c *Config) GetGitHubToken() string {
	if t := c.v.GetString("GITHUB_TOKEN"); t != "" {
		return t
	}
	return c.v.GetString("GH_TOKEN")
}

// GetGitHubUsername returns the account whose repositories are listed. Defaults to SIAKOU.
func (c *Config) GetGitHubUsername() string {
	if u := c.v.GetString("GITHUB_USERNAME"); u != "" {
		return u
	}
	return "SIAKOU"
}

// GetGitHubAPIURL returns an alternate REST API base URL, or "" for api.github.com.
func (c *Config) GetGitHubAPIURL() string { return c.v.GetString("GITHUB_API_URL") }

// GetFormEndpoint returns the contact form POST endpoint, or "" to use mailto links.
func (c *Config) GetFormEndpoint() string { return c.v.GetString("FORM_ENDPOINT") }

func (c *Config) GetContactEmail() string {
	if e := c.v.GetString("CONTACT_EMAIL"); e != "" {
		return e
	}
	return "SIAKOU2006@gmail.com"
}

// GetSiteURL returns the public site origin without a trailing slash.
func (c *Config) GetSiteURL() string {
	u := c.v.GetString("SITE_URL")
	if u == "" {
		u = "https://siakou.dev"
	}
	return strings.TrimRight(u, "/")
}

func (c *Config) GetSitemapPath() string {
	if p := c.v.GetString("SITEMAP_PATH"); p != "" {
		return p
	}
	return filepath.Join("public", "sitemap.xml")
}

func (c *Config) GetAddr() string {
	port := c.v.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	host := c.v.GetString("HOST")
	if host == "" {
		host = "localhost"
	}
	return host + ":" + port
}

// GetRepositoryCacheTTL returns the TTL for repository snapshot cache entries.
// Reads duration from env var REPOSITORY_CACHE_TTL; defaults to 1h.
func (c *Config) GetRepositoryCacheTTL() time.Duration {
	const def = time.Hour
	if v := c.v.GetString("REPOSITORY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func (c *Config) GetServiceName() string {
	if s := c.v.GetString("SERVICE_NAME"); s != "" {
		return s
	}
	return "portfolio"
}

// TelemetryEnabled reports whether an OTLP endpoint is configured.
func (c *Config) TelemetryEnabled() bool {
	return c.v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		c.v.GetString("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}

func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

// GetLogLevel returns the log level from env var LOG_LEVEL mapped to slog.Level.
// Recognized values: debug, info (default), warn|warning, error.
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToLower(c.v.GetString("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OnLogLevelChange calls fn with the slog.Level whenever it changes.
// The initial call is made immediately.
func (c *Config) OnLogLevelChange(fn func(slog.Level)) {
	apply := func() { fn(c.GetLogLevel()) }
	apply()
	c.v.OnConfigChange(func(e fsnotify.Event) {
		slog.Debug("config file changed", "name", e.Name, "op", e.Op.String())
		apply()
	})
}

// Watch watches for changes in the config file, if one was loaded.
func (c *Config) Watch() {
	if c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.WatchConfig()
}
