package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
	"k8s.io/utils/ptr"
	"portfolio.siakou.dev/internal/database"
	"portfolio.siakou.dev/internal/project"
)

// Hostname keys cached snapshots fetched from the public GitHub API.
const Hostname = "github.com"

const publicAPIHost = "api.github.com"

// PerPage is the page size requested from the repository listing endpoint.
const PerPage = 100

// NewGitHubLimiter returns a rate limiter tuned for authenticated or unauthenticated GitHub API usage.
func NewGitHubLimiter(authenticated bool) *rate.Limiter {
	var limiter *rate.Limiter
	if authenticated {
		limiter = rate.NewLimiter(rate.Every(time.Hour/5000), 10)
		slog.Info(
			"Created authenticated GitHub rate limiter",
			"rate",
			"5000 requests/hour",
			"burst",
			10,
		)
	} else {
		limiter = rate.NewLimiter(rate.Every(time.Hour/60), 1)
		slog.Info("Created unauthenticated GitHub rate limiter", "rate", "60 requests/hour", "burst", 1)
	}
	return limiter
}

// Store caches repository listings between process restarts.
type Store interface {
	GetRepositorySnapshot(ctx context.Context, args database.GetRepositorySnapshotArgs) (*database.RepositorySnapshot, error)
	UpsertRepositorySnapshot(ctx context.Context, args database.UpsertRepositorySnapshotArgs) error
}

// Client wraps the GitHub API client with rate limiting and optional snapshot caching.
type Client struct {
	c    *github.Client
	l    *rate.Limiter
	s    Store
	ttl  time.Duration
	host string
}

// GitHubClientOptions configures the GitHub client.
type GitHubClientOptions struct {
	token      string
	baseURL    string
	limiter    *rate.Limiter
	store      Store
	ttl        time.Duration
	httpClient *http.Client
}

// GitHubClientOption applies a configuration to GitHubClientOptions.
type GitHubClientOption func(*GitHubClientOptions)

// WithToken sets the personal access token for authenticated requests.
func WithToken(token string) GitHubClientOption {
	return func(o *GitHubClientOptions) { o.token = token }
}

// WithBaseURL points the client at another REST API root, such as a test server.
func WithBaseURL(u string) GitHubClientOption {
	return func(o *GitHubClientOptions) { o.baseURL = u }
}

// WithLimiter sets the rate limiter used for API calls.
func WithLimiter(l *rate.Limiter) GitHubClientOption {
	return func(o *GitHubClientOptions) { o.limiter = l }
}

// WithStore enables the repository snapshot cache.
func WithStore(s Store) GitHubClientOption {
	return func(o *GitHubClientOptions) { o.store = s }
}

// WithRepositoryCacheTTL sets the snapshot cache TTL; zero means infinite (no refresh).
func WithRepositoryCacheTTL(d time.Duration) GitHubClientOption {
	return func(o *GitHubClientOptions) { o.ttl = d }
}

// WithHTTPClient sets the HTTP client; its transport is wrapped for tracing.
func WithHTTPClient(hc *http.Client) GitHubClientOption {
	return func(o *GitHubClientOptions) { o.httpClient = hc }
}

// NewClient constructs a GitHub Client with the given options.
func NewClient(opts ...GitHubClientOption) (*Client, error) {
	var o GitHubClientOptions
	for _, opt := range opts {
		opt(&o)
	}
	hc := &http.Client{Timeout: 30 * time.Second}
	if o.httpClient != nil {
		hc = &http.Client{Timeout: o.httpClient.Timeout, Transport: o.httpClient.Transport}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)

	gh := github.NewClient(hc)
	if o.token != "" {
		slog.Info("Using authenticated GitHub client")
		gh = gh.WithAuthToken(o.token)
	} else {
		slog.Warn("Using unauthenticated GitHub client (rate limited)")
	}
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimRight(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", o.baseURL, err)
		}
		gh.BaseURL = u
	}
	l := o.limiter
	if l == nil {
		l = NewGitHubLimiter(o.token != "")
	}
	host := gh.BaseURL.Host
	if host == publicAPIHost {
		host = Hostname
	}
	return &Client{c: gh, l: l, s: o.store, ttl: o.ttl, host: host}, nil
}

// Host returns the key under which this client caches snapshots: Hostname for the
// public API, otherwise the host of the configured API root.
func (c *Client) Host() string { return c.host }

// ListRepositories returns the user's repositories, most recently updated first, from a
// single page of the listing endpoint. A fresh cached snapshot is returned without
// calling GitHub; cache failures are logged and ignored.
func (c *Client) ListRepositories(ctx context.Context, username string) ([]project.Repository, error) {
	tracer := otel.Tracer("portfolio/github")
	ctx, span := tracer.Start(ctx, "Client.ListRepositories")
	span.SetAttributes(attribute.String("username", username))
	defer span.End()

	if repos, ok := c.cachedRepositories(ctx, username); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return repos, nil
	}

	slog.InfoContext(ctx, "Fetching repositories from GitHub API", "username", username)
	if err := c.l.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	ghRepos, _, err := c.c.Repositories.ListByUser(ctx, username, &github.RepositoryListByUserOptions{
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: PerPage},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list repositories for %s: %w", username, err)
	}
	repos := make([]project.Repository, 0, len(ghRepos))
	for _, r := range ghRepos {
		if r == nil {
			continue
		}
		repos = append(repos, RepositoryFromGitHub(r))
	}
	span.SetAttributes(attribute.Int("repos_len", len(repos)))

	if c.s != nil {
		if err := c.s.UpsertRepositorySnapshot(ctx, database.UpsertRepositorySnapshotArgs{
			Hostname:     c.host,
			Username:     username,
			Repositories: repos,
		}); err != nil {
			slog.WarnContext(ctx, "Failed to upsert repository snapshot", "username", username, "error", err)
		}
	}
	return repos, nil
}

func (c *Client) cachedRepositories(ctx context.Context, username string) ([]project.Repository, bool) {
	if c.s == nil {
		return nil, false
	}
	snap, err := c.s.GetRepositorySnapshot(ctx, database.GetRepositorySnapshotArgs{
		Hostname: c.host,
		Username: username,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to query datastore for repository snapshot", "username", username, "error", err)
		return nil, false
	}
	if snap == nil {
		return nil, false
	}
	if c.ttl > 0 && snap.Age() >= c.ttl {
		slog.InfoContext(
			ctx,
			"Repository snapshot stale; refetching from GitHub",
			"username", username,
			"updated_at", snap.UpdatedAt,
			"ttl", c.ttl,
		)
		return nil, false
	}
	slog.InfoContext(
		ctx,
		"Repository snapshot fresh; skip GitHub fetch",
		"username", username,
		"repositories", len(snap.Repositories),
		"updated_at", snap.UpdatedAt,
		"ttl", c.ttl,
	)
	return snap.Repositories, true
}

// GetReadme retrieves and decodes the README of the given repository.
func (c *Client) GetReadme(ctx context.Context, owner, repo string) ([]byte, error) {
	tracer := otel.Tracer("portfolio/github")
	ctx, span := tracer.Start(ctx, "Client.GetReadme")
	span.SetAttributes(attribute.String("owner", owner), attribute.String("repo", repo))
	defer span.End()

	if err := c.l.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	file, _, err := c.c.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get readme for %s/%s: %w", owner, repo, err)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode readme for %s/%s: %w", owner, repo, err)
	}
	return []byte(content), nil
}

// RepositoryFromGitHub maps a go-github repository onto the portfolio record.
func RepositoryFromGitHub(r *github.Repository) project.Repository {
	return project.Repository{
		ID:          ptr.Deref(r.ID, 0),
		Name:        ptr.Deref(r.Name, ""),
		Description: ptr.Deref(r.Description, ""),
		Language:    ptr.Deref(r.Language, ""),
		Topics:      r.Topics,
		Private:     ptr.Deref(r.Private, false),
		Archived:    ptr.Deref(r.Archived, false),
		HTMLURL:     ptr.Deref(r.HTMLURL, ""),
		Homepage:    ptr.Deref(r.Homepage, ""),
		License:     r.GetLicense().GetName(),
		Stars:       ptr.Deref(r.StargazersCount, 0),
		Forks:       ptr.Deref(r.ForksCount, 0),
		Watchers:    ptr.Deref(r.WatchersCount, 0),
		Size:        ptr.Deref(r.Size, 0),
		HasIssues:   ptr.Deref(r.HasIssues, false),
		HasProjects: ptr.Deref(r.HasProjects, false),
		HasWiki:     ptr.Deref(r.HasWiki, false),
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
	}
}
