package portfolio

import (
	"context"
	"fmt"
	"log/slog"

	"portfolio.siakou.dev/internal/config"
	"portfolio.siakou.dev/internal/database"
	"portfolio.siakou.dev/internal/portfolio/contact"
	"portfolio.siakou.dev/internal/portfolio/github"
	"portfolio.siakou.dev/internal/project"
)

var _ github.Store = (*database.Database)(nil)

// Portfolio aggregates external clients used by the application.
type Portfolio struct {
	db       *database.Database
	cfg      *config.Config
	username string
	gh       *github.Client
	catalog  *project.Catalog
	contact  *contact.Client
}

// ClientSetOptions holds configuration for initializing Portfolio.
type ClientSetOptions struct {
	github  []github.GitHubClientOption
	contact []contact.ClientOption
}

// ClientSetOption applies a configuration to ClientSetOptions.
type ClientSetOption func(*ClientSetOptions)

// WithGitHubOptions forwards GitHub client options into the Portfolio configuration.
func WithGitHubOptions(opts ...github.GitHubClientOption) ClientSetOption {
	return func(o *ClientSetOptions) { o.github = append(o.github, opts...) }
}

// WithContactOptions forwards contact client options into the Portfolio configuration.
func WithContactOptions(opts ...contact.ClientOption) ClientSetOption {
	return func(o *ClientSetOptions) { o.contact = append(o.contact, opts...) }
}

// NewForConfig builds a Portfolio from cfg. The Postgres snapshot cache is only
// opened when a DSN is configured.
func NewForConfig(ctx context.Context, cfg *config.Config) (*Portfolio, error) {
	token := cfg.GetGitHubToken()
	ghOpts := []github.GitHubClientOption{
		github.WithLimiter(github.NewGitHubLimiter(token != "")),
		github.WithRepositoryCacheTTL(cfg.GetRepositoryCacheTTL()),
	}
	if token != "" {
		ghOpts = append(ghOpts, github.WithToken(token))
	}
	if u := cfg.GetGitHubAPIURL(); u != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(u))
	}

	var db *database.Database
	if cfg.HasDsn() {
		var err error
		db, err = database.NewForConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	p, err := New(db, cfg,
		WithGitHubOptions(ghOpts...),
		WithContactOptions(
			contact.WithEndpoint(cfg.GetFormEndpoint()),
			contact.WithFallbackEmail(cfg.GetContactEmail()),
		),
	)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return p, nil
}

// New constructs a Portfolio with the given database and options. db may be nil.
func New(db *database.Database, cfg *config.Config, opts ...ClientSetOption) (*Portfolio, error) {
	var o ClientSetOptions
	for _, opt := range opts {
		opt(&o)
	}
	ghOpts := o.github
	if db != nil {
		ghOpts = append(ghOpts, github.WithStore(db))
	}
	gh, err := github.NewClient(ghOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	username := cfg.GetGitHubUsername()
	return &Portfolio{
		db:       db,
		cfg:      cfg,
		username: username,
		gh:       gh,
		catalog:  project.NewCatalog(gh, username),
		contact:  contact.NewClient(o.contact...),
	}, nil
}

// GitHub returns the configured GitHub client.
func (p *Portfolio) GitHub() *github.Client { return p.gh }

// Catalog returns the in-memory project catalog.
func (p *Portfolio) Catalog() *project.Catalog { return p.catalog }

// Contact returns the contact relay client.
func (p *Portfolio) Contact() *contact.Client { return p.contact }

// Username returns the GitHub account the catalog lists.
func (p *Portfolio) Username() string { return p.username }

// Config returns the configuration the Portfolio was built from.
func (p *Portfolio) Config() *config.Config { return p.cfg }

// Refresh drops the cached snapshot, if any, and reloads the catalog from GitHub.
func (p *Portfolio) Refresh(ctx context.Context) error {
	if p.db != nil {
		if err := p.db.DeleteRepositorySnapshot(ctx, database.DeleteRepositorySnapshotArgs{
			Hostname: p.gh.Host(),
			Username: p.username,
		}); err != nil {
			slog.WarnContext(ctx, "Failed to drop repository snapshot", "username", p.username, "error", err)
		}
	}
	return p.catalog.Refresh(ctx)
}

func (p *Portfolio) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Ping verifies that all configured clients are reachable.
func (p *Portfolio) Ping(ctx context.Context) error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("datastore ping failed: %w", err)
	}
	return nil
}
