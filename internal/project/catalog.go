package project

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// FetchErrorMessage is the user-visible notice shown while sample projects are served.
const FetchErrorMessage = "Unable to load GitHub projects. Showing sample projects."

// Fetcher lists the repositories owned by a GitHub user.
type Fetcher interface {
	ListRepositories(ctx context.Context, username string) ([]Repository, error)
}

// Catalog owns the project list for one GitHub user.
type Catalog struct {
	f        Fetcher
	username string
	sf       singleflight.Group

	mu       sync.RWMutex
	projects []Project
	err      error
	loaded   bool
}

// NewCatalog constructs an empty Catalog; call Load before reading.
func NewCatalog(f Fetcher, username string) *Catalog {
	return &Catalog{f: f, username: username}
}

// Load fetches and maps the user's repositories, replacing the whole collection.
// When the fetch fails the sample projects are installed instead and the error is
// kept for Err; the returned error is the same. Calls made while a load is in flight
// wait for it and share its result instead of fetching again.
func (c *Catalog) Load(ctx context.Context) error {
	_, err, shared := c.sf.Do(c.username, func() (any, error) {
		return nil, c.load(ctx)
	})
	if shared {
		slog.DebugContext(ctx, "Joined in-flight catalog load", "username", c.username)
	}
	return err
}

func (c *Catalog) load(ctx context.Context) error {
	tracer := otel.Tracer("portfolio/project")
	ctx, span := tracer.Start(ctx, "Catalog.Load")
	span.SetAttributes(attribute.String("username", c.username))
	defer span.End()

	repos, err := c.f.ListRepositories(ctx, c.username)
	var projects []Project
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "Error fetching GitHub repos", "username", c.username, "error", err)
		projects = SampleProjects()
	} else {
		projects = FromRepositories(repos)
		slog.InfoContext(ctx, "Loaded projects from GitHub", "username", c.username, "count", len(projects))
	}

	c.mu.Lock()
	c.projects = projects
	c.err = err
	c.loaded = true
	c.mu.Unlock()
	return err
}

// Refresh is Load under another name, for callers reacting to user action.
func (c *Catalog) Refresh(ctx context.Context) error { return c.Load(ctx) }

// Snapshot returns a deep copy of the current projects.
func (c *Catalog) Snapshot() []Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Project, len(c.projects))
	for i, p := range c.projects {
		out[i] = p.clone()
	}
	return out
}

// Loaded reports whether Load has completed at least once.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the error from the last Load, if any.
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Get looks a project up by title.
func (c *Catalog) Get(title string) (Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.projects {
		if p.Title == title {
			return p.clone(), true
		}
	}
	return Project{}, false
}

// Query runs the listing pipeline over the current snapshot.
func (c *Catalog) Query(q Query) Result { return Apply(c.Snapshot(), q) }

// Stats aggregates the current snapshot.
func (c *Catalog) Stats() Stats { return ComputeStats(c.Snapshot()) }
