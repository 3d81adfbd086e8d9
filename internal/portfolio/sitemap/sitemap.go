package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"portfolio.siakou.dev/internal/project"
)

// Namespace is the sitemaps.org schema namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// TimeFormat renders lastmod values in UTC with millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// URLSet is the root element of a sitemap document.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL is a single sitemap entry.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Build lists the static pages followed by one entry per non-archived repository.
func Build(siteURL string, repos []project.Repository, now time.Time) *URLSet {
	return FromProjects(siteURL, project.FromRepositories(repos), now)
}

// FromProjects lists the static pages followed by one entry per non-archived project.
func FromProjects(siteURL string, projects []project.Project, now time.Time) *URLSet {
	site := strings.TrimRight(siteURL, "/")
	stamp := now.UTC().Format(TimeFormat)
	set := &URLSet{
		Xmlns: Namespace,
		URLs: []URL{
			{Loc: site, LastMod: stamp, ChangeFreq: "weekly", Priority: "1.0"},
			{Loc: site + "/cv", LastMod: stamp, ChangeFreq: "monthly", Priority: "0.9"},
		},
	}
	for _, p := range projects {
		if p.Archived {
			continue
		}
		u := URL{
			Loc:        site + "/project/" + p.Title,
			ChangeFreq: "monthly",
			Priority:   "0.8",
		}
		if !p.LastUpdate.IsZero() {
			u.LastMod = p.LastUpdate.UTC().Format(TimeFormat)
		}
		set.URLs = append(set.URLs, u)
	}
	return set
}

// Encode writes the sitemap as an indented XML document.
func (s *URLSet) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode sitemap: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Generate fetches the user's repositories and builds the sitemap. A failed fetch is
// logged and yields the static pages only.
func Generate(ctx context.Context, f project.Fetcher, username, siteURL string) *URLSet {
	tracer := otel.Tracer("portfolio/sitemap")
	ctx, span := tracer.Start(ctx, "sitemap.Generate")
	defer span.End()

	repos, err := f.ListRepositories(ctx, username)
	if err != nil {
		slog.ErrorContext(ctx, "GitHub fetch failed; sitemap holds static pages only", "username", username, "error", err)
		repos = nil
	}
	set := Build(siteURL, repos, time.Now())
	span.SetAttributes(attribute.Int("urls_len", len(set.URLs)))
	return set
}

// WriteFile encodes the sitemap to path, creating parent directories as needed.
func WriteFile(path string, s *URLSet) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := s.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Sitemap generated", "path", path, "urls", len(s.URLs))
	return nil
}
