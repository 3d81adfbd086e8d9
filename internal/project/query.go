package project

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SortKey selects the field a listing is ordered by, always descending.
type SortKey string

const (
	SortStars   SortKey = "stars"
	SortForks   SortKey = "forks"
	SortUpdated SortKey = "updated"
	SortCreated SortKey = "created"
)

// CategoryAll disables category filtering.
const CategoryAll Category = "all"

// PageSize is the initial number of visible projects and the "show more" increment.
const PageSize = 6

// ParseSortKey validates s; an empty string yields SortStars.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortStars, nil
	case SortStars, SortForks, SortUpdated, SortCreated:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// Query is the listing state driven by the UI.
type Query struct {
	Search       string
	Category     Category
	Sort         SortKey
	ShowArchived bool
	// Limit caps the number of returned projects; zero or less means no cap.
	Limit int
}

// Result is one rendered page of a listing.
type Result struct {
	Projects []Project `json:"projects"`
	// Total counts the projects matching the filters before the limit is applied.
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// Filter returns the projects matching the archived, category and search criteria of q,
// preserving input order. It never modifies projects.
func Filter(projects []Project, q Query) []Project {
	term := strings.ToLower(q.Search)
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if !q.ShowArchived && p.Archived {
			continue
		}
		if q.Category != "" && q.Category != CategoryAll && p.Category != q.Category {
			continue
		}
		if term != "" && !matches(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p Project, term string) bool {
	if strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, tech := range p.TechStack {
		if strings.Contains(strings.ToLower(tech), term) {
			return true
		}
	}
	return false
}

// Sort orders a copy of projects descending by key. The sort is stable: projects with
// equal keys keep their relative order. Unknown keys leave the order untouched.
func Sort(projects []Project, key SortKey) []Project {
	out := slices.Clone(projects)
	var cmpFn func(a, b Project) int
	switch key {
	case SortStars:
		cmpFn = func(a, b Project) int { return cmp.Compare(b.Stars, a.Stars) }
	case SortForks:
		cmpFn = func(a, b Project) int { return cmp.Compare(b.Forks, a.Forks) }
	case SortUpdated:
		cmpFn = func(a, b Project) int { return cmp.Compare(unixMilli(b.LastUpdate), unixMilli(a.LastUpdate)) }
	case SortCreated:
		cmpFn = func(a, b Project) int { return cmp.Compare(unixMilli(b.CreatedAt), unixMilli(a.CreatedAt)) }
	default:
		return out
	}
	slices.SortStableFunc(out, cmpFn)
	return out
}

// unixMilli treats the zero time as the Unix epoch.
func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Apply runs the full filter, sort and limit pipeline.
func Apply(projects []Project, q Query) Result {
	sorted := Sort(Filter(projects, q), q.Sort)
	total := len(sorted)
	if q.Limit > 0 && q.Limit < total {
		sorted = sorted[:q.Limit]
	}
	return Result{Projects: sorted, Total: total, HasMore: len(sorted) < total}
}

// Pager tracks how many projects are visible.
type Pager struct{ visible int }

// NewPager returns a pager showing PageSize projects.
func NewPager() *Pager { return &Pager{visible: PageSize} }

// Visible returns the current visible count.
func (p *Pager) Visible() int { return p.visible }

// ShowMore reveals another PageSize projects.
func (p *Pager) ShowMore() { p.visible += PageSize }

// Reset goes back to the initial count.
func (p *Pager) Reset() { p.visible = PageSize }
