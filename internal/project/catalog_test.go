package project

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeFetcher struct {
	repos []Repository
	err   error
	calls []string
}

func (f *fakeFetcher) ListRepositories(_ context.Context, username string) ([]Repository, error) {
	f.calls = append(f.calls, username)
	if f.err != nil {
		return nil, f.err
	}
	return f.repos, nil
}

func TestCatalogLoad(t *testing.T) {
	f := &fakeFetcher{repos: []Repository{
		{ID: 1, Name: "net-lab", Stars: 5},
		{ID: 2, Name: "site", Language: "TypeScript", Stars: 700},
	}}
	c := NewCatalog(f, "SIAKOU")
	if c.Loaded() {
		t.Fatal("Loaded before Load")
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(f.calls, []string{"SIAKOU"}) {
		t.Errorf("fetch calls = %v", f.calls)
	}
	if c.Err() != nil || !c.Loaded() {
		t.Errorf("err=%v loaded=%v", c.Err(), c.Loaded())
	}
	snap := c.Snapshot()
	if !slices.Equal(titles(snap), []string{"net-lab", "site"}) {
		t.Errorf("snapshot = %v", titles(snap))
	}
	p, ok := c.Get("site")
	if !ok || p.Category != CategoryWeb || p.Difficulty != DifficultyExpert {
		t.Errorf("Get(site) = %+v, %v", p, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Errorf("Get(missing) found a project")
	}
}

func TestCatalogFallsBackToSamples(t *testing.T) {
	fetchErr := errors.New("github: 503")
	c := NewCatalog(&fakeFetcher{err: fetchErr}, "SIAKOU")

	err := c.Load(context.Background())
	if !errors.Is(err, fetchErr) || !errors.Is(c.Err(), fetchErr) {
		t.Fatalf("Load err = %v, Err() = %v", err, c.Err())
	}
	got := c.Snapshot()
	want := SampleProjects()
	if len(got) == 0 {
		t.Fatal("fallback produced an empty list")
	}
	if !slices.Equal(titles(got), titles(want)) {
		t.Errorf("fallback = %v, want %v", titles(got), titles(want))
	}
	for i := range got {
		if got[i].ID != want[i].ID || got[i].Stars != want[i].Stars || got[i].Category != want[i].Category {
			t.Errorf("fallback[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCatalogRefreshReplacesCollection(t *testing.T) {
	f := &fakeFetcher{err: errors.New("offline")}
	c := NewCatalog(f, "SIAKOU")
	_ = c.Load(context.Background())

	f.err = nil
	f.repos = []Repository{{ID: 9, Name: "only"}}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if c.Err() != nil {
		t.Errorf("Err after successful refresh = %v", c.Err())
	}
	if got := titles(c.Snapshot()); !slices.Equal(got, []string{"only"}) {
		t.Errorf("snapshot = %v", got)
	}
}

func TestCatalogSnapshotIsACopy(t *testing.T) {
	c := NewCatalog(&fakeFetcher{repos: []Repository{
		{ID: 1, Name: "a", Language: "Go", Topics: []string{"x"}},
	}}, "u")
	_ = c.Load(context.Background())

	s := c.Snapshot()
	s[0].Title = "changed"
	s[0].TechStack[0] = "from-snapshot"
	s[0].Topics[0] = "from-snapshot"

	got, _ := c.Get("a")
	got.TechStack[0] = "from-get"
	got.Topics[0] = "from-get"

	res := c.Query(Query{})
	res.Projects[0].TechStack[0] = "from-query"
	res.Projects[0].Topics[0] = "from-query"

	p, ok := c.Get("a")
	if !ok {
		t.Fatal("title mutation through the snapshot leaked into the catalog")
	}
	if !slices.Equal(p.TechStack, []string{"Go", "x"}) {
		t.Errorf("TechStack = %v, want [Go x]", p.TechStack)
	}
	if !slices.Equal(p.Topics, []string{"x"}) {
		t.Errorf("Topics = %v, want [x]", p.Topics)
	}
}

type gatedFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (f *gatedFetcher) ListRepositories(context.Context, string) ([]Repository, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
		<-f.release
		return []Repository{{ID: 1, Name: "old"}}, nil
	}
	return []Repository{{ID: 2, Name: "new"}}, nil
}

func TestCatalogOverlappingRefreshesShareOneFetch(t *testing.T) {
	f := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCatalog(f, "u")

	errs := make(chan error, 2)
	go func() { errs <- c.Refresh(context.Background()) }()
	<-f.started
	go func() { errs <- c.Refresh(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(f.release)

	for range 2 {
		if err := <-errs; err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	if got := titles(c.Snapshot()); !slices.Equal(got, []string{"old"}) {
		t.Errorf("snapshot = %v", got)
	}

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := titles(c.Snapshot()); f.calls.Load() != 2 || !slices.Equal(got, []string{"new"}) {
		t.Errorf("after settled refresh: fetches=%d snapshot=%v", f.calls.Load(), got)
	}
}

func TestCatalogConcurrentReaders(t *testing.T) {
	c := NewCatalog(&fakeFetcher{repos: []Repository{{ID: 1, Name: "a", Stars: 1}}}, "u")
	_ = c.Load(context.Background())
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_ = c.Query(Query{Sort: SortStars, Limit: PageSize})
			_ = c.Stats()
		})
	}
	wg.Go(func() { _ = c.Refresh(context.Background()) })
	wg.Wait()
	if c.Stats().Total != 1 {
		t.Errorf("total = %d", c.Stats().Total)
	}
}
