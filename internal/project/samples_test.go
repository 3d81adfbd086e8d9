package project

import (
	"testing"
	"time"
)

func TestSampleProjects(t *testing.T) {
	want := []struct {
		id, title  string
		category   Category
		difficulty Difficulty
		stars      int
		forks      int
		githubURL  string
		updated    time.Time
	}{
		{"1", "NetSentinel Pro", CategoryNetwork, DifficultyAdvanced, 245, 42,
			"https://github.com/SIAKOU/NetSentinel", date(2024, time.January, 15)},
		{"2", "VulnHunter Framework", CategorySecurity, DifficultyExpert, 1247, 189,
			"https://github.com/SIAKOU/VulnHunter", date(2024, time.February, 20)},
		{"3", "ZeroTrust Gateway", CategorySecurity, DifficultyAdvanced, 532, 78,
			"https://github.com/SIAKOU/ZeroTrust-Gateway", date(2024, time.January, 10)},
	}
	got := SampleProjects()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		p := got[i]
		if p.ID != w.id || p.Title != w.title {
			t.Errorf("[%d] = %s %q, want %s %q", i, p.ID, p.Title, w.id, w.title)
		}
		if p.Stars != w.stars || p.Forks != w.forks {
			t.Errorf("%s: stars/forks = %d/%d, want %d/%d", w.title, p.Stars, p.Forks, w.stars, w.forks)
		}
		if p.Category != w.category || p.Difficulty != w.difficulty {
			t.Errorf("%s: %s/%s, want %s/%s", w.title, p.Category, p.Difficulty, w.category, w.difficulty)
		}
		if p.GitHubURL != w.githubURL || !p.LastUpdate.Equal(w.updated) {
			t.Errorf("%s: url=%s updated=%v", w.title, p.GitHubURL, p.LastUpdate)
		}
		if !p.IsPublic || p.Archived || p.Description == "" || len(p.TechStack) == 0 {
			t.Errorf("%s: incomplete sample %+v", w.title, p)
		}
	}

	got[0].TechStack[0] = "changed"
	if SampleProjects()[0].TechStack[0] == "changed" {
		t.Error("SampleProjects shares slices between calls")
	}
}
