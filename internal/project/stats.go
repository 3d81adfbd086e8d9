package project

// Stats summarises a project list for the overview counters.
type Stats struct {
	Total      int              `json:"total"`
	Public     int              `json:"public"`
	Stars      int              `json:"stars"`
	Forks      int              `json:"forks"`
	Languages  map[string]int   `json:"languages"`
	Categories map[Category]int `json:"categories"`
}

// ComputeStats aggregates counters over projects.
func ComputeStats(projects []Project) Stats {
	s := Stats{
		Languages:  make(map[string]int),
		Categories: make(map[Category]int),
	}
	for _, p := range projects {
		s.Total++
		if p.IsPublic {
			s.Public++
		}
		s.Stars += p.Stars
		s.Forks += p.Forks
		if p.Language != "" {
			s.Languages[p.Language]++
		}
		if p.Category != "" {
			s.Categories[p.Category]++
		}
	}
	return s
}
