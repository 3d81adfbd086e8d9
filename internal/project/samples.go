package project

import "time"

// SampleProjects returns the fixed dataset shown when GitHub cannot be reached.
// A new slice is returned on every call.
func SampleProjects() []Project {
	return []Project{
		{
			ID:          "1",
			Title:       "NetSentinel Pro",
			Description: "Real-time network monitoring platform with AI-driven anomaly detection",
			TechStack:   []string{"Python", "InfluxDB", "Grafana", "TensorFlow", "Docker"},
			IsPublic:    true,
			GitHubURL:   "https://github.com/SIAKOU/NetSentinel",
			Stars:       245,
			Forks:       42,
			LastUpdate:  date(2024, time.January, 15),
			Category:    CategoryNetwork,
			Difficulty:  DifficultyAdvanced,
		},
		{
			ID:          "2",
			Title:       "VulnHunter Framework",
			Description: "Automated vulnerability scanning framework for cloud infrastructure",
			TechStack:   []string{"Go", "Rust", "PostgreSQL", "Kubernetes"},
			IsPublic:    true,
			GitHubURL:   "https://github.com/SIAKOU/VulnHunter",
			Stars:       1247,
			Forks:       189,
			LastUpdate:  date(2024, time.February, 20),
			Category:    CategorySecurity,
			Difficulty:  DifficultyExpert,
		},
		{
			ID:          "3",
			Title:       "ZeroTrust Gateway",
			Description: "Zero Trust gateway with continuous authentication and micro-segmentation",
			TechStack:   []string{"Go", "WireGuard", "mTLS", "OIDC"},
			IsPublic:    true,
			GitHubURL:   "https://github.com/SIAKOU/ZeroTrust-Gateway",
			Stars:       532,
			Forks:       78,
			LastUpdate:  date(2024, time.January, 10),
			Category:    CategorySecurity,
			Difficulty:  DifficultyAdvanced,
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
