package project

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Category groups projects on the portfolio page.
type Category string

const (
	CategorySecurity Category = "security"
	CategoryNetwork  Category = "network"
	CategoryWeb      Category = "web"
	CategoryDevOps   Category = "devops"
	CategoryAI       Category = "ai"
	CategoryOther    Category = "other"
)

// Difficulty is a coarse popularity band derived from the star count.
type Difficulty string

const (
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Status of a project.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// NoDescription is shown when a repository has no description.
const NoDescription = "No description available"

// Repository is the subset of the GitHub repository payload the portfolio relies on.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	Private     bool      `json:"private"`
	Archived    bool      `json:"archived"`
	HTMLURL     string    `json:"html_url,omitempty"`
	Homepage    string    `json:"homepage,omitempty"`
	License     string    `json:"license,omitempty"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Watchers    int       `json:"watchers_count"`
	Size        int       `json:"size"`
	HasIssues   bool      `json:"has_issues"`
	HasProjects bool      `json:"has_projects"`
	HasWiki     bool      `json:"has_wiki"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Project is the UI-ready view of a repository. Values are built once and never mutated.
type Project struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LongDescription string     `json:"long_description,omitempty"`
	Category        Category   `json:"category"`
	Difficulty      Difficulty `json:"difficulty"`
	Status          Status     `json:"status,omitempty"`
	TechStack       []string   `json:"tech_stack"`
	IsPublic        bool       `json:"is_public"`
	GitHubURL       string     `json:"github_url,omitempty"`
	DemoURL         string     `json:"demo_url,omitempty"`
	Stars           int        `json:"stars"`
	Forks           int        `json:"forks"`
	Watchers        int        `json:"watchers"`
	LastUpdate      time.Time  `json:"last_update,omitzero"`
	CreatedAt       time.Time  `json:"created_at,omitzero"`
	Language        string     `json:"language,omitempty"`
	Topics          []string   `json:"topics,omitempty"`
	Homepage        string     `json:"homepage,omitempty"`
	License         string     `json:"license,omitempty"`
	Size            int        `json:"size,omitempty"`
	HasIssues       bool       `json:"has_issues"`
	HasProjects     bool       `json:"has_projects"`
	HasWiki         bool       `json:"has_wiki"`
	Archived        bool       `json:"archived"`
}

func (p Project) clone() Project {
	p.TechStack = slices.Clone(p.TechStack)
	p.Topics = slices.Clone(p.Topics)
	return p
}

// Classify derives the category and difficulty of a repository.
//
// Rules are evaluated in order and the first match wins. Topics are matched as whole
// entries, names as case-sensitive substrings.
func Classify(r Repository) (Category, Difficulty) {
	return classifyCategory(r), classifyDifficulty(r.Stars)
}

func classifyCategory(r Repository) Category {
	switch {
	case slices.Contains(r.Topics, "security") || strings.Contains(r.Name, "security"):
		return CategorySecurity
	case slices.Contains(r.Topics, "network") || strings.Contains(r.Name, "network"):
		return CategoryNetwork
	case slices.Contains(r.Topics, "web") || r.Language == "JavaScript" || r.Language == "TypeScript":
		return CategoryWeb
	case slices.Contains(r.Topics, "devops") || r.Language == "Python" || r.Language == "Go":
		return CategoryDevOps
	case slices.Contains(r.Topics, "ai") || slices.Contains(r.Topics, "ml"):
		return CategoryAI
	default:
		return CategoryOther
	}
}

func classifyDifficulty(stars int) Difficulty {
	switch {
	case stars > 500:
		return DifficultyExpert
	case stars > 100:
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

// FromRepository maps a repository record to its project view.
func FromRepository(r Repository) Project {
	category, difficulty := Classify(r)

	description := r.Description
	if description == "" {
		description = NoDescription
	}

	var stack []string
	if r.Language != "" {
		stack = append(stack, r.Language)
	}
	stack = append(stack, r.Topics...)

	status := StatusActive
	if r.Archived {
		status = StatusArchived
	}

	return Project{
		ID:              strconv.FormatInt(r.ID, 10),
		Title:           r.Name,
		Description:     description,
		LongDescription: r.Description,
		Category:        category,
		Difficulty:      difficulty,
		Status:          status,
		TechStack:       stack,
		IsPublic:        !r.Private,
		GitHubURL:       r.HTMLURL,
		DemoURL:         r.Homepage,
		Stars:           r.Stars,
		Forks:           r.Forks,
		Watchers:        r.Watchers,
		LastUpdate:      r.UpdatedAt,
		CreatedAt:       r.CreatedAt,
		Language:        r.Language,
		Topics:          slices.Clone(r.Topics),
		Homepage:        r.Homepage,
		License:         r.License,
		Size:            r.Size,
		HasIssues:       r.HasIssues,
		HasProjects:     r.HasProjects,
		HasWiki:         r.HasWiki,
		Archived:        r.Archived,
	}
}

// FromRepositories maps every repository in order.
func FromRepositories(repos []Repository) []Project {
	out := make([]Project, 0, len(repos))
	for _, r := range repos {
		out = append(out, FromRepository(r))
	}
	return out
}
