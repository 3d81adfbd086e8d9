package database

import (
	"strings"
	"time"

	"portfolio.siakou.dev/internal/project"
)

type GetRepositorySnapshotArgs struct {
	Hostname string
	Username string
}

type UpsertRepositorySnapshotArgs struct {
	Hostname     string
	Username     string
	Repositories []project.Repository
}

type DeleteRepositorySnapshotArgs struct {
	Hostname string
	Username string
}

// RepositorySnapshot is the cached repository listing of one user.
type RepositorySnapshot struct {
	ID           uint64
	Hostname     string
	Username     string
	Repositories []project.Repository
	UpdatedAt    time.Time
}

var UpsertRepositorySnapshotQuery = strings.Join([]string{
	"INSERT INTO repository_snapshots (hostname, username, repositories, repository_count)",
	"VALUES ($1, $2, $3::jsonb, $4)",
	"ON CONFLICT (hostname, username)",
	"DO UPDATE SET repositories = EXCLUDED.repositories,",
	"repository_count = EXCLUDED.repository_count, updated_at = NOW()",
	"RETURNING id",
}, " ")

var RepositorySnapshotQuery = strings.Join([]string{
	"SELECT id, hostname, username, repositories, updated_at",
	"FROM repository_snapshots",
	"WHERE hostname=$1 AND username=$2",
}, " ")

var DeleteRepositorySnapshotQuery = strings.Join([]string{
	"DELETE FROM repository_snapshots",
	"WHERE hostname=$1 AND username=$2",
}, " ")
