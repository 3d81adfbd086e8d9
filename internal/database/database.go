package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"portfolio.siakou.dev/internal/config"
	dbpgx "portfolio.siakou.dev/internal/database/pgx"
	"portfolio.siakou.dev/internal/project"
)

type Database struct {
	pg *pgxpool.Pool
}

// NewForConfig constructs a Database using the provided config.
func NewForConfig(ctx context.Context, cfg *config.Config) (*Database, error) {
	pg, err := dbpgx.NewClientForConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(pg), nil
}

// NewClient constructs a Database using the provided pgx pool.
func NewClient(pg *pgxpool.Pool) *Database { return &Database{pg: pg} }

// Ping verifies the provided database connection is available
func (db *Database) Ping(ctx context.Context) error {
	tracer := otel.Tracer("portfolio/database")
	ctx, span := tracer.Start(ctx, "Database.Ping")
	defer span.End()
	if db.pg == nil {
		return fmt.Errorf("database connection not available")
	}
	return db.pg.Ping(ctx)
}

func (db *Database) Close() error {
	if db.pg == nil {
		return nil
	}
	db.pg.Close()
	return nil
}

// GetRepositorySnapshot loads the cached repository listing for a user.
// It returns nil, nil when nothing is cached.
func (db *Database) GetRepositorySnapshot(
	ctx context.Context,
	args GetRepositorySnapshotArgs,
) (*RepositorySnapshot, error) {
	tracer := otel.Tracer("portfolio/database")
	ctx, span := tracer.Start(ctx, "Database.GetRepositorySnapshot")
	span.SetAttributes(
		attribute.String("hostname", args.Hostname),
		attribute.String("username", args.Username),
	)
	defer span.End()
	if db.pg == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var snap RepositorySnapshot
	var payload []byte
	err := db.pg.QueryRow(ctx, RepositorySnapshotQuery, args.Hostname, args.Username).
		Scan(&snap.ID, &snap.Hostname, &snap.Username, &payload, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query repository snapshot failed: %w", err)
	}
	if err := json.Unmarshal(payload, &snap.Repositories); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decode repository snapshot failed: %w", err)
	}
	slog.DebugContext(
		ctx,
		"get repository snapshot",
		"username", args.Username,
		"repositories", len(snap.Repositories),
		"updated_at", snap.UpdatedAt,
	)
	return &snap, nil
}

// UpsertRepositorySnapshot replaces the cached repository listing for a user.
func (db *Database) UpsertRepositorySnapshot(
	ctx context.Context,
	args UpsertRepositorySnapshotArgs,
) error {
	tracer := otel.Tracer("portfolio/database")
	ctx, span := tracer.Start(ctx, "Database.UpsertRepositorySnapshot")
	span.SetAttributes(
		attribute.String("username", args.Username),
		attribute.Int("repos_len", len(args.Repositories)),
	)
	defer span.End()
	if db.pg == nil {
		return fmt.Errorf("database connection not available")
	}
	repos := args.Repositories
	if repos == nil {
		repos = []project.Repository{}
	}
	payload, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("encode repository snapshot failed: %w", err)
	}
	var id int64
	if err := db.pg.QueryRow(
		ctx,
		UpsertRepositorySnapshotQuery,
		args.Hostname,
		args.Username,
		payload,
		len(repos),
	).Scan(&id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert repository snapshot failed: %w", err)
	}
	slog.DebugContext(ctx, "upsert repository snapshot", "id", id, "username", args.Username, "count", len(repos))
	return nil
}

// DeleteRepositorySnapshot drops the cached listing so the next fetch goes to GitHub.
func (db *Database) DeleteRepositorySnapshot(
	ctx context.Context,
	args DeleteRepositorySnapshotArgs,
) error {
	tracer := otel.Tracer("portfolio/database")
	ctx, span := tracer.Start(ctx, "Database.DeleteRepositorySnapshot")
	span.SetAttributes(attribute.String("username", args.Username))
	defer span.End()
	if db.pg == nil {
		return fmt.Errorf("database connection not available")
	}
	if _, err := db.pg.Exec(ctx, DeleteRepositorySnapshotQuery, args.Hostname, args.Username); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete repository snapshot failed: %w", err)
	}
	return nil
}

// Age reports how long ago the snapshot was written.
func (s *RepositorySnapshot) Age() time.Duration { return time.Since(s.UpdatedAt) }
