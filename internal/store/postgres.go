package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Simplici0/costestimator/internal/db"
	"github.com/Simplici0/costestimator/internal/migrations"
)

// Postgres stores projects in PostgreSQL with line items as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := db.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	err = migrations.Up(ctx, sqlDB, migrations.Postgres)
	sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	return NewPostgres(pool), nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) InsertProject(ctx context.Context, p NewProject) (SavedProject, error) {
	if err := validateNew(p); err != nil {
		return SavedProject{}, err
	}
	materialsJSON, laborJSON, err := encodeItems(p)
	if err != nil {
		return SavedProject{}, err
	}

	const q = `
insert into projects (id, owner, name, length, width, height, materials, labor, total_cost)
values ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)
returning id::text, owner, name, length, width, height, materials::text, labor::text, total_cost, created_at;
`
	row := s.pool.QueryRow(ctx, q, uuid.NewString(), p.Owner, p.Details.ProjectName,
		p.Details.Length, p.Details.Width, p.Details.Height,
		string(materialsJSON), string(laborJSON), p.TotalCost)

	saved, err := scanPostgresProject(row)
	if err != nil {
		return SavedProject{}, fmt.Errorf("insert project: %w", err)
	}
	return saved, nil
}

func (s *Postgres) ListProjects(ctx context.Context, owner string) ([]SavedProject, error) {
	const q = `
select id::text, owner, name, length, width, height, materials::text, labor::text, total_cost, created_at
from projects
where owner = $1
order by created_at desc, seq desc;
`
	rows, err := s.pool.Query(ctx, q, owner)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := make([]SavedProject, 0, 16)
	for rows.Next() {
		p, err := scanPostgresProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func (s *Postgres) GetProject(ctx context.Context, owner, id string) (SavedProject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return SavedProject{}, ErrNotFound
	}

	const q = `
select id::text, owner, name, length, width, height, materials::text, labor::text, total_cost, created_at
from projects
where owner = $1 and id = $2;
`
	p, err := scanPostgresProject(s.pool.QueryRow(ctx, q, owner, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SavedProject{}, ErrNotFound
	}
	if err != nil {
		return SavedProject{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresProject(row pgx.Row) (SavedProject, error) {
	var (
		p                        SavedProject
		materialsJSON, laborJSON string
		createdAt                time.Time
	)
	if err := row.Scan(&p.ID, &p.Owner, &p.Name,
		&p.Dimensions.Length, &p.Dimensions.Width, &p.Dimensions.Height,
		&materialsJSON, &laborJSON, &p.TotalCost, &createdAt); err != nil {
		return SavedProject{}, err
	}
	p.CreatedAt = createdAt.UTC()

	if err := decodeItems(&p, []byte(materialsJSON), []byte(laborJSON)); err != nil {
		return SavedProject{}, err
	}
	return p, nil
}
