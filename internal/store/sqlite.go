package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/costestimator/internal/db"
	"github.com/Simplici0/costestimator/internal/migrations"
)

// createdAtLayout is fixed width so that text order matches time order.
const createdAtLayout = "2006-01-02 15:04:05.000000"

// SQLite stores projects in a SQLite database file.
type SQLite struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, database, migrations.SQLite); err != nil {
		database.Close()
		return nil, err
	}
	return NewSQLite(database), nil
}

// NewSQLite wraps an already migrated database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database, now: time.Now, newID: uuid.NewString}
}

func (s *SQLite) InsertProject(ctx context.Context, p NewProject) (SavedProject, error) {
	if err := validateNew(p); err != nil {
		return SavedProject{}, err
	}
	materialsJSON, laborJSON, err := encodeItems(p)
	if err != nil {
		return SavedProject{}, err
	}

	saved := SavedProject{
		ID:    s.newID(),
		Owner: p.Owner,
		Name:  p.Details.ProjectName,
		Dimensions: Dimensions{
			Length: p.Details.Length,
			Width:  p.Details.Width,
			Height: p.Details.Height,
		},
		TotalCost: p.TotalCost,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner, name, length, width, height, materials, labor, total_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, saved.ID, saved.Owner, saved.Name,
		saved.Dimensions.Length, saved.Dimensions.Width, saved.Dimensions.Height,
		string(materialsJSON), string(laborJSON), saved.TotalCost,
		saved.CreatedAt.Format(createdAtLayout))
	if err != nil {
		return SavedProject{}, fmt.Errorf("insert project: %w", err)
	}

	if err := decodeItems(&saved, materialsJSON, laborJSON); err != nil {
		return SavedProject{}, err
	}
	return saved, nil
}

func (s *SQLite) ListProjects(ctx context.Context, owner string) ([]SavedProject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, name, length, width, height, materials, labor, total_cost, created_at
		FROM projects
		WHERE owner = ?
		ORDER BY created_at DESC, rowid DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]SavedProject, 0, 16)
	for rows.Next() {
		p, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (s *SQLite) GetProject(ctx context.Context, owner, id string) (SavedProject, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, length, width, height, materials, labor, total_cost, created_at
		FROM projects
		WHERE owner = ? AND id = ?
	`, owner, id)

	p, err := scanSQLiteProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedProject{}, ErrNotFound
	}
	return p, err
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProject(row rowScanner) (SavedProject, error) {
	var (
		p                        SavedProject
		materialsJSON, laborJSON string
		createdAt                string
	)
	err := row.Scan(&p.ID, &p.Owner, &p.Name,
		&p.Dimensions.Length, &p.Dimensions.Width, &p.Dimensions.Height,
		&materialsJSON, &laborJSON, &p.TotalCost, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SavedProject{}, err
		}
		return SavedProject{}, fmt.Errorf("scan project: %w", err)
	}

	p.CreatedAt, err = time.ParseInLocation(createdAtLayout, createdAt, time.UTC)
	if err != nil {
		return SavedProject{}, fmt.Errorf("parse created_at of project %s: %w", p.ID, err)
	}
	if err := decodeItems(&p, []byte(materialsJSON), []byte(laborJSON)); err != nil {
		return SavedProject{}, err
	}
	return p, nil
}
