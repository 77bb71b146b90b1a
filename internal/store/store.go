// Package store keeps the local model registry: which translation model
// assets each engine provider has already downloaded.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Model is a row from the models table.
type Model struct {
	Provider     string
	Name         string
	SizeBytes    int64
	DownloadedAt time.Time
	LastUsed     time.Time
}

// Stats summarises the registry.
type Stats struct {
	Models     int
	Providers  int
	TotalBytes int64
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		provider TEXT NOT NULL,
		name TEXT NOT NULL,
		size_bytes INTEGER DEFAULT 0,
		downloaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (provider, name)
	);

	CREATE INDEX IF NOT EXISTS idx_models_provider ON models(provider);
	`

	_, err := s.db.Exec(schema)
	return err
}

// HasModel reports whether the named asset is registered for provider and
// bumps its last-used time when it is.
func (s *Store) HasModel(ctx context.Context, provider, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE models SET last_used = ? WHERE provider = ? AND name = ?`,
		time.Now(), provider, normalizeName(name))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveModel registers a downloaded asset, replacing any previous record.
func (s *Store) SaveModel(ctx context.Context, m Model) error {
	if m.DownloadedAt.IsZero() {
		m.DownloadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO models (provider, name, size_bytes, downloaded_at, last_used) VALUES (?, ?, ?, ?, ?)`,
		m.Provider, normalizeName(m.Name), m.SizeBytes, m.DownloadedAt, m.DownloadedAt)
	return err
}

// ListModels returns registered models, optionally filtered by provider
// (pass "" for all), most recently used first.
func (s *Store) ListModels(ctx context.Context, provider string) ([]Model, error) {
	query := `SELECT provider, name, size_bytes, downloaded_at, last_used FROM models`
	var args []interface{}
	if provider != "" {
		query += ` WHERE provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY last_used DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []Model
	for rows.Next() {
		var m Model
		if err := rows.Scan(&m.Provider, &m.Name, &m.SizeBytes, &m.DownloadedAt, &m.LastUsed); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// DeleteModel removes one registry entry. Deleting a missing entry is an error
// so the CLI can report typos.
func (s *Store) DeleteModel(ctx context.Context, provider, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM models WHERE provider = ? AND name = ?`, provider, normalizeName(name))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("model not found: %s/%s", provider, name)
	}
	return nil
}

// ClearModels removes every entry, or only the provider's when provider is set.
func (s *Store) ClearModels(ctx context.Context, provider string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if provider == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM models`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM models WHERE provider = ?`, provider)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT provider),
			COALESCE(SUM(size_bytes), 0)
		FROM models`).Scan(&stats.Models, &stats.Providers, &stats.TotalBytes)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeName makes registry keys insensitive to case and stray spaces,
// e.g. "Llama3.2 " and "llama3.2".
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
