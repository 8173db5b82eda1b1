// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/persistence/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS export_jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		output TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_export_jobs_updated ON export_jobs(updated_at_ms);`,
	`ALTER TABLE export_jobs ADD COLUMN error_kind TEXT NOT NULL DEFAULT '';`,
}

// SqliteStore persists the ledger in SQLite.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the ledger at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("export store: migration failed: %w", err)
	}
	issues, err := sqlite.VerifyIntegrity(context.Background(), db, "quick")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("export store: integrity check: %w", err)
	}
	if len(issues) > 0 {
		_ = db.Close()
		return nil, fmt.Errorf("export store: ledger corrupt: %s", strings.Join(issues, "; "))
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) Put(ctx context.Context, r Record) error {
	query := `
	INSERT INTO export_jobs (id, kind, status, source, output, error, error_kind, created_at_ms, updated_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		output = excluded.output,
		error = excluded.error,
		error_kind = excluded.error_kind,
		updated_at_ms = excluded.updated_at_ms
	`
	_, err := s.DB.ExecContext(ctx, query,
		r.ID, string(r.Kind), string(r.Status), r.Source, r.Output, r.Error, string(r.ErrorKind),
		r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli(),
	)
	return err
}

const selectColumns = `SELECT id, kind, status, source, output, error, error_kind, created_at_ms, updated_at_ms FROM export_jobs`

func (s *SqliteStore) Get(ctx context.Context, id string) (Record, error) {
	r, err := scanRecord(s.DB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *SqliteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, selectColumns+` ORDER BY updated_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                    Record
		kind, status, ek     string
		createdMS, updatedMS int64
	)
	if err := row.Scan(&r.ID, &kind, &status, &r.Source, &r.Output, &r.Error, &ek, &createdMS, &updatedMS); err != nil {
		return Record{}, err
	}
	r.Kind = domain.JobKind(kind)
	r.Status = domain.JobStatus(status)
	r.ErrorKind = domain.Kind(ek)
	r.CreatedAt = time.UnixMilli(createdMS).UTC()
	r.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return r, nil
}
