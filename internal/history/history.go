package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// History manages render history in SQLite
type History struct {
	db *sql.DB
}

// NewHistory creates a new history tracker
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// initSchema creates the database tables and indexes
func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS renders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deployment TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			artifact_count INTEGER NOT NULL DEFAULT 0,
			digest TEXT,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_deployment_id
		ON renders(deployment, id DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordRender records a render in the history. A zero StartedAt is
// replaced with the current time.
func (h *History) RecordRender(ctx context.Context, record *RenderRecord) (int64, error) {
	startedAt := record.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO renders
		(deployment, status, started_at, artifact_count, digest, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.Deployment,
		record.Status,
		startedAt.UTC().Format(time.RFC3339Nano),
		record.ArtifactCount,
		record.Digest,
		record.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert render record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetLatestRender returns the most recent render of a deployment, or nil
func (h *History) GetLatestRender(ctx context.Context, deployment string) (*RenderRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, deployment, status, started_at, artifact_count, digest, error_message
		FROM renders
		WHERE deployment = ?
		ORDER BY id DESC
		LIMIT 1
	`, deployment)

	record, err := scanRenderRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest render: %w", err)
	}

	return record, nil
}

// GetRenderHistory returns up to limit renders of a deployment, newest first
func (h *History) GetRenderHistory(ctx context.Context, deployment string, limit int) ([]RenderRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, deployment, status, started_at, artifact_count, digest, error_message
		FROM renders
		WHERE deployment = ?
		ORDER BY id DESC
		LIMIT ?
	`, deployment, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query render history: %w", err)
	}
	defer rows.Close()

	var records []RenderRecord
	for rows.Next() {
		record, err := scanRenderRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetAllDeploymentsStatus returns the latest render of each deployment
func (h *History) GetAllDeploymentsStatus(ctx context.Context) (map[string]*RenderRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT r1.id, r1.deployment, r1.status, r1.started_at, r1.artifact_count,
		       r1.digest, r1.error_message
		FROM renders r1
		INNER JOIN (
			SELECT deployment, MAX(id) as max_id
			FROM renders
			GROUP BY deployment
		) r2
		ON r1.id = r2.max_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all deployments status: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*RenderRecord)
	for rows.Next() {
		record, err := scanRenderRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render record: %w", err)
		}
		result[record.Deployment] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRenderRecord scans a database row into a RenderRecord
func scanRenderRecord(s scanner) (*RenderRecord, error) {
	var record RenderRecord
	var startedAtStr string

	err := s.Scan(
		&record.ID,
		&record.Deployment,
		&record.Status,
		&startedAtStr,
		&record.ArtifactCount,
		&record.Digest,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	record.StartedAt = startedAt

	return &record, nil
}
