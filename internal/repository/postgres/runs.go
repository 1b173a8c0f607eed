package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// RunRepo stores the history of sync runs. Per-item results stay in
// memory; only the run-level counters are persisted.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a Postgres-backed run history repository.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

// Save records a finished run.
func (r *RunRepo) Save(ctx context.Context, report *domain.RunReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs
			(id, content_type, status, forced, created_count, updated_count,
			 unchanged_count, deleted_count, failed_count, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, report.ID.String(), string(report.ContentType), string(report.Status), report.Forced,
		report.Created, report.Updated, report.Unchanged, report.Deleted, report.Failed,
		report.Error, report.StartedAt, report.FinishedAt)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// List returns the most recent runs for a content type, newest first.
func (r *RunRepo) List(ctx context.Context, ct domain.ContentType, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content_type, status, forced, created_count, updated_count,
		       unchanged_count, deleted_count, failed_count, COALESCE(error,''),
		       started_at, finished_at
		FROM sync_runs
		WHERE content_type = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, string(ct), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunReport
	for rows.Next() {
		var report domain.RunReport
		var id, contentType, status string
		if err := rows.Scan(
			&id, &contentType, &status, &report.Forced,
			&report.Created, &report.Updated, &report.Unchanged, &report.Deleted, &report.Failed,
			&report.Error, &report.StartedAt, &report.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		report.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		report.ContentType = domain.ContentType(contentType)
		report.Status = domain.RunStatus(status)
		out = append(out, report)
	}
	return out, rows.Err()
}
