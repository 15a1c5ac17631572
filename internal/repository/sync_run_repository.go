package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// SyncRunRepository stores the durable bookkeeping row for each pipeline
// invocation.
type SyncRunRepository struct {
	db *sqlx.DB
}

// NewSyncRunRepository constructs repository.
func NewSyncRunRepository(db *sqlx.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a run in RUNNING state.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if run == nil {
		return fmt.Errorf("sync run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.SyncRunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO sync_runs (id, building_id, term, window_start, window_end, status, processed, skipped, errors, started_at)
VALUES (:id, :building_id, :term, :window_start, :window_end, :status, :processed, :skipped, :errors, :started_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, run); err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// Finish records the final counts and status of a run.
func (r *SyncRunRepository) Finish(ctx context.Context, id string, status models.SyncRunStatus, result models.SyncResult) error {
	const query = `UPDATE sync_runs
SET status = $2, processed = $3, skipped = $4, errors = $5, finished_at = $6
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, result.Processed, result.Skipped, result.Errors, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish sync run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sync run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByBuilding returns recent runs for a building, newest first.
func (r *SyncRunRepository) ListByBuilding(ctx context.Context, buildingID string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, building_id, term, window_start, window_end, status, processed, skipped, errors, started_at, finished_at
FROM sync_runs WHERE building_id = $1 ORDER BY started_at DESC LIMIT %d`, limit)
	var runs []models.SyncRun
	if err := r.db.SelectContext(ctx, &runs, query, buildingID); err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return runs, nil
}
