package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

func newSyncRunRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSyncRunRepositoryCreateDefaultsToRunning(t *testing.T) {
	db, mock, cleanup := newSyncRunRepoMock(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_runs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.SyncRun{
		BuildingID:  "bldg-sci",
		Term:        202610,
		WindowStart: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.SyncRunStatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRunRepositoryFinish(t *testing.T) {
	db, mock, cleanup := newSyncRunRepoMock(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sync_runs")).
		WithArgs("run-1", string(models.SyncRunStatusCompleted), 12, 0, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finish(context.Background(), "run-1", models.SyncRunStatusCompleted, models.SyncResult{Processed: 12})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRunRepositoryFinishUnknownRun(t *testing.T) {
	db, mock, cleanup := newSyncRunRepoMock(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sync_runs")).
		WithArgs("run-missing", string(models.SyncRunStatusFailed), 0, 0, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Finish(context.Background(), "run-missing", models.SyncRunStatusFailed, models.SyncResult{Errors: 3})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRunRepositoryListByBuildingClampsLimit(t *testing.T) {
	db, mock, cleanup := newSyncRunRepoMock(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "building_id", "term", "window_start", "window_end", "status", "processed", "skipped", "errors", "started_at", "finished_at"}).
		AddRow("run-1", "bldg-sci", 202610, time.Now(), time.Now(), "COMPLETED", 12, 0, 0, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM sync_runs WHERE building_id = $1 ORDER BY started_at DESC LIMIT 20")).
		WithArgs("bldg-sci").
		WillReturnRows(rows)

	runs, err := repo.ListByBuilding(context.Background(), "bldg-sci", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncRunStatusCompleted, runs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
