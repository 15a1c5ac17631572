package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

func newOccurrenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOccurrenceRepositoryUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO occurrences")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	occ := &models.Occurrence{
		ExternalID:      "CHEM101-001",
		Term:            202610,
		Source:          models.OccurrenceSourceClass,
		FacilityID:      "SCI-R101",
		BuildingCode:    "SCI",
		RoomNumber:      "R101",
		StartTime:       time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 1, 5, 14, 50, 0, 0, time.UTC),
		EnrollmentTotal: 20,
	}
	require.NoError(t, repo.Upsert(context.Background(), occ))
	assert.NotEmpty(t, occ.ID)
	assert.False(t, occ.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryUpsertRejectsInvertedTimes(t *testing.T) {
	db, _, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	occ := &models.Occurrence{
		ExternalID: "CHEM101-001",
		Term:       202610,
		StartTime:  time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC),
	}
	require.Error(t, repo.Upsert(context.Background(), occ))
}

func TestOccurrenceRepositoryFindExamOccurrence(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	start := time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "external_id", "term", "source", "facility_id", "building_code", "room_number",
		"campus", "course_title", "start_time", "end_time", "enrollment_total", "updated_at",
	}).AddRow("occ-9", "CHEM101-001", 202610, "EXAM", "SCI-R101", "SCI", "R101",
		"MAIN", "General Chemistry I", start, start.Add(2*time.Hour), 20, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM occurrences WHERE external_id = $1 AND term = $2 AND source = $3")).
		WithArgs("CHEM101-001", 202610, string(models.OccurrenceSourceExam)).
		WillReturnRows(rows)

	occ, err := repo.FindExamOccurrence(context.Background(), "CHEM101-001", 202610)
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, "occ-9", occ.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryFindExamOccurrenceMiss(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM occurrences WHERE external_id = $1 AND term = $2 AND source = $3")).
		WithArgs("CHEM101-001", 202610, string(models.OccurrenceSourceExam)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	occ, err := repo.FindExamOccurrence(context.Background(), "CHEM101-001", 202610)
	require.NoError(t, err)
	assert.Nil(t, occ)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryUpdateByIDMovesTimes(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE occurrences")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	occ := &models.Occurrence{
		ID:              "occ-9",
		ExternalID:      "CHEM101-001",
		Term:            202610,
		Source:          models.OccurrenceSourceExam,
		FacilityID:      "SCI-R101",
		BuildingCode:    "SCI",
		RoomNumber:      "R101",
		StartTime:       time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC),
		EnrollmentTotal: 20,
	}
	require.NoError(t, repo.UpdateByID(context.Background(), occ))
	assert.False(t, occ.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryUpdateByIDRequiresID(t *testing.T) {
	db, _, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	occ := &models.Occurrence{
		ExternalID: "CHEM101-001",
		Term:       202610,
		StartTime:  time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC),
	}
	require.Error(t, repo.UpdateByID(context.Background(), occ))
}

func TestOccurrenceRepositoryListWindow(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	rows := sqlmock.NewRows([]string{
		"id", "external_id", "term", "source", "facility_id", "building_code", "room_number",
		"campus", "course_title", "start_time", "end_time", "enrollment_total", "updated_at",
	}).AddRow("occ-1", "CHEM101-001", 202610, "CLASS", "SCI-R101", "SCI", "R101",
		"MAIN", "General Chemistry I", from.Add(14*time.Hour), from.Add(15*time.Hour), 20, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE building_code = $1 AND term = $2 AND start_time >= $3 AND start_time < $4")).
		WithArgs("SCI", 202610, from, to).
		WillReturnRows(rows)

	list, err := repo.ListWindow(context.Background(), "SCI", 202610, from, to)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.OccurrenceSourceClass, list[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryUpdateFutureEnrollment(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	after := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("WHERE external_id = $1 AND term = $2 AND start_time > $3 AND enrollment_total <> $4")).
		WithArgs("CHEM101-001", 202610, after, 35, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	changed, err := repo.UpdateFutureEnrollment(context.Background(), "CHEM101-001", 202610, after, 35)
	require.NoError(t, err)
	assert.Equal(t, int64(4), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryGetProgressMarkerMiss(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_progress WHERE external_id = $1 AND term = $2")).
		WithArgs("CHEM101-001", 202610).
		WillReturnRows(sqlmock.NewRows([]string{"external_id"}))

	marker, err := repo.GetProgressMarker(context.Background(), "CHEM101-001", 202610)
	require.NoError(t, err)
	assert.Nil(t, marker)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryAdvanceProgressMarkerIsMonotonic(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	date := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("last_processed_date = GREATEST(schedule_progress.last_processed_date, EXCLUDED.last_processed_date)")).
		WithArgs("CHEM101-001", 202610, date, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.AdvanceProgressMarker(context.Background(), "CHEM101-001", 202610, date))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM occurrences WHERE 1=1 AND building_code = $1 AND term = $2")).
		WithArgs("SCI", 202610).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{
		"id", "external_id", "term", "source", "facility_id", "building_code", "room_number",
		"campus", "course_title", "start_time", "end_time", "enrollment_total", "updated_at",
	}).AddRow("occ-1", "CHEM101-001", 202610, "CLASS", "SCI-R101", "SCI", "R101",
		"MAIN", "General Chemistry I", time.Now(), time.Now().Add(time.Hour), 20, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY start_time LIMIT 50 OFFSET 0")).
		WithArgs("SCI", 202610).
		WillReturnRows(rows)

	list, total, err := repo.List(context.Background(), models.OccurrenceFilter{BuildingCode: "SCI", Term: 202610})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
