package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// OccurrenceRepository persists expanded occurrences and their per-entry
// progress markers. It is the only writer of either table.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository constructs repository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// Upsert inserts or updates an occurrence keyed by
// (external_id, term, start_time, end_time). Re-expanding the same date
// overwrites the mutable descriptors in place and never duplicates.
func (r *OccurrenceRepository) Upsert(ctx context.Context, occ *models.Occurrence) error {
	if occ == nil {
		return fmt.Errorf("occurrence payload is nil")
	}
	if !occ.StartTime.Before(occ.EndTime) {
		return fmt.Errorf("occurrence %s: start %s not before end %s", occ.ExternalID, occ.StartTime, occ.EndTime)
	}
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	occ.UpdatedAt = time.Now().UTC()

	const query = `
INSERT INTO occurrences (id, external_id, term, source, facility_id, building_code, room_number,
	campus, course_title, start_time, end_time, enrollment_total, updated_at)
VALUES (:id, :external_id, :term, :source, :facility_id, :building_code, :room_number,
	:campus, :course_title, :start_time, :end_time, :enrollment_total, :updated_at)
ON CONFLICT (external_id, term, start_time, end_time) DO UPDATE SET
	facility_id = EXCLUDED.facility_id,
	building_code = EXCLUDED.building_code,
	room_number = EXCLUDED.room_number,
	campus = EXCLUDED.campus,
	course_title = EXCLUDED.course_title,
	enrollment_total = EXCLUDED.enrollment_total,
	updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, occ); err != nil {
		return fmt.Errorf("upsert occurrence: %w", err)
	}
	return nil
}

// FindExamOccurrence loads the single occurrence an exam source row maps to,
// or nil when the row has never been ingested. Exam rows carry no recurrence,
// so (external_id, term) identifies the sitting regardless of its current
// times.
func (r *OccurrenceRepository) FindExamOccurrence(ctx context.Context, externalID string, term int) (*models.Occurrence, error) {
	const query = `SELECT id, external_id, term, source, facility_id, building_code, room_number,
	campus, course_title, start_time, end_time, enrollment_total, updated_at
FROM occurrences WHERE external_id = $1 AND term = $2 AND source = $3`
	var occ models.Occurrence
	if err := r.db.GetContext(ctx, &occ, query, externalID, term, models.OccurrenceSourceExam); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find exam occurrence: %w", err)
	}
	return &occ, nil
}

// UpdateByID rewrites every mutable column of an occurrence, including its
// start and end times. The natural-key upsert can never move times, so
// reschedules go through here.
func (r *OccurrenceRepository) UpdateByID(ctx context.Context, occ *models.Occurrence) error {
	if occ == nil || occ.ID == "" {
		return fmt.Errorf("occurrence id is required")
	}
	if !occ.StartTime.Before(occ.EndTime) {
		return fmt.Errorf("occurrence %s: start %s not before end %s", occ.ExternalID, occ.StartTime, occ.EndTime)
	}
	occ.UpdatedAt = time.Now().UTC()

	const query = `UPDATE occurrences
SET facility_id = :facility_id,
	building_code = :building_code,
	room_number = :room_number,
	campus = :campus,
	course_title = :course_title,
	start_time = :start_time,
	end_time = :end_time,
	enrollment_total = :enrollment_total,
	updated_at = :updated_at
WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, occ)
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("occurrence rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListWindow returns occurrences for a building and term whose start falls
// inside [from, to), ordered by start time.
func (r *OccurrenceRepository) ListWindow(ctx context.Context, buildingCode string, term int, from, to time.Time) ([]models.Occurrence, error) {
	const query = `SELECT id, external_id, term, source, facility_id, building_code, room_number,
	campus, course_title, start_time, end_time, enrollment_total, updated_at
FROM occurrences
WHERE building_code = $1 AND term = $2 AND start_time >= $3 AND start_time < $4
ORDER BY start_time, external_id`
	var occurrences []models.Occurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, buildingCode, term, from, to); err != nil {
		return nil, fmt.Errorf("list occurrence window: %w", err)
	}
	return occurrences, nil
}

// UpdateFutureEnrollment reconciles a corrected enrollment total into
// occurrences that have not started yet. Past and in-progress occurrences
// keep their recorded value. Returns the number of rows changed.
func (r *OccurrenceRepository) UpdateFutureEnrollment(ctx context.Context, externalID string, term int, after time.Time, enrollment int) (int64, error) {
	const query = `UPDATE occurrences
SET enrollment_total = $4, updated_at = $5
WHERE external_id = $1 AND term = $2 AND start_time > $3 AND enrollment_total <> $4`
	result, err := r.db.ExecContext(ctx, query, externalID, term, after, enrollment, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("reconcile future enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reconcile rows affected: %w", err)
	}
	return affected, nil
}

// GetProgressMarker loads the marker for an entry, or nil when the entry has
// never been expanded.
func (r *OccurrenceRepository) GetProgressMarker(ctx context.Context, externalID string, term int) (*models.ProgressMarker, error) {
	const query = `SELECT external_id, term, last_processed_date, updated_at
FROM schedule_progress WHERE external_id = $1 AND term = $2`
	var marker models.ProgressMarker
	if err := r.db.GetContext(ctx, &marker, query, externalID, term); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress marker: %w", err)
	}
	return &marker, nil
}

// AdvanceProgressMarker records that every date up to and including the given
// one has been durably expanded. GREATEST keeps the marker monotonic even if
// callers race or replay.
func (r *OccurrenceRepository) AdvanceProgressMarker(ctx context.Context, externalID string, term int, date time.Time) error {
	const query = `
INSERT INTO schedule_progress (external_id, term, last_processed_date, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (external_id, term) DO UPDATE SET
	last_processed_date = GREATEST(schedule_progress.last_processed_date, EXCLUDED.last_processed_date),
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, externalID, term, date, time.Now().UTC()); err != nil {
		return fmt.Errorf("advance progress marker: %w", err)
	}
	return nil
}

// List returns occurrences matching the filter for the reporting pages.
func (r *OccurrenceRepository) List(ctx context.Context, filter models.OccurrenceFilter) ([]models.Occurrence, int, error) {
	base := "FROM occurrences WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BuildingCode != "" {
		conditions = append(conditions, fmt.Sprintf("building_code = $%d", len(args)+1))
		args = append(args, filter.BuildingCode)
	}
	if filter.Term != 0 {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.FacilityID != "" {
		conditions = append(conditions, fmt.Sprintf("facility_id = $%d", len(args)+1))
		args = append(args, filter.FacilityID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count occurrences: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, external_id, term, source, facility_id, building_code, room_number,
	campus, course_title, start_time, end_time, enrollment_total, updated_at %s
ORDER BY start_time LIMIT %d OFFSET %d`, base, size, offset)

	var occurrences []models.Occurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list occurrences: %w", err)
	}
	return occurrences, total, nil
}
