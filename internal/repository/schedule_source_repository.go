package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// ScheduleSourceRepository reads raw recurring class and exam schedule rows
// produced by ingestion. The pipeline never writes through it.
type ScheduleSourceRepository struct {
	db *sqlx.DB
}

// NewScheduleSourceRepository constructs repository.
func NewScheduleSourceRepository(db *sqlx.DB) *ScheduleSourceRepository {
	return &ScheduleSourceRepository{db: db}
}

// ListDueEntries returns the recurring entries for a term and building whose
// date range has not fully elapsed.
func (r *ScheduleSourceRepository) ListDueEntries(ctx context.Context, term int, buildingCode string) ([]models.ScheduleEntry, error) {
	const query = `SELECT external_id, term, building_code, room_number, course_title, start_date, end_date,
	meeting_start, meeting_end, meets_monday, meets_tuesday, meets_wednesday, meets_thursday,
	meets_friday, meets_saturday, meets_sunday, enrollment_total
FROM schedule_entries
WHERE term = $1 AND building_code = $2 AND end_date >= CURRENT_DATE
ORDER BY external_id`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, term, buildingCode); err != nil {
		return nil, fmt.Errorf("list due schedule entries: %w", err)
	}
	return entries, nil
}

// ListExamRows returns exam sittings for a term whose facility matches the
// given building-code prefix.
func (r *ScheduleSourceRepository) ListExamRows(ctx context.Context, term int, facilityPrefix string) ([]models.ExamRow, error) {
	const query = `SELECT external_id, term, campus, building_code, room_number, course_title,
	exam_date, start_time, end_time, enrollment_total
FROM exam_rows
WHERE term = $1 AND building_code LIKE $2 || '%'
ORDER BY exam_date, external_id`
	var rows []models.ExamRow
	if err := r.db.SelectContext(ctx, &rows, query, term, facilityPrefix); err != nil {
		return nil, fmt.Errorf("list exam rows: %w", err)
	}
	return rows, nil
}
