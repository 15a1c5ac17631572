package models

import "time"

// OccurrenceSource distinguishes class meetings from exam sittings.
type OccurrenceSource string

const (
	OccurrenceSourceClass OccurrenceSource = "CLASS"
	OccurrenceSourceExam  OccurrenceSource = "EXAM"
)

// Occurrence is one dated, timed event expanded from a recurring schedule
// entry or an exam row. (external_id, term, start_time, end_time) is the
// natural key: re-expanding the same date updates in place, never duplicates.
// Timestamps are stored in UTC; start_time < end_time always.
type Occurrence struct {
	ID              string           `db:"id" json:"id"`
	ExternalID      string           `db:"external_id" json:"external_id"`
	Term            int              `db:"term" json:"term"`
	Source          OccurrenceSource `db:"source" json:"source"`
	FacilityID      string           `db:"facility_id" json:"facility_id"`
	BuildingCode    string           `db:"building_code" json:"building_code"`
	RoomNumber      string           `db:"room_number" json:"room_number"`
	Campus          string           `db:"campus" json:"campus"`
	CourseTitle     string           `db:"course_title" json:"course_title"`
	StartTime       time.Time        `db:"start_time" json:"start_time"`
	EndTime         time.Time        `db:"end_time" json:"end_time"`
	EnrollmentTotal int              `db:"enrollment_total" json:"enrollment_total"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// SameSemantics reports whether other carries no meaningful change, used to
// skip needless version churn on exam re-ingestion. The natural-key fields
// are compared along with facility and campus.
func (o Occurrence) SameSemantics(other Occurrence) bool {
	return o.ExternalID == other.ExternalID &&
		o.Term == other.Term &&
		o.StartTime.Equal(other.StartTime) &&
		o.EndTime.Equal(other.EndTime) &&
		o.FacilityID == other.FacilityID &&
		o.Campus == other.Campus
}

// ProgressMarker records the last expanded date for a schedule entry.
// last_processed_date is monotonically non-decreasing; dates at or before it
// are never re-expanded. updated_at feeds the debounce window.
type ProgressMarker struct {
	ExternalID        string    `db:"external_id" json:"external_id"`
	Term              int       `db:"term" json:"term"`
	LastProcessedDate time.Time `db:"last_processed_date" json:"last_processed_date"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// OccurrenceFilter describes query params for occurrence reporting pages.
type OccurrenceFilter struct {
	BuildingCode string
	Term         int
	FacilityID   string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}
