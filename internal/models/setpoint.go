package models

import "time"

// SetpointCommand is a row in the external BAS command queue. effective_time
// is stored in the controller's local timezone, which is the queue's native
// representation and the lookup key alongside point_name. Once dispatched is
// true the value and effective time are frozen from this pipeline's
// perspective; only the external controller transitions dispatched.
type SetpointCommand struct {
	ID            string    `db:"id" json:"id"`
	PointName     string    `db:"point_name" json:"point_name"`
	EffectiveTime time.Time `db:"effective_time" json:"effective_time"`
	Value         float64   `db:"value" json:"value"`
	Dispatched    bool      `db:"dispatched" json:"dispatched"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SetpointAudit mirrors each command write for operational debugging. The
// pipeline only appends or merges these rows and never reads them back.
type SetpointAudit struct {
	ID              string    `db:"id" json:"id"`
	ZoneCode        string    `db:"zone_code" json:"zone_code"`
	FacilityID      string    `db:"facility_id" json:"facility_id"`
	CourseTitle     string    `db:"course_title" json:"course_title"`
	EnrollmentTotal int       `db:"enrollment_total" json:"enrollment_total"`
	Value           float64   `db:"value" json:"value"`
	EffectiveTime   time.Time `db:"effective_time" json:"effective_time"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CommandFilter describes query params for command reporting pages.
type CommandFilter struct {
	PointName  string
	Dispatched *bool
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// AuditFilter describes query params for audit reporting and export.
type AuditFilter struct {
	ZoneCode   string
	FacilityID string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
