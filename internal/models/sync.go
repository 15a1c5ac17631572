package models

import "time"

// SyncResult summarizes one pipeline run for the triggering caller.
type SyncResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Add accumulates another partial result into this one.
func (r *SyncResult) Add(other SyncResult) {
	r.Processed += other.Processed
	r.Skipped += other.Skipped
	r.Errors += other.Errors
}

// SyncRunStatus represents lifecycle phases for a recorded pipeline run.
type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "RUNNING"
	SyncRunStatusCompleted SyncRunStatus = "COMPLETED"
	SyncRunStatusFailed    SyncRunStatus = "FAILED"
)

// SyncRun is the durable bookkeeping row for one pipeline invocation, read by
// the reporting pages. No run succeeds silently.
type SyncRun struct {
	ID          string        `db:"id" json:"id"`
	BuildingID  string        `db:"building_id" json:"building_id"`
	Term        int           `db:"term" json:"term"`
	WindowStart time.Time     `db:"window_start" json:"window_start"`
	WindowEnd   time.Time     `db:"window_end" json:"window_end"`
	Status      SyncRunStatus `db:"status" json:"status"`
	Processed   int           `db:"processed" json:"processed"`
	Skipped     int           `db:"skipped" json:"skipped"`
	Errors      int           `db:"errors" json:"errors"`
	StartedAt   time.Time     `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time    `db:"finished_at" json:"finished_at,omitempty"`
}

// ZoneDemand is the computed outdoor-air demand for one zone at one
// occurrence. Setpoint is min(Dynamic, Max): scheduled occupancy never
// requests more outdoor air than the zone's fixed maximum permits.
type ZoneDemand struct {
	ZoneID   string  `json:"zone_id"`
	ZoneCode string  `json:"zone_code"`
	Dynamic  float64 `json:"dynamic"`
	Max      float64 `json:"max"`
	Setpoint float64 `json:"setpoint"`
}
