package models

import "time"

// Term is an academic term as coded by the source system. The active term is
// the one whose date range contains the current instant.
type Term struct {
	Code      int       `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
}
