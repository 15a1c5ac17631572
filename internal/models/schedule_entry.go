package models

import (
	"fmt"
	"time"
)

// ScheduleEntry is a recurring class meeting definition sourced from the SIS.
// Rows are read-only for the pipeline apart from enrollment corrections made
// upstream, which are reconciled into already-expanded occurrences.
type ScheduleEntry struct {
	ExternalID      string    `db:"external_id" json:"external_id"`
	Term            int       `db:"term" json:"term"`
	BuildingCode    string    `db:"building_code" json:"building_code"`
	RoomNumber      string    `db:"room_number" json:"room_number"`
	CourseTitle     string    `db:"course_title" json:"course_title"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	MeetingStart    string    `db:"meeting_start" json:"meeting_start"`
	MeetingEnd      string    `db:"meeting_end" json:"meeting_end"`
	MeetsMonday     bool      `db:"meets_monday" json:"meets_monday"`
	MeetsTuesday    bool      `db:"meets_tuesday" json:"meets_tuesday"`
	MeetsWednesday  bool      `db:"meets_wednesday" json:"meets_wednesday"`
	MeetsThursday   bool      `db:"meets_thursday" json:"meets_thursday"`
	MeetsFriday     bool      `db:"meets_friday" json:"meets_friday"`
	MeetsSaturday   bool      `db:"meets_saturday" json:"meets_saturday"`
	MeetsSunday     bool      `db:"meets_sunday" json:"meets_sunday"`
	EnrollmentTotal int       `db:"enrollment_total" json:"enrollment_total"`
}

// MeetingTimeLayout is the wall-clock layout for meeting_start/meeting_end.
const MeetingTimeLayout = "15:04"

// FacilityID returns the building+room composite key used by the BAS.
func (e ScheduleEntry) FacilityID() string {
	return e.BuildingCode + "-" + e.RoomNumber
}

// MeetsOn reports whether the entry recurs on the given weekday.
func (e ScheduleEntry) MeetsOn(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return e.MeetsMonday
	case time.Tuesday:
		return e.MeetsTuesday
	case time.Wednesday:
		return e.MeetsWednesday
	case time.Thursday:
		return e.MeetsThursday
	case time.Friday:
		return e.MeetsFriday
	case time.Saturday:
		return e.MeetsSaturday
	case time.Sunday:
		return e.MeetsSunday
	}
	return false
}

// Validate checks the fields every expansion requires. Entries failing
// validation are skipped for the run and must be corrected upstream.
func (e ScheduleEntry) Validate() error {
	if e.ExternalID == "" {
		return fmt.Errorf("schedule entry: empty external id")
	}
	if e.Term <= 0 {
		return fmt.Errorf("schedule entry %s: invalid term %d", e.ExternalID, e.Term)
	}
	if e.BuildingCode == "" || e.RoomNumber == "" {
		return fmt.Errorf("schedule entry %s: missing building or room", e.ExternalID)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() || e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("schedule entry %s: invalid date range", e.ExternalID)
	}
	start, err := time.Parse(MeetingTimeLayout, e.MeetingStart)
	if err != nil {
		return fmt.Errorf("schedule entry %s: bad meeting start %q", e.ExternalID, e.MeetingStart)
	}
	end, err := time.Parse(MeetingTimeLayout, e.MeetingEnd)
	if err != nil {
		return fmt.Errorf("schedule entry %s: bad meeting end %q", e.ExternalID, e.MeetingEnd)
	}
	if !end.After(start) {
		return fmt.Errorf("schedule entry %s: meeting end %q not after start %q", e.ExternalID, e.MeetingEnd, e.MeetingStart)
	}
	return nil
}

// ExamRow is a single dated exam sitting. Unlike class entries there is no
// weekday recurrence; each row expands to exactly one occurrence.
type ExamRow struct {
	ExternalID      string    `db:"external_id" json:"external_id"`
	Term            int       `db:"term" json:"term"`
	Campus          string    `db:"campus" json:"campus"`
	BuildingCode    string    `db:"building_code" json:"building_code"`
	RoomNumber      string    `db:"room_number" json:"room_number"`
	CourseTitle     string    `db:"course_title" json:"course_title"`
	ExamDate        time.Time `db:"exam_date" json:"exam_date"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	EnrollmentTotal int       `db:"enrollment_total" json:"enrollment_total"`
}

// FacilityID returns the building+room composite key used by the BAS.
func (e ExamRow) FacilityID() string {
	return e.BuildingCode + "-" + e.RoomNumber
}

// Validate checks the fields exam expansion requires.
func (e ExamRow) Validate() error {
	if e.ExternalID == "" {
		return fmt.Errorf("exam row: empty external id")
	}
	if e.Term <= 0 {
		return fmt.Errorf("exam row %s: invalid term %d", e.ExternalID, e.Term)
	}
	if e.BuildingCode == "" || e.RoomNumber == "" {
		return fmt.Errorf("exam row %s: missing building or room", e.ExternalID)
	}
	if e.ExamDate.IsZero() {
		return fmt.Errorf("exam row %s: missing exam date", e.ExternalID)
	}
	start, err := time.Parse(MeetingTimeLayout, e.StartTime)
	if err != nil {
		return fmt.Errorf("exam row %s: bad start time %q", e.ExternalID, e.StartTime)
	}
	end, err := time.Parse(MeetingTimeLayout, e.EndTime)
	if err != nil {
		return fmt.Errorf("exam row %s: bad end time %q", e.ExternalID, e.EndTime)
	}
	if !end.After(start) {
		return fmt.Errorf("exam row %s: end time %q not after start %q", e.ExternalID, e.EndTime, e.StartTime)
	}
	return nil
}
