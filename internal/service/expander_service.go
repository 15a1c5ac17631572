package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-dcv-api/internal/models"
	"github.com/noah-isme/campus-dcv-api/pkg/config"
	appErrors "github.com/noah-isme/campus-dcv-api/pkg/errors"
)

type occurrenceStore interface {
	Upsert(ctx context.Context, occ *models.Occurrence) error
	FindExamOccurrence(ctx context.Context, externalID string, term int) (*models.Occurrence, error)
	UpdateByID(ctx context.Context, occ *models.Occurrence) error
	UpdateFutureEnrollment(ctx context.Context, externalID string, term int, after time.Time, enrollment int) (int64, error)
	GetProgressMarker(ctx context.Context, externalID string, term int) (*models.ProgressMarker, error)
	AdvanceProgressMarker(ctx context.Context, externalID string, term int, date time.Time) error
}

// ExpansionResult reports what one entry's expansion accomplished.
type ExpansionResult struct {
	Dates     int
	Failed    int
	Debounced bool
}

// ExpanderService turns recurring schedule entries into dated occurrences,
// tracking a per-entry progress marker so only unprocessed dates expand.
type ExpanderService struct {
	occurrences occurrenceStore
	sourceLoc   *time.Location
	debounce    time.Duration
	ceiling     int
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewExpanderService constructs ExpanderService.
func NewExpanderService(occurrences occurrenceStore, sourceLoc *time.Location, cfg config.PipelineConfig, metrics *MetricsService, logger *zap.Logger) *ExpanderService {
	if sourceLoc == nil {
		sourceLoc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ceiling := cfg.ExpansionCeiling
	if ceiling <= 0 {
		ceiling = 200
	}
	return &ExpanderService{
		occurrences: occurrences,
		sourceLoc:   sourceLoc,
		debounce:    cfg.DebounceWindow,
		ceiling:     ceiling,
		metrics:     metrics,
		logger:      logger,
	}
}

// ExpandEntry expands every meeting date of the entry that the progress
// marker has not yet covered, up to the per-invocation ceiling. A persistence
// failure on one date is caught and logged; later dates still expand, but the
// marker stops before the failed date so the next run retries it. The marker
// only ever advances after the date's occurrence is durably written.
func (s *ExpanderService) ExpandEntry(ctx context.Context, entry models.ScheduleEntry, now time.Time) (ExpansionResult, error) {
	res := ExpansionResult{}
	log := s.logger.Sugar()

	if err := entry.Validate(); err != nil {
		return res, appErrors.Wrap(err, appErrors.ErrMalformedEntry.Code, appErrors.ErrMalformedEntry.Status, "schedule entry failed validation")
	}

	marker, err := s.occurrences.GetProgressMarker(ctx, entry.ExternalID, entry.Term)
	if err != nil {
		return res, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "load progress marker")
	}
	if marker != nil && s.debounce > 0 && now.Sub(marker.UpdatedAt) < s.debounce {
		res.Debounced = true
		return res, nil
	}

	// Corrected enrollment flows into occurrences that have not started yet.
	// History is never rewritten.
	if marker != nil {
		if changed, err := s.occurrences.UpdateFutureEnrollment(ctx, entry.ExternalID, entry.Term, now, entry.EnrollmentTotal); err != nil {
			log.Warnw("enrollment reconciliation failed",
				"external_id", entry.ExternalID, "term", entry.Term, "error", err)
		} else if changed > 0 {
			log.Infow("reconciled enrollment into future occurrences",
				"external_id", entry.ExternalID, "term", entry.Term,
				"enrollment", entry.EnrollmentTotal, "occurrences", changed)
		}
	}

	startHour, startMin := parseMeetingTime(entry.MeetingStart)
	endHour, endMin := parseMeetingTime(entry.MeetingEnd)

	first := dateOnly(entry.StartDate)
	if marker != nil {
		next := dateOnly(marker.LastProcessedDate).AddDate(0, 0, 1)
		if next.After(first) {
			first = next
		}
	}

	markerBlocked := false
	processed := 0
	for d := first; !d.After(dateOnly(entry.EndDate)); d = d.AddDate(0, 0, 1) {
		if !entry.MeetsOn(d.Weekday()) {
			continue
		}
		if processed >= s.ceiling {
			log.Infow("expansion ceiling reached, deferring remainder",
				"external_id", entry.ExternalID, "term", entry.Term, "ceiling", s.ceiling)
			break
		}
		processed++

		occ := models.Occurrence{
			ExternalID:      entry.ExternalID,
			Term:            entry.Term,
			Source:          models.OccurrenceSourceClass,
			FacilityID:      entry.FacilityID(),
			BuildingCode:    entry.BuildingCode,
			RoomNumber:      entry.RoomNumber,
			CourseTitle:     entry.CourseTitle,
			StartTime:       s.localInstant(d, startHour, startMin),
			EndTime:         s.localInstant(d, endHour, endMin),
			EnrollmentTotal: entry.EnrollmentTotal,
		}

		if err := s.occurrences.Upsert(ctx, &occ); err != nil {
			log.Errorw("occurrence write failed, date will retry next run",
				"external_id", entry.ExternalID, "term", entry.Term,
				"date", d.Format("2006-01-02"), "error", err)
			s.metrics.IncExpansionFailures()
			res.Failed++
			markerBlocked = true
			continue
		}
		s.metrics.IncOccurrencesExpanded()
		res.Dates++

		if markerBlocked {
			continue
		}
		if err := s.occurrences.AdvanceProgressMarker(ctx, entry.ExternalID, entry.Term, d); err != nil {
			// Leaving the marker behind is safe; the dates re-expand
			// idempotently next run.
			log.Warnw("progress marker advance failed",
				"external_id", entry.ExternalID, "term", entry.Term,
				"date", d.Format("2006-01-02"), "error", err)
			markerBlocked = true
		}
	}

	return res, nil
}

// ExpandExam maps one exam row to exactly one occurrence, looked up by
// (external_id, term) since exams carry no recurrence. When the stored
// occurrence already carries the same start, end, facility, campus and term
// the write is skipped to avoid version churn; otherwise the existing row is
// rewritten in place, so a rescheduled sitting moves rather than duplicates.
func (s *ExpanderService) ExpandExam(ctx context.Context, row models.ExamRow) (bool, error) {
	if err := row.Validate(); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrMalformedEntry.Code, appErrors.ErrMalformedEntry.Status, "exam row failed validation")
	}

	startHour, startMin := parseMeetingTime(row.StartTime)
	endHour, endMin := parseMeetingTime(row.EndTime)
	day := dateOnly(row.ExamDate)

	occ := models.Occurrence{
		ExternalID:      row.ExternalID,
		Term:            row.Term,
		Source:          models.OccurrenceSourceExam,
		FacilityID:      row.FacilityID(),
		BuildingCode:    row.BuildingCode,
		RoomNumber:      row.RoomNumber,
		Campus:          row.Campus,
		CourseTitle:     row.CourseTitle,
		StartTime:       s.localInstant(day, startHour, startMin),
		EndTime:         s.localInstant(day, endHour, endMin),
		EnrollmentTotal: row.EnrollmentTotal,
	}

	existing, err := s.occurrences.FindExamOccurrence(ctx, occ.ExternalID, occ.Term)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "look up exam occurrence")
	}
	if existing != nil {
		if existing.SameSemantics(occ) {
			return false, nil
		}
		occ.ID = existing.ID
		if err := s.occurrences.UpdateByID(ctx, &occ); err != nil {
			s.metrics.IncExpansionFailures()
			return false, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "reschedule exam occurrence")
		}
		s.metrics.IncOccurrencesExpanded()
		return true, nil
	}

	if err := s.occurrences.Upsert(ctx, &occ); err != nil {
		s.metrics.IncExpansionFailures()
		return false, appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "write exam occurrence")
	}
	s.metrics.IncOccurrencesExpanded()
	return true, nil
}

// localInstant combines a calendar date with a wall-clock time in the source
// timezone and converts to UTC.
func (s *ExpanderService) localInstant(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, s.sourceLoc).UTC()
}

// parseMeetingTime splits an already-validated "15:04" wall-clock string.
func parseMeetingTime(raw string) (int, int) {
	t, err := time.Parse(models.MeetingTimeLayout, raw)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}

// dateOnly strips the time-of-day component.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
