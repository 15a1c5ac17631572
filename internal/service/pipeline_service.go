package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-dcv-api/internal/models"
	"github.com/noah-isme/campus-dcv-api/pkg/config"
	appErrors "github.com/noah-isme/campus-dcv-api/pkg/errors"
)

type termReader interface {
	ActiveTerm(ctx context.Context, at time.Time) (*models.Term, error)
}

type referenceReader interface {
	GetBuilding(ctx context.Context, id string) (*models.Building, error)
	ListRoomsForBuilding(ctx context.Context, buildingID string) ([]models.Room, error)
	ListActiveZonesForBuilding(ctx context.Context, buildingID string) ([]models.Zone, error)
	ListActiveZoneSharesForBuilding(ctx context.Context, buildingID string) ([]models.RoomZoneShare, error)
	ListVentilationRates(ctx context.Context) ([]models.VentilationRate, error)
}

type scheduleSource interface {
	ListDueEntries(ctx context.Context, term int, buildingCode string) ([]models.ScheduleEntry, error)
	ListExamRows(ctx context.Context, term int, facilityPrefix string) ([]models.ExamRow, error)
}

type occurrenceWindowReader interface {
	ListWindow(ctx context.Context, buildingCode string, term int, from, to time.Time) ([]models.Occurrence, error)
}

type entryExpander interface {
	ExpandEntry(ctx context.Context, entry models.ScheduleEntry, now time.Time) (ExpansionResult, error)
	ExpandExam(ctx context.Context, row models.ExamRow) (bool, error)
}

type demandComputer interface {
	ComputeZoneDemands(occ models.Occurrence, room models.Room, cache *RunCache) []models.ZoneDemand
}

type occurrenceSynchronizer interface {
	SyncOccurrence(ctx context.Context, occ models.Occurrence, demands []models.ZoneDemand) models.SyncResult
}

type syncRunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, id string, status models.SyncRunStatus, result models.SyncResult) error
}

type runLocker interface {
	Acquire(ctx context.Context, buildingID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, buildingID string) error
}

// TriggerSyncRequest is the operator/scheduler payload starting a run.
type TriggerSyncRequest struct {
	BuildingID    string `json:"building_id" validate:"required"`
	LookaheadDays int    `json:"lookahead_days" validate:"omitempty,min=1,max=60"`
}

// ExamSyncRequest starts an exam expansion sweep.
type ExamSyncRequest struct {
	Term           int    `json:"term" validate:"required,min=1"`
	FacilityPrefix string `json:"facility_prefix" validate:"required"`
}

// PipelineService orchestrates one synchronization run: resolve the active
// term, preload reference data once, expand due schedule entries, then push
// setpoints for every occurrence inside the lookahead window. Re-running the
// same window reproduces the same command values, modulo dispatched commands
// which stay frozen.
type PipelineService struct {
	terms        termReader
	reference    referenceReader
	source       scheduleSource
	occurrences  occurrenceWindowReader
	expander     entryExpander
	demand       demandComputer
	synchronizer occurrenceSynchronizer
	runs         syncRunStore
	locker       runLocker
	validator    *validator.Validate
	metrics      *MetricsService
	cfg          config.PipelineConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewPipelineService constructs PipelineService.
func NewPipelineService(
	terms termReader,
	reference referenceReader,
	source scheduleSource,
	occurrences occurrenceWindowReader,
	expander entryExpander,
	demand demandComputer,
	synchronizer occurrenceSynchronizer,
	runs syncRunStore,
	locker runLocker,
	validate *validator.Validate,
	metrics *MetricsService,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *PipelineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{
		terms:        terms,
		reference:    reference,
		source:       source,
		occurrences:  occurrences,
		expander:     expander,
		demand:       demand,
		synchronizer: synchronizer,
		runs:         runs,
		locker:       locker,
		validator:    validate,
		metrics:      metrics,
		cfg:          cfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RunSync executes the full pipeline for one building. Record-level failures
// are absorbed into the summary counts; only failure to reach the reference
// or schedule stores aborts the run, and then before any write happened.
func (s *PipelineService) RunSync(ctx context.Context, req TriggerSyncRequest) (*models.SyncResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sync trigger payload")
	}
	lookahead := req.LookaheadDays
	if lookahead <= 0 {
		lookahead = s.cfg.DefaultLookaheadDays
	}
	if lookahead <= 0 {
		lookahead = 7
	}

	log := s.logger.Sugar()
	started := s.now()

	acquired, err := s.locker.Acquire(ctx, req.BuildingID, s.cfg.LockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "acquire run lock")
	}
	if !acquired {
		return nil, appErrors.Clone(appErrors.ErrRunInProgress, "")
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), req.BuildingID); err != nil {
			log.Warnw("release run lock failed", "building_id", req.BuildingID, "error", err)
		}
	}()

	term, err := s.terms.ActiveTerm(ctx, started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve active term")
	}

	building, err := s.reference.GetBuilding(ctx, req.BuildingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "building not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load building")
	}

	cache, err := s.loadCache(ctx, building.ID)
	if err != nil {
		return nil, err
	}

	windowEnd := started.Add(time.Duration(lookahead) * 24 * time.Hour)
	run := &models.SyncRun{
		BuildingID:  building.ID,
		Term:        term.Code,
		WindowStart: started,
		WindowEnd:   windowEnd,
		StartedAt:   started,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		// Bookkeeping only; the run itself proceeds.
		log.Warnw("sync run record failed", "building_id", building.ID, "error", err)
		run.ID = ""
	}

	result := &models.SyncResult{}
	status := models.SyncRunStatusCompleted

	if err := s.expandDue(ctx, term.Code, building.Code, started, result); err != nil {
		s.finishRun(ctx, run.ID, models.SyncRunStatusFailed, *result, started)
		return nil, err
	}

	if err := s.sweepWindow(ctx, building.Code, term.Code, started, windowEnd, cache, result); err != nil {
		s.finishRun(ctx, run.ID, models.SyncRunStatusFailed, *result, started)
		return nil, err
	}

	s.finishRun(ctx, run.ID, status, *result, started)
	log.Infow("sync run completed",
		"building", building.Code, "term", term.Code,
		"processed", result.Processed, "skipped", result.Skipped, "errors", result.Errors)
	return result, nil
}

// RunExamSync expands exam rows for a term and facility prefix. Each source
// row maps to one occurrence; unchanged rows are skipped.
func (s *PipelineService) RunExamSync(ctx context.Context, req ExamSyncRequest) (*models.SyncResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam sync payload")
	}

	log := s.logger.Sugar()
	rows, err := s.source.ListExamRows(ctx, req.Term, req.FacilityPrefix)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list exam rows")
	}

	result := &models.SyncResult{}
	for _, row := range rows {
		changed, err := s.expander.ExpandExam(ctx, row)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrMalformedEntry) {
				log.Warnw("malformed exam row skipped", "external_id", row.ExternalID, "term", row.Term, "error", err)
				result.Skipped++
				continue
			}
			log.Errorw("exam expansion failed", "external_id", row.ExternalID, "term", row.Term, "error", err)
			result.Errors++
			continue
		}
		if changed {
			result.Processed++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

func (s *PipelineService) loadCache(ctx context.Context, buildingID string) (*RunCache, error) {
	rooms, err := s.reference.ListRoomsForBuilding(ctx, buildingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "preload rooms")
	}
	zones, err := s.reference.ListActiveZonesForBuilding(ctx, buildingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "preload zones")
	}
	shares, err := s.reference.ListActiveZoneSharesForBuilding(ctx, buildingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "preload zone shares")
	}
	rates, err := s.reference.ListVentilationRates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "preload ventilation rates")
	}
	return NewRunCache(rooms, zones, shares, rates), nil
}

func (s *PipelineService) expandDue(ctx context.Context, term int, buildingCode string, now time.Time, result *models.SyncResult) error {
	log := s.logger.Sugar()

	entries, err := s.source.ListDueEntries(ctx, term, buildingCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list due schedule entries")
	}

	for _, entry := range entries {
		res, err := s.expander.ExpandEntry(ctx, entry, now)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrMalformedEntry) {
				log.Warnw("malformed schedule entry skipped",
					"external_id", entry.ExternalID, "term", entry.Term, "error", err)
				result.Skipped++
				continue
			}
			log.Errorw("schedule entry expansion failed",
				"external_id", entry.ExternalID, "term", entry.Term, "error", err)
			result.Errors++
			continue
		}
		if res.Debounced {
			result.Skipped++
			continue
		}
		result.Processed += res.Dates
		result.Errors += res.Failed
	}
	return nil
}

func (s *PipelineService) sweepWindow(ctx context.Context, buildingCode string, term int, from, to time.Time, cache *RunCache, result *models.SyncResult) error {
	log := s.logger.Sugar()

	window, err := s.occurrences.ListWindow(ctx, buildingCode, term, from, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list occurrence window")
	}

	for _, occ := range window {
		room, ok := cache.RoomByFacility(occ.FacilityID)
		if !ok {
			// Stale reference data, not necessarily an error.
			log.Warnw("occurrence references unknown room",
				"facility_id", occ.FacilityID, "external_id", occ.ExternalID)
			result.Skipped++
			continue
		}
		if !room.Active {
			log.Warnw("occurrence references inactive room",
				"facility_id", occ.FacilityID, "external_id", occ.ExternalID)
			result.Skipped++
			continue
		}

		demands := s.demand.ComputeZoneDemands(occ, room, cache)
		if len(demands) == 0 {
			result.Skipped++
			continue
		}

		result.Add(s.synchronizer.SyncOccurrence(ctx, occ, demands))
	}
	return nil
}

func (s *PipelineService) finishRun(ctx context.Context, runID string, status models.SyncRunStatus, result models.SyncResult, started time.Time) {
	s.metrics.ObserveRun(string(status), s.now().Sub(started))
	if runID == "" {
		return
	}
	if err := s.runs.Finish(ctx, runID, status, result); err != nil {
		s.logger.Sugar().Warnw("sync run finish failed", "run_id", runID, "error", err)
	}
}
