package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-dcv-api/internal/models"
	"github.com/noah-isme/campus-dcv-api/internal/repository"
	"github.com/noah-isme/campus-dcv-api/pkg/config"
	appErrors "github.com/noah-isme/campus-dcv-api/pkg/errors"
)

type commandStore interface {
	FindByPointAndTime(ctx context.Context, pointName string, effective time.Time) (*models.SetpointCommand, error)
	Insert(ctx context.Context, cmd *models.SetpointCommand) error
	UpdateValue(ctx context.Context, id string, value float64, effective time.Time) error
}

type auditStore interface {
	Record(ctx context.Context, audit *models.SetpointAudit) error
}

// SynchronizerService upserts computed setpoints into the external BAS
// command queue. Every (occurrence, zone) pair yields two writes: the
// setpoint at the occurrence start and a zero at its end. Commands the
// controller has already dispatched are never overwritten.
type SynchronizerService struct {
	commands      commandStore
	audits        auditStore
	controllerLoc *time.Location
	pointPrefix   string
	pointSuffix   string
	metrics       *MetricsService
	logger        *zap.Logger

	mu         sync.Mutex
	pointLocks map[string]*sync.Mutex
}

// NewSynchronizerService constructs SynchronizerService.
func NewSynchronizerService(commands commandStore, audits auditStore, controllerLoc *time.Location, cfg config.PipelineConfig, metrics *MetricsService, logger *zap.Logger) *SynchronizerService {
	if controllerLoc == nil {
		controllerLoc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SynchronizerService{
		commands:      commands,
		audits:        audits,
		controllerLoc: controllerLoc,
		pointPrefix:   cfg.PointPrefix,
		pointSuffix:   cfg.PointSuffix,
		metrics:       metrics,
		logger:        logger,
		pointLocks:    make(map[string]*sync.Mutex),
	}
}

// PointName builds the BAS point name for a zone from the configured
// pre/post strings.
func (s *SynchronizerService) PointName(zoneCode string) string {
	return s.pointPrefix + zoneCode + s.pointSuffix
}

// SyncOccurrence writes the start and end commands for every zone demand of
// one occurrence, then records an audit copy per zone. A failure on one zone
// is caught and logged; the remaining zones still synchronize.
func (s *SynchronizerService) SyncOccurrence(ctx context.Context, occ models.Occurrence, demands []models.ZoneDemand) models.SyncResult {
	log := s.logger.Sugar()
	res := models.SyncResult{}

	for _, demand := range demands {
		pointName := s.PointName(demand.ZoneCode)
		startLocal := occ.StartTime.In(s.controllerLoc)
		endLocal := occ.EndTime.In(s.controllerLoc)

		err := s.withPointLock(pointName, func() error {
			if err := s.writeCommand(ctx, pointName, startLocal, demand.Setpoint); err != nil {
				return err
			}
			return s.writeCommand(ctx, pointName, endLocal, 0)
		})
		if err != nil {
			log.Errorw("setpoint sync failed for zone",
				"zone", demand.ZoneCode, "point", pointName,
				"facility_id", occ.FacilityID, "start", occ.StartTime, "error", err)
			s.metrics.IncSyncFailures()
			res.Errors++
			continue
		}
		res.Processed++

		// Commands are authoritative; the audit copy is best effort.
		audit := &models.SetpointAudit{
			ZoneCode:        demand.ZoneCode,
			FacilityID:      occ.FacilityID,
			CourseTitle:     occ.CourseTitle,
			EnrollmentTotal: occ.EnrollmentTotal,
			Value:           demand.Setpoint,
			EffectiveTime:   startLocal,
		}
		if err := s.audits.Record(ctx, audit); err != nil {
			log.Warnw("setpoint audit write failed",
				"zone", demand.ZoneCode, "facility_id", occ.FacilityID, "error", err)
		}
	}

	return res
}

// writeCommand inserts or updates the command at (pointName, effective). The
// controller-local effective time is the match key; it is the queue's native
// representation. Dispatched commands are left untouched.
func (s *SynchronizerService) writeCommand(ctx context.Context, pointName string, effective time.Time, value float64) error {
	log := s.logger.Sugar()

	existing, err := s.commands.FindByPointAndTime(ctx, pointName, effective)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "look up setpoint command")
	}

	if existing == nil {
		cmd := &models.SetpointCommand{
			PointName:     pointName,
			EffectiveTime: effective,
			Value:         value,
		}
		if err := s.commands.Insert(ctx, cmd); err != nil {
			return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "insert setpoint command")
		}
		s.metrics.IncCommandsInserted()
		return nil
	}

	if existing.Dispatched {
		log.Infow("command already dispatched, leaving untouched",
			"point", pointName, "effective", effective, "stored_value", existing.Value, "computed_value", value)
		s.metrics.IncCommandsFrozen()
		return nil
	}

	if existing.Value == value && existing.EffectiveTime.Equal(effective) {
		return nil
	}

	if err := s.commands.UpdateValue(ctx, existing.ID, value, effective); err != nil {
		if errors.Is(err, repository.ErrCommandDispatched) {
			// Dispatched between our read and write; frozen, not an error.
			log.Infow("command dispatched mid-write, leaving untouched",
				"point", pointName, "effective", effective)
			s.metrics.IncCommandsFrozen()
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, "update setpoint command")
	}
	s.metrics.IncCommandsUpdated()
	return nil
}

// withPointLock serializes writers targeting the same point name, keeping the
// read-then-write of writeCommand free of lost updates under concurrency.
func (s *SynchronizerService) withPointLock(pointName string, fn func() error) error {
	s.mu.Lock()
	lock, ok := s.pointLocks[pointName]
	if !ok {
		lock = &sync.Mutex{}
		s.pointLocks[pointName] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}
