package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-dcv-api/internal/models"
	appErrors "github.com/noah-isme/campus-dcv-api/pkg/errors"
	"github.com/noah-isme/campus-dcv-api/pkg/export"
)

type occurrenceLister interface {
	List(ctx context.Context, filter models.OccurrenceFilter) ([]models.Occurrence, int, error)
}

type commandLister interface {
	List(ctx context.Context, filter models.CommandFilter) ([]models.SetpointCommand, int, error)
	FindByID(ctx context.Context, id string) (*models.SetpointCommand, error)
}

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.SetpointAudit, int, error)
}

type syncRunLister interface {
	ListByBuilding(ctx context.Context, buildingID string, limit int) ([]models.SyncRun, error)
}

// ReportingService serves the admin UI's read-only views over pipeline
// output. It never writes.
type ReportingService struct {
	occurrences occurrenceLister
	commands    commandLister
	audits      auditLister
	runs        syncRunLister
	exporter    *export.CSVExporter
	logger      *zap.Logger
}

// NewReportingService constructs ReportingService.
func NewReportingService(occurrences occurrenceLister, commands commandLister, audits auditLister, runs syncRunLister, logger *zap.Logger) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{
		occurrences: occurrences,
		commands:    commands,
		audits:      audits,
		runs:        runs,
		exporter:    export.NewCSVExporter(),
		logger:      logger,
	}
}

// ListOccurrences returns expanded occurrences with pagination metadata.
func (s *ReportingService) ListOccurrences(ctx context.Context, filter models.OccurrenceFilter) ([]models.Occurrence, *models.Pagination, error) {
	occurrences, total, err := s.occurrences.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occurrences")
	}
	return occurrences, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListCommands returns queued setpoint commands with pagination metadata.
func (s *ReportingService) ListCommands(ctx context.Context, filter models.CommandFilter) ([]models.SetpointCommand, *models.Pagination, error) {
	commands, total, err := s.commands.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list setpoint commands")
	}
	return commands, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetCommand loads a single queued command by identifier.
func (s *ReportingService) GetCommand(ctx context.Context, id string) (*models.SetpointCommand, error) {
	cmd, err := s.commands.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setpoint command not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setpoint command")
	}
	return cmd, nil
}

// ListAudits returns the setpoint audit trail with pagination metadata.
func (s *ReportingService) ListAudits(ctx context.Context, filter models.AuditFilter) ([]models.SetpointAudit, *models.Pagination, error) {
	audits, total, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list setpoint audits")
	}
	return audits, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListRuns returns recent sync runs for a building.
func (s *ReportingService) ListRuns(ctx context.Context, buildingID string, limit int) ([]models.SyncRun, error) {
	runs, err := s.runs.ListByBuilding(ctx, buildingID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sync runs")
	}
	return runs, nil
}

// ExportAuditsCSV renders the audit trail matching the filter as CSV.
func (s *ReportingService) ExportAuditsCSV(ctx context.Context, filter models.AuditFilter) ([]byte, error) {
	filter.Page = 1
	if filter.PageSize <= 0 {
		filter.PageSize = 500
	}
	audits, _, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export setpoint audits")
	}

	data := export.Dataset{
		Headers: []string{"zone_code", "facility_id", "course_title", "enrollment_total", "value", "effective_time", "updated_at"},
	}
	for _, audit := range audits {
		data.Rows = append(data.Rows, map[string]string{
			"zone_code":        audit.ZoneCode,
			"facility_id":      audit.FacilityID,
			"course_title":     audit.CourseTitle,
			"enrollment_total": strconv.Itoa(audit.EnrollmentTotal),
			"value":            strconv.FormatFloat(audit.Value, 'f', -1, 64),
			"effective_time":   audit.EffectiveTime.Format(time.RFC3339),
			"updated_at":       audit.UpdatedAt.Format(time.RFC3339),
		})
	}

	payload, err := s.exporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit csv")
	}
	return payload, nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
