package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-dcv-api/internal/models"
	"github.com/noah-isme/campus-dcv-api/internal/service"
	appErrors "github.com/noah-isme/campus-dcv-api/pkg/errors"
	"github.com/noah-isme/campus-dcv-api/pkg/response"
)

type pipelineRunner interface {
	RunSync(ctx context.Context, req service.TriggerSyncRequest) (*models.SyncResult, error)
	RunExamSync(ctx context.Context, req service.ExamSyncRequest) (*models.SyncResult, error)
}

// SyncHandler exposes the pipeline trigger and the read-only reporting pages.
type SyncHandler struct {
	pipeline  pipelineRunner
	reporting *service.ReportingService
}

// NewSyncHandler constructs handler.
func NewSyncHandler(pipeline pipelineRunner, reporting *service.ReportingService) *SyncHandler {
	return &SyncHandler{pipeline: pipeline, reporting: reporting}
}

// TriggerRun godoc
// @Summary Run the setpoint synchronization pipeline for a building
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body service.TriggerSyncRequest true "Run parameters"
// @Success 200 {object} response.Envelope
// @Router /sync/runs [post]
func (h *SyncHandler) TriggerRun(c *gin.Context) {
	var req service.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.pipeline.RunSync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// TriggerExamRun godoc
// @Summary Expand exam rows into occurrences
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body service.ExamSyncRequest true "Exam sweep parameters"
// @Success 200 {object} response.Envelope
// @Router /sync/exams [post]
func (h *SyncHandler) TriggerExamRun(c *gin.Context) {
	var req service.ExamSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.pipeline.RunExamSync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListRuns godoc
// @Summary List recent sync runs for a building
// @Tags Sync
// @Produce json
// @Param buildingId query string true "Building ID"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /sync/runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	buildingID := c.Query("buildingId")
	if buildingID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "buildingId is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.reporting.ListRuns(c.Request.Context(), buildingID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}

// ListOccurrences godoc
// @Summary List expanded occurrences
// @Tags Reporting
// @Produce json
// @Param building query string false "Building code"
// @Param term query int false "Term code"
// @Param facilityId query string false "Facility ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sync/occurrences [get]
func (h *SyncHandler) ListOccurrences(c *gin.Context) {
	var filter models.OccurrenceFilter
	filter.BuildingCode = c.Query("building")
	filter.FacilityID = c.Query("facilityId")
	if term, err := strconv.Atoi(c.Query("term")); err == nil {
		filter.Term = term
	}
	filter.From = parseTimeQuery(c.Query("from"))
	filter.To = parseTimeQuery(c.Query("to"))
	filter.Page, filter.PageSize = pageParams(c)

	occurrences, pagination, err := h.reporting.ListOccurrences(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, pagination)
}

// ListCommands godoc
// @Summary List queued setpoint commands
// @Tags Reporting
// @Produce json
// @Param point query string false "BAS point name"
// @Param dispatched query bool false "Dispatched flag"
// @Param from query string false "Effective from (RFC3339)"
// @Param to query string false "Effective to (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sync/commands [get]
func (h *SyncHandler) ListCommands(c *gin.Context) {
	var filter models.CommandFilter
	filter.PointName = c.Query("point")
	if raw := c.Query("dispatched"); raw != "" {
		if dispatched, err := strconv.ParseBool(raw); err == nil {
			filter.Dispatched = &dispatched
		}
	}
	filter.From = parseTimeQuery(c.Query("from"))
	filter.To = parseTimeQuery(c.Query("to"))
	filter.Page, filter.PageSize = pageParams(c)

	commands, pagination, err := h.reporting.ListCommands(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commands, pagination)
}

// GetCommand godoc
// @Summary Get a queued setpoint command
// @Tags Reporting
// @Produce json
// @Param id path string true "Command ID"
// @Success 200 {object} response.Envelope
// @Router /sync/commands/{id} [get]
func (h *SyncHandler) GetCommand(c *gin.Context) {
	cmd, err := h.reporting.GetCommand(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cmd, nil)
}

// ListAudits godoc
// @Summary List the setpoint audit trail
// @Tags Reporting
// @Produce json
// @Param zone query string false "Zone code"
// @Param facilityId query string false "Facility ID"
// @Param from query string false "Effective from (RFC3339)"
// @Param to query string false "Effective to (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sync/audits [get]
func (h *SyncHandler) ListAudits(c *gin.Context) {
	filter := auditFilterFromQuery(c)
	audits, pagination, err := h.reporting.ListAudits(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, audits, pagination)
}

// ExportAudits godoc
// @Summary Export the setpoint audit trail as CSV
// @Tags Reporting
// @Produce text/csv
// @Param zone query string false "Zone code"
// @Param facilityId query string false "Facility ID"
// @Param from query string false "Effective from (RFC3339)"
// @Param to query string false "Effective to (RFC3339)"
// @Success 200 {string} string "CSV payload"
// @Router /sync/audits/export [get]
func (h *SyncHandler) ExportAudits(c *gin.Context) {
	filter := auditFilterFromQuery(c)
	payload, err := h.reporting.ExportAuditsCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="setpoint_audits.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

func auditFilterFromQuery(c *gin.Context) models.AuditFilter {
	var filter models.AuditFilter
	filter.ZoneCode = c.Query("zone")
	filter.FacilityID = c.Query("facilityId")
	filter.From = parseTimeQuery(c.Query("from"))
	filter.To = parseTimeQuery(c.Query("to"))
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return page, limit
}

func parseTimeQuery(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
