package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-dcv-api/internal/models"
	"github.com/noah-isme/campus-dcv-api/internal/service"
	appErrors "github.com/noah-isme/campus-dcv-api/pkg/errors"
)

type stubPipeline struct {
	result    *models.SyncResult
	err       error
	lastSync  service.TriggerSyncRequest
	lastExam  service.ExamSyncRequest
	syncCalls int
	examCalls int
}

func (s *stubPipeline) RunSync(_ context.Context, req service.TriggerSyncRequest) (*models.SyncResult, error) {
	s.syncCalls++
	s.lastSync = req
	return s.result, s.err
}

func (s *stubPipeline) RunExamSync(_ context.Context, req service.ExamSyncRequest) (*models.SyncResult, error) {
	s.examCalls++
	s.lastExam = req
	return s.result, s.err
}

func buildSyncRouter(pipeline *stubPipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewSyncHandler(pipeline, nil)
	router.POST("/sync/runs", h.TriggerRun)
	router.POST("/sync/exams", h.TriggerExamRun)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestTriggerRunSuccess(t *testing.T) {
	pipeline := &stubPipeline{result: &models.SyncResult{Processed: 12, Skipped: 1}}
	router := buildSyncRouter(pipeline)

	req, _ := http.NewRequest(http.MethodPost, "/sync/runs", bytes.NewBufferString(`{"building_id":"bldg-sci","lookahead_days":7}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"processed":12`)
	assert.Equal(t, 1, pipeline.syncCalls)
	assert.Equal(t, "bldg-sci", pipeline.lastSync.BuildingID)
	assert.Equal(t, 7, pipeline.lastSync.LookaheadDays)
}

func TestTriggerRunMalformedBody(t *testing.T) {
	pipeline := &stubPipeline{}
	router := buildSyncRouter(pipeline)

	req, _ := http.NewRequest(http.MethodPost, "/sync/runs", bytes.NewBufferString(`{"building_id":`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, pipeline.syncCalls)
}

func TestTriggerRunConflictWhenRunInProgress(t *testing.T) {
	pipeline := &stubPipeline{err: appErrors.Clone(appErrors.ErrRunInProgress, "")}
	router := buildSyncRouter(pipeline)

	req, _ := http.NewRequest(http.MethodPost, "/sync/runs", bytes.NewBufferString(`{"building_id":"bldg-sci"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrRunInProgress.Code)
}

func TestTriggerExamRunSuccess(t *testing.T) {
	pipeline := &stubPipeline{result: &models.SyncResult{Processed: 3, Skipped: 2}}
	router := buildSyncRouter(pipeline)

	req, _ := http.NewRequest(http.MethodPost, "/sync/exams", bytes.NewBufferString(`{"term":202610,"facility_prefix":"SCI"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, pipeline.examCalls)
	assert.Equal(t, 202610, pipeline.lastExam.Term)
	assert.Equal(t, "SCI", pipeline.lastExam.FacilityPrefix)
}

type stubCommandSource struct {
	commands []models.SetpointCommand
}

func (s *stubCommandSource) List(context.Context, models.CommandFilter) ([]models.SetpointCommand, int, error) {
	return s.commands, len(s.commands), nil
}

func (s *stubCommandSource) FindByID(_ context.Context, id string) (*models.SetpointCommand, error) {
	for i := range s.commands {
		if s.commands[i].ID == id {
			return &s.commands[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestGetCommandByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reporting := service.NewReportingService(nil, &stubCommandSource{
		commands: []models.SetpointCommand{{ID: "cmd-1", PointName: "CAMPUS.ZA.OA-SP", Value: 66}},
	}, nil, nil, nil)
	router := gin.New()
	h := NewSyncHandler(nil, reporting)
	router.GET("/sync/commands/:id", h.GetCommand)

	req, _ := http.NewRequest(http.MethodGet, "/sync/commands/cmd-1", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "CAMPUS.ZA.OA-SP")

	req, _ = http.NewRequest(http.MethodGet, "/sync/commands/missing", nil)
	resp = performRequest(router, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrNotFound.Code)
}
