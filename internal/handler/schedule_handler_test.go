package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora-api/internal/dto"
	internalmiddleware "github.com/openagora/agora-api/internal/middleware"
	"github.com/openagora/agora-api/internal/models"
)

type scheduleOrchestratorMock struct {
	generated dto.GenerateScheduleRequest
	applied   dto.ApplyScheduleRequest
}

func (m *scheduleOrchestratorMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.generated = req
	return &dto.GenerateScheduleResponse{ProposalID: "proposal-1", Score: 92.5}, nil
}

func (m *scheduleOrchestratorMock) Apply(ctx context.Context, req dto.ApplyScheduleRequest) (*models.ScheduleRun, error) {
	m.applied = req
	return &models.ScheduleRun{ID: "run-1", Version: 1, Status: models.ScheduleRunStatusApplied}, nil
}

func (m *scheduleOrchestratorMock) GetProposal(proposalID string) (*dto.GenerateScheduleResponse, error) {
	return &dto.GenerateScheduleResponse{ProposalID: proposalID}, nil
}

func (m *scheduleOrchestratorMock) ListRuns(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error) {
	return nil, nil
}

func (m *scheduleOrchestratorMock) ExportRun(ctx context.Context, runID, format string) ([]byte, string, error) {
	return []byte("Session,Venue,Time Slot\n"), "text/csv", nil
}

func (m *scheduleOrchestratorMock) ExportLink(ctx context.Context, runID, format string) (*dto.ExportLinkResponse, error) {
	return &dto.ExportLinkResponse{Token: "token-1"}, nil
}

func (m *scheduleOrchestratorMock) OpenExport(token string) ([]byte, string, error) {
	return []byte("Session,Venue,Time Slot\n"), "text/csv", nil
}

func TestScheduleGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleOrchestratorMock{}
	handler := &ScheduleHandler{service: mockSvc}
	req, _ := http.NewRequest(http.MethodPost, "/schedule/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "event-1", mockSvc.generated.EventID)
	require.Equal(t, 30.0, mockSvc.generated.ConflictThreshold)
}

func TestScheduleGenerateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleOrchestratorMock{}}
	req, _ := http.NewRequest(http.MethodPost, "/schedule/generate", bytes.NewReader([]byte(`{"eventId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleGenerateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleOrchestratorMock{}}
	router := gin.New()
	router.POST("/schedule/generate", internalmiddleware.RBAC(string(models.RoleOrganizer)), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/schedule/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScheduleGenerateForbiddenForAttendee(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleOrchestratorMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "attendee-1", Role: models.RoleAttendee})
		c.Next()
	})
	router.POST("/schedule/generate", internalmiddleware.RBAC(string(models.RoleOrganizer)), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/schedule/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestScheduleApplyPassesProposalID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleOrchestratorMock{}
	handler := &ScheduleHandler{service: mockSvc}
	req, _ := http.NewRequest(http.MethodPost, "/schedule/apply", bytes.NewReader([]byte(`{"proposalId":"proposal-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Apply(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "proposal-1", mockSvc.applied.ProposalID)
}

func TestScheduleExportSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleOrchestratorMock{}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "run-1"}}
	c.Request, _ = http.NewRequest(http.MethodGet, "/schedule/runs/run-1/export?format=csv", nil)

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "schedule-run-1.csv")
	require.Contains(t, w.Body.String(), "Session,Venue,Time Slot")
}

func validGeneratePayload() []byte {
	return []byte(`{"eventId":"event-1","conflictThreshold":30,"maxIterations":500}`)
}
