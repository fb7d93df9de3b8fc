package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	"github.com/openagora/agora-api/internal/service"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/response"
)

type scheduleOrchestrator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Apply(ctx context.Context, req dto.ApplyScheduleRequest) (*models.ScheduleRun, error)
	GetProposal(proposalID string) (*dto.GenerateScheduleResponse, error)
	ListRuns(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error)
	ExportRun(ctx context.Context, runID, format string) ([]byte, string, error)
	ExportLink(ctx context.Context, runID, format string) (*dto.ExportLinkResponse, error)
	OpenExport(token string) ([]byte, string, error)
}

// ScheduleHandler exposes the generator and schedule-run endpoints.
type ScheduleHandler struct {
	service scheduleOrchestrator
	metrics *service.MetricsService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, metrics: metrics}
}

// Generate godoc
// @Summary Generate a schedule proposal for an event
// @Description Dry run. The proposal is cached server-side until applied or expired; nothing is persisted.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	start := time.Now()
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveGeneration(time.Since(start), result.Score)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Apply godoc
// @Summary Apply a cached proposal
// @Description Persists the proposal as a new schedule run and moves its sessions to SCHEDULED.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ApplyScheduleRequest true "Apply payload"
// @Success 201 {object} response.Envelope
// @Router /schedule/apply [post]
func (h *ScheduleHandler) Apply(c *gin.Context) {
	var req dto.ApplyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid apply payload"))
		return
	}
	run, err := h.service.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, run)
}

// Proposal godoc
// @Summary Get a cached proposal by ID
// @Tags Schedule
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/proposals/{id} [get]
func (h *ScheduleHandler) Proposal(c *gin.Context) {
	proposal, err := h.service.GetProposal(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// Runs godoc
// @Summary List persisted schedule runs for an event
// @Tags Schedule
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/runs [get]
func (h *ScheduleHandler) Runs(c *gin.Context) {
	query := dto.ScheduleRunQuery{EventID: c.Query("eventId")}
	runs, err := h.service.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}

// Export godoc
// @Summary Export a schedule run as CSV or PDF
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /schedule/runs/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	runID := c.Param("id")
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.ExportRun(c.Request.Context(), runID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("schedule-%s.%s", runID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// ExportLink godoc
// @Summary Create a signed download link for a run export
// @Description The returned token can be redeemed at /exports/{token} without authentication until it expires.
// @Tags Schedule
// @Produce json
// @Param id path string true "Run ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Router /schedule/runs/{id}/export-link [post]
func (h *ScheduleHandler) ExportLink(c *gin.Context) {
	link, err := h.service.ExportLink(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Redeem a signed export token
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed export token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *ScheduleHandler) Download(c *gin.Context) {
	payload, contentType, err := h.service.OpenExport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, payload)
}
