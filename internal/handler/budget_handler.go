package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/service"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/response"
)

// BudgetHandler manages budget distribution endpoints.
type BudgetHandler struct {
	service *service.BudgetService
}

// NewBudgetHandler constructs the handler.
func NewBudgetHandler(svc *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{service: svc}
}

// Distribute godoc
// @Summary Distribute an event budget across voted sessions
// @Description Shares are proportional to vote tallies using largest-remainder rounding so the allocated total matches exactly.
// @Tags Budget
// @Accept json
// @Produce json
// @Param payload body dto.DistributeBudgetRequest true "Distribution payload"
// @Success 200 {object} response.Envelope
// @Router /budget/distribute [post]
func (h *BudgetHandler) Distribute(c *gin.Context) {
	var req dto.DistributeBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid distribution payload"))
		return
	}
	result, err := h.service.Distribute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List stored budget allocations for an event
// @Tags Budget
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /budget/allocations [get]
func (h *BudgetHandler) List(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	allocations, err := h.service.List(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, nil)
}
