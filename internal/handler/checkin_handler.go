package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/service"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/response"
)

// CheckinHandler manages attendance endpoints.
type CheckinHandler struct {
	service *service.CheckinService
}

// NewCheckinHandler constructs the handler.
func NewCheckinHandler(svc *service.CheckinService) *CheckinHandler {
	return &CheckinHandler{service: svc}
}

// Checkin godoc
// @Summary Check in to a scheduled session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CheckinRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Router /checkins [post]
func (h *CheckinHandler) Checkin(c *gin.Context) {
	var req dto.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	checkin, err := h.service.Checkin(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, checkin)
}

// Summary godoc
// @Summary Attendance rollup per scheduled session
// @Description Compares actual headcount against the vote-predicted demand for each placed session.
// @Tags Attendance
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /checkins/summary [get]
func (h *CheckinHandler) Summary(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
