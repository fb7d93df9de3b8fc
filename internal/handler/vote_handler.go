package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/middleware"
	"github.com/openagora/agora-api/internal/service"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/response"
)

// VoteHandler manages quadratic-voting endpoints.
type VoteHandler struct {
	service *service.VoteService
}

// NewVoteHandler constructs the handler.
func NewVoteHandler(svc *service.VoteService) *VoteHandler {
	return &VoteHandler{service: svc}
}

// Cast godoc
// @Summary Cast or replace a ballot
// @Description Cost is votes squared, charged against the voter's per-event credit budget. Zero votes withdraws the ballot.
// @Tags Voting
// @Accept json
// @Produce json
// @Param payload body dto.CastBallotRequest true "Ballot payload"
// @Success 200 {object} response.Envelope
// @Router /votes [post]
func (h *VoteHandler) Cast(c *gin.Context) {
	var req dto.CastBallotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid ballot payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.Cast(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Credits godoc
// @Summary Get the caller's credit balance for an event
// @Tags Voting
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /votes/credits [get]
func (h *VoteHandler) Credits(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.Credits(c.Request.Context(), eventID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Tallies godoc
// @Summary Get per-session vote tallies for an event
// @Tags Voting
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /votes/tallies [get]
func (h *VoteHandler) Tallies(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	tallies, cacheHit, err := h.service.Tallies(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, tallies, nil, middleware.ExtractMeta(c))
}
