package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/service"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/response"
)

// VenueHandler manages venue and time-slot endpoints.
type VenueHandler struct {
	service *service.VenueService
}

// NewVenueHandler constructs the handler.
func NewVenueHandler(svc *service.VenueService) *VenueHandler {
	return &VenueHandler{service: svc}
}

// List godoc
// @Summary List venues for an event
// @Tags Venues
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /venues [get]
func (h *VenueHandler) List(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	venues, err := h.service.ListVenues(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, venues, nil)
}

// Create godoc
// @Summary Register a venue
// @Tags Venues
// @Accept json
// @Produce json
// @Param payload body dto.CreateVenueRequest true "Venue payload"
// @Success 201 {object} response.Envelope
// @Router /venues [post]
func (h *VenueHandler) Create(c *gin.Context) {
	var req dto.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid venue payload"))
		return
	}
	venue, err := h.service.CreateVenue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, venue)
}

// Update godoc
// @Summary Update a venue
// @Tags Venues
// @Accept json
// @Produce json
// @Param id path string true "Venue ID"
// @Param payload body dto.UpdateVenueRequest true "Venue payload"
// @Success 200 {object} response.Envelope
// @Router /venues/{id} [put]
func (h *VenueHandler) Update(c *gin.Context) {
	var req dto.UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid venue payload"))
		return
	}
	venue, err := h.service.UpdateVenue(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, venue, nil)
}

// Delete godoc
// @Summary Delete a venue
// @Tags Venues
// @Param id path string true "Venue ID"
// @Success 204
// @Router /venues/{id} [delete]
func (h *VenueHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteVenue(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSlots godoc
// @Summary List time slots for an event
// @Tags Venues
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *VenueHandler) ListSlots(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eventId is required"))
		return
	}
	slots, err := h.service.ListSlots(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateSlot godoc
// @Summary Add a time slot to the event grid
// @Tags Venues
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimeSlotRequest true "Time slot payload"
// @Success 201 {object} response.Envelope
// @Router /timeslots [post]
func (h *VenueHandler) CreateSlot(c *gin.Context) {
	var req dto.CreateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time slot payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// SetSlotAvailability godoc
// @Summary Toggle a time slot's availability
// @Tags Venues
// @Produce json
// @Param id path string true "Time slot ID"
// @Param available query bool true "Availability flag"
// @Success 204
// @Router /timeslots/{id}/availability [patch]
func (h *VenueHandler) SetSlotAvailability(c *gin.Context) {
	available, err := strconv.ParseBool(c.DefaultQuery("available", "true"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "available must be a boolean"))
		return
	}
	if err := h.service.SetSlotAvailability(c.Request.Context(), c.Param("id"), available); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteSlot godoc
// @Summary Delete a time slot
// @Tags Venues
// @Param id path string true "Time slot ID"
// @Success 204
// @Router /timeslots/{id} [delete]
func (h *VenueHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
