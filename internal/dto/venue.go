package dto

// CreateVenueRequest registers a room for an event.
type CreateVenueRequest struct {
	EventID  string   `json:"eventId" validate:"required"`
	Name     string   `json:"name" validate:"required,min=2,max=120"`
	Capacity int      `json:"capacity" validate:"required,min=1"`
	Features []string `json:"features" validate:"dive,min=1,max=60"`
}

// UpdateVenueRequest patches a venue. Nil fields are left untouched.
type UpdateVenueRequest struct {
	Name     *string   `json:"name" validate:"omitempty,min=2,max=120"`
	Capacity *int      `json:"capacity" validate:"omitempty,min=1"`
	Features *[]string `json:"features" validate:"omitempty,dive,min=1,max=60"`
}

// CreateTimeSlotRequest adds a slot to the event grid. Times are RFC 3339.
type CreateTimeSlotRequest struct {
	EventID string `json:"eventId" validate:"required"`
	StartAt string `json:"startAt" validate:"required"`
	EndAt   string `json:"endAt" validate:"required"`
}

// VenueQuery filters venue listings.
type VenueQuery struct {
	EventID string `form:"eventId" validate:"required"`
}
