package dto

// CreateSessionRequest proposes a new session for an event.
type CreateSessionRequest struct {
	EventID      string   `json:"eventId" validate:"required"`
	Title        string   `json:"title" validate:"required,max=200"`
	Abstract     string   `json:"abstract" validate:"max=4000"`
	Format       string   `json:"format" validate:"required,oneof=TALK WORKSHOP PANEL DISCUSSION DEMO"`
	Duration     int      `json:"durationMinutes" validate:"required,oneof=30 60 90"`
	Requirements []string `json:"requirements" validate:"omitempty,dive,max=64"`
}

// UpdateSessionRequest edits a proposal while it is still a draft or
// submitted.
type UpdateSessionRequest struct {
	Title        *string  `json:"title" validate:"omitempty,max=200"`
	Abstract     *string  `json:"abstract" validate:"omitempty,max=4000"`
	Format       *string  `json:"format" validate:"omitempty,oneof=TALK WORKSHOP PANEL DISCUSSION DEMO"`
	Duration     *int     `json:"durationMinutes" validate:"omitempty,oneof=30 60 90"`
	Requirements []string `json:"requirements" validate:"omitempty,dive,max=64"`
}

// SessionStatusRequest moves a session through its lifecycle.
type SessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=SUBMITTED APPROVED REJECTED"`
}

// LockSessionRequest pins a session to a venue/time slot so the generator
// treats the placement as fixed ground truth.
type LockSessionRequest struct {
	VenueID    string `json:"venueId" validate:"required"`
	TimeSlotID string `json:"timeSlotId" validate:"required"`
}

// SessionQuery filters session listings.
type SessionQuery struct {
	EventID  string `form:"eventId"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
