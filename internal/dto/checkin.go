package dto

// CheckinRequest records attendance for an applied session assignment.
type CheckinRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// CheckinSummaryQuery scopes the attendance rollup.
type CheckinSummaryQuery struct {
	EventID string `form:"eventId" validate:"required"`
}

// SessionAttendanceView compares actual headcount to predicted demand.
type SessionAttendanceView struct {
	SessionID   string  `json:"sessionId"`
	Title       string  `json:"title"`
	VenueID     string  `json:"venueId"`
	Capacity    int     `json:"capacity"`
	Predicted   int     `json:"predicted"`
	CheckedIn   int     `json:"checkedIn"`
	FillRate    float64 `json:"fillRate"`
	Overcrowded bool    `json:"overcrowded"`
}
