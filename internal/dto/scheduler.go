package dto

import "time"

// GenerateScheduleRequest triggers a generator run for an event. Tuning
// fields are optional; zero values fall back to server configuration.
type GenerateScheduleRequest struct {
	EventID           string  `json:"eventId" validate:"required"`
	ConflictThreshold float64 `json:"conflictThreshold" validate:"omitempty,gt=0,lte=100"`
	MaxIterations     int     `json:"maxIterations" validate:"omitempty,min=1,max=10000"`
	TargetScore       float64 `json:"targetScore" validate:"omitempty,gt=0,lte=100"`
}

// AssignmentView is one session placement in a proposal.
type AssignmentView struct {
	SessionID  string `json:"sessionId"`
	VenueID    string `json:"venueId"`
	TimeSlotID string `json:"timeSlotId"`
}

// ScheduleWarningView reports a non-fatal anomaly from the generator.
type ScheduleWarningView struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// ScheduleMetricsView summarises one generator run.
type ScheduleMetricsView struct {
	TotalSessions   int     `json:"totalSessions"`
	PlacedSessions  int     `json:"placedSessions"`
	ConflictedPairs int     `json:"conflictedPairs"`
	Oversubscribed  int     `json:"oversubscribedSessions"`
	Iterations      int     `json:"iterations"`
	MovesAccepted   int     `json:"movesAccepted"`
	MovesRejected   int     `json:"movesRejected"`
	GreedyScore     float64 `json:"greedyScore"`
}

// GenerateScheduleResponse returns the built proposal. The proposal stays in
// a TTL cache until it is applied or expires; nothing is persisted by a
// dry-run generation.
type GenerateScheduleResponse struct {
	ProposalID  string                `json:"proposalId"`
	Score       float64               `json:"score"`
	Assignments []AssignmentView      `json:"assignments"`
	Unassigned  []string              `json:"unassignedSessions"`
	Warnings    []ScheduleWarningView `json:"warnings"`
	Metrics     ScheduleMetricsView   `json:"metrics"`
	ElapsedMS   int64                 `json:"elapsedMs"`
}

// ApplyScheduleRequest persists a cached proposal: each assignment is written
// to its session and the sessions move to SCHEDULED.
type ApplyScheduleRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// ExportLinkResponse carries a signed, time-limited download token for an
// archived run export.
type ExportLinkResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ScheduleRunQuery filters persisted runs by event.
type ScheduleRunQuery struct {
	EventID string `form:"eventId" json:"eventId"`
}
