package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SessionStatus represents lifecycle phases for a session proposal.
type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "DRAFT"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusApproved  SessionStatus = "APPROVED"
	SessionStatusScheduled SessionStatus = "SCHEDULED"
	SessionStatusRejected  SessionStatus = "REJECTED"
)

// SessionFormat enumerates the proposal formats attendees can offer.
type SessionFormat string

const (
	SessionFormatTalk       SessionFormat = "TALK"
	SessionFormatWorkshop   SessionFormat = "WORKSHOP"
	SessionFormatPanel      SessionFormat = "PANEL"
	SessionFormatDiscussion SessionFormat = "DISCUSSION"
	SessionFormatDemo       SessionFormat = "DEMO"
)

// AllowedSessionDurations are the only session lengths the platform accepts,
// in minutes.
var AllowedSessionDurations = []int{30, 60, 90}

// Session is a proposed talk/workshop/panel competing for a venue and time
// slot. Requirements holds technical-requirement tags as a JSON array.
type Session struct {
	ID           string         `db:"id" json:"id"`
	EventID      string         `db:"event_id" json:"event_id"`
	ProposerID   string         `db:"proposer_id" json:"proposer_id"`
	Title        string         `db:"title" json:"title"`
	Abstract     string         `db:"abstract" json:"abstract"`
	Format       SessionFormat  `db:"format" json:"format"`
	Status       SessionStatus  `db:"status" json:"status"`
	Duration     int            `db:"duration_minutes" json:"duration_minutes"`
	IsLocked     bool           `db:"is_locked" json:"is_locked"`
	VenueID      *string        `db:"venue_id" json:"venue_id,omitempty"`
	TimeSlotID   *string        `db:"time_slot_id" json:"time_slot_id,omitempty"`
	Requirements types.JSONText `db:"requirements" json:"requirements"`
	TotalVotes   int            `db:"total_votes" json:"total_votes"`
	TotalVoters  int            `db:"total_voters" json:"total_voters"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// RequirementTags decodes the JSON requirements column. A missing or invalid
// payload decodes to no tags.
func (s Session) RequirementTags() []string {
	if len(s.Requirements) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(s.Requirements, &tags); err != nil {
		return nil
	}
	return tags
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	EventID    string
	Status     SessionStatus
	ProposerID string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
