package models

import "time"

// Ballot records the quadratic votes one voter spent on one session. The
// credit cost of n votes is n*n; a voter's ballots for an event may never
// exceed the event's credit budget in total.
type Ballot struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	VoterID   string    `db:"voter_id" json:"voter_id"`
	Votes     int       `db:"votes" json:"votes"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionTally aggregates ballot totals per session; this is the demand
// signal the schedule generator consumes.
type SessionTally struct {
	SessionID   string `db:"session_id" json:"session_id"`
	TotalVotes  int    `db:"total_votes" json:"total_votes"`
	TotalVoters int    `db:"total_voters" json:"total_voters"`
}

// VoterOverlap is the precomputed shared-audience estimate for an unordered
// session pair. Rows are stored with session_a_id < session_b_id.
type VoterOverlap struct {
	ID             string    `db:"id" json:"id"`
	EventID        string    `db:"event_id" json:"event_id"`
	SessionAID     string    `db:"session_a_id" json:"session_a_id"`
	SessionBID     string    `db:"session_b_id" json:"session_b_id"`
	OverlapPercent float64   `db:"overlap_percent" json:"overlap_percent"`
	SharedVoters   int       `db:"shared_voters" json:"shared_voters"`
	ComputedAt     time.Time `db:"computed_at" json:"computed_at"`
}
