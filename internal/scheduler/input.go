package scheduler

import "time"

// Session is a proposal competing for a venue and time slot. Locked sessions
// carry their existing placement and are treated as fixed ground truth.
type Session struct {
	ID           string
	Title        string
	Duration     int // minutes
	IsLocked     bool
	VenueID      string // existing placement, empty when never scheduled
	TimeSlotID   string
	Requirements []string
	TotalVotes   int
	TotalVoters  int
}

// Venue is a physical room offered to the generator.
type Venue struct {
	ID       string
	Name     string
	Capacity int
	Features []string
}

// TimeSlot is a calendar interval that can host one session per venue.
type TimeSlot struct {
	ID        string
	Start     time.Time
	End       time.Time
	Available bool
}

// Duration returns the slot length in whole minutes.
func (t TimeSlot) DurationMinutes() int {
	return int(t.End.Sub(t.Start) / time.Minute)
}

// Overlap is a precomputed audience-overlap estimate for an unordered pair of
// sessions. Pairs with zero overlap are simply absent.
type Overlap struct {
	SessionA     string
	SessionB     string
	Percent      float64 // [0,100]
	SharedVoters int
}

// Input is the immutable snapshot one Generate call works from. The generator
// never mutates any of these slices.
type Input struct {
	Sessions []Session
	Venues   []Venue
	Slots    []TimeSlot
	Overlaps []Overlap
}

// Config tunes the generator. The zero value is usable; missing fields fall
// back to defaults.
type Config struct {
	// ConflictThreshold is the overlap percentage at which a session pair may
	// never share a time slot. Pairs below it are penalised proportionally.
	// This is the main behavioural lever: raising it permits more concurrent
	// sessions with moderately shared audiences, lowering it pushes sessions
	// into the unassigned list when supply is scarce.
	ConflictThreshold float64
	MaxIterations     int
	TargetScore       float64
	// StagnationLimit stops the improvement loop after this many iterations
	// without a new best score.
	StagnationLimit int
}

const (
	defaultConflictThreshold = 50
	defaultMaxIterations     = 300
	defaultTargetScore       = 95
	defaultStagnationLimit   = 40

	// sidewaysTolerance allows score-neutral moves so the optimizer can walk
	// across plateaus.
	sidewaysTolerance = 1e-9

	// wasteFactor marks the capacity multiple beyond which a venue counts as
	// grossly oversized for its audience.
	wasteFactor = 4
)

func (c Config) withDefaults() Config {
	if c.ConflictThreshold <= 0 {
		c.ConflictThreshold = defaultConflictThreshold
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.TargetScore <= 0 {
		c.TargetScore = defaultTargetScore
	}
	if c.StagnationLimit <= 0 {
		c.StagnationLimit = defaultStagnationLimit
	}
	return c
}

// Assignment maps a session onto a venue and time slot.
type Assignment struct {
	SessionID  string `json:"sessionId"`
	VenueID    string `json:"venueId"`
	TimeSlotID string `json:"timeSlotId"`
}

// Warning reports a non-fatal anomaly observed during generation.
type Warning struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Warning types.
const (
	WarnUnassignable      = "STRUCTURALLY_UNASSIGNABLE"
	WarnDuplicateOverlap  = "DUPLICATE_OVERLAP"
	WarnUnknownOverlap    = "UNKNOWN_OVERLAP_SESSION"
	WarnUnderutilizedSlot = "UNDERUTILIZED_SLOT"
)

// Metrics summarises one generation run.
type Metrics struct {
	TotalSessions   int     `json:"totalSessions"`
	PlacedSessions  int     `json:"placedSessions"`
	ConflictedPairs int     `json:"conflictedPairs"`
	Oversubscribed  int     `json:"oversubscribedSessions"`
	Iterations      int     `json:"iterations"`
	MovesAccepted   int     `json:"movesAccepted"`
	MovesRejected   int     `json:"movesRejected"`
	GreedyScore     float64 `json:"greedyScore"`
}

// Result is the complete outcome of one generation run. Success is false only
// for input-integrity failures; an incomplete schedule is a normal outcome
// reported through Unassigned and Warnings.
type Result struct {
	Success     bool          `json:"success"`
	Reason      string        `json:"reason,omitempty"`
	Assignments []Assignment  `json:"assignments"`
	Score       float64       `json:"score"`
	Metrics     Metrics       `json:"metrics"`
	Warnings    []Warning     `json:"warnings"`
	Unassigned  []string      `json:"unassignedSessions"`
	Elapsed     time.Duration `json:"elapsed"`
}
