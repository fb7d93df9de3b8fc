package dto

// CastBallotRequest spends quadratic-voting credits on a session. Votes set
// to zero withdraws an earlier ballot.
type CastBallotRequest struct {
	EventID   string `json:"eventId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	Votes     int    `json:"votes" validate:"min=0,max=100"`
}

// BallotView echoes a stored ballot with its credit cost.
type BallotView struct {
	SessionID string `json:"sessionId"`
	Votes     int    `json:"votes"`
	Credits   int    `json:"credits"`
}

// CreditSummary reports a voter's remaining budget for an event.
type CreditSummary struct {
	EventID   string       `json:"eventId"`
	Budget    int          `json:"budget"`
	Spent     int          `json:"spent"`
	Remaining int          `json:"remaining"`
	Ballots   []BallotView `json:"ballots"`
}

// TallyView is the aggregate demand for one session.
type TallyView struct {
	SessionID   string `json:"sessionId"`
	TotalVotes  int    `json:"totalVotes"`
	TotalVoters int    `json:"totalVoters"`
}
