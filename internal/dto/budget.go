package dto

// DistributeBudgetRequest splits an event budget across approved sessions
// in proportion to their vote tallies.
type DistributeBudgetRequest struct {
	EventID     string `json:"eventId" validate:"required"`
	TotalCents  int64  `json:"totalCents" validate:"required,min=1"`
	MinPerGrant int64  `json:"minPerGrant" validate:"min=0"`
}

// BudgetAllocationView is one session's share of the distribution.
type BudgetAllocationView struct {
	SessionID   string `json:"sessionId"`
	Title       string `json:"title"`
	TotalVotes  int    `json:"totalVotes"`
	AmountCents int64  `json:"amountCents"`
}

// DistributeBudgetResponse reports the full distribution. AllocatedCents
// equals TotalCents unless minPerGrant filtered out small grants.
type DistributeBudgetResponse struct {
	EventID        string                 `json:"eventId"`
	TotalCents     int64                  `json:"totalCents"`
	AllocatedCents int64                  `json:"allocatedCents"`
	Allocations    []BudgetAllocationView `json:"allocations"`
}
