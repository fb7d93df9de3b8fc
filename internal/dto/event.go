package dto

// CreateEventRequest opens a new unconference event in DRAFT.
type CreateEventRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=160"`
	Description string `json:"description" validate:"max=2000"`
	StartsOn    string `json:"startsOn" validate:"required"`
	EndsOn      string `json:"endsOn" validate:"required"`
	BudgetCents int64  `json:"budgetCents" validate:"min=0"`
}

// UpdateEventRequest patches event metadata. Nil fields are ignored.
type UpdateEventRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=160"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	BudgetCents *int64  `json:"budgetCents" validate:"omitempty,min=0"`
}

// EventStatusRequest moves an event through its lifecycle.
type EventStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT VOTING SCHEDULED LIVE ARCHIVED"`
}
