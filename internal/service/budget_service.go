package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type budgetStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.BudgetAllocation, error)
	ReplaceForEvent(ctx context.Context, eventID string, allocations []models.BudgetAllocation) error
}

type budgetSessionReader interface {
	ListSchedulable(ctx context.Context, eventID string) ([]models.Session, error)
}

// BudgetService splits an event budget across sessions in proportion to
// their vote totals, using largest-remainder rounding so the grants sum
// exactly to the requested amount.
type BudgetService struct {
	budgets   budgetStore
	sessions  budgetSessionReader
	events    sessionEventReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBudgetService wires budget dependencies.
func NewBudgetService(budgets budgetStore, sessions budgetSessionReader, events sessionEventReader, validate *validator.Validate, logger *zap.Logger) *BudgetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetService{budgets: budgets, sessions: sessions, events: events, validator: validate, logger: logger}
}

// Distribute computes and stores the allocation for an event.
func (s *BudgetService) Distribute(ctx context.Context, req dto.DistributeBudgetRequest) (*dto.DistributeBudgetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid budget payload")
	}
	if _, err := s.events.FindByID(ctx, req.EventID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}

	sessions, err := s.sessions.ListSchedulable(ctx, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	type weighted struct {
		session models.Session
		votes   int
	}
	var pool []weighted
	totalVotes := 0
	for _, session := range sessions {
		if session.TotalVotes <= 0 {
			continue
		}
		pool = append(pool, weighted{session: session, votes: session.TotalVotes})
		totalVotes += session.TotalVotes
	}
	if len(pool) == 0 || totalVotes == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no voted sessions to fund")
	}

	// Largest-remainder method: floor every share, then hand the leftover
	// cents to the largest fractional remainders in deterministic order.
	type share struct {
		idx       int
		floor     int64
		remainder float64
	}
	shares := make([]share, len(pool))
	var allocated int64
	for i, item := range pool {
		exact := float64(req.TotalCents) * float64(item.votes) / float64(totalVotes)
		floor := int64(exact)
		shares[i] = share{idx: i, floor: floor, remainder: exact - float64(floor)}
		allocated += floor
	}
	leftover := req.TotalCents - allocated
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].remainder != shares[j].remainder {
			return shares[i].remainder > shares[j].remainder
		}
		return pool[shares[i].idx].session.ID < pool[shares[j].idx].session.ID
	})
	for i := int64(0); i < leftover; i++ {
		shares[i%int64(len(shares))].floor++
	}

	allocations := make([]models.BudgetAllocation, 0, len(pool))
	resp := &dto.DistributeBudgetResponse{
		EventID:     req.EventID,
		TotalCents:  req.TotalCents,
		Allocations: make([]dto.BudgetAllocationView, 0, len(pool)),
	}
	for _, sh := range shares {
		item := pool[sh.idx]
		if sh.floor < req.MinPerGrant {
			continue
		}
		allocations = append(allocations, models.BudgetAllocation{
			EventID:     req.EventID,
			SessionID:   item.session.ID,
			AmountCents: sh.floor,
			Share:       float64(item.votes) / float64(totalVotes),
		})
		resp.Allocations = append(resp.Allocations, dto.BudgetAllocationView{
			SessionID:   item.session.ID,
			Title:       item.session.Title,
			TotalVotes:  item.votes,
			AmountCents: sh.floor,
		})
		resp.AllocatedCents += sh.floor
	}
	sort.Slice(resp.Allocations, func(i, j int) bool {
		if resp.Allocations[i].AmountCents != resp.Allocations[j].AmountCents {
			return resp.Allocations[i].AmountCents > resp.Allocations[j].AmountCents
		}
		return resp.Allocations[i].SessionID < resp.Allocations[j].SessionID
	})

	if err := s.budgets.ReplaceForEvent(ctx, req.EventID, allocations); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store allocations")
	}
	return resp, nil
}

// List returns the stored allocations for an event.
func (s *BudgetService) List(ctx context.Context, eventID string) ([]models.BudgetAllocation, error) {
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "eventId is required")
	}
	allocations, err := s.budgets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	return allocations, nil
}
