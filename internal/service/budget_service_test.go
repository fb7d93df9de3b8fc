package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type mockBudgets struct {
	stored []models.BudgetAllocation
}

func (m *mockBudgets) ListByEvent(ctx context.Context, eventID string) ([]models.BudgetAllocation, error) {
	return m.stored, nil
}

func (m *mockBudgets) ReplaceForEvent(ctx context.Context, eventID string, allocations []models.BudgetAllocation) error {
	m.stored = allocations
	return nil
}

type mockBudgetSessions struct{ sessions []models.Session }

func (m *mockBudgetSessions) ListSchedulable(ctx context.Context, eventID string) ([]models.Session, error) {
	return m.sessions, nil
}

type mockBudgetEvents struct{ event *models.Event }

func (m *mockBudgetEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return m.event, nil
}

func budgetFixture(sessions []models.Session) (*BudgetService, *mockBudgets) {
	budgets := &mockBudgets{}
	svc := NewBudgetService(
		budgets,
		&mockBudgetSessions{sessions: sessions},
		&mockBudgetEvents{event: &models.Event{ID: "e1"}},
		validator.New(),
		zap.NewNop(),
	)
	return svc, budgets
}

func TestDistributeSumsExactly(t *testing.T) {
	svc, budgets := budgetFixture([]models.Session{
		{ID: "s1", TotalVotes: 1},
		{ID: "s2", TotalVotes: 1},
		{ID: "s3", TotalVotes: 1},
	})

	// 100 cents over three equal sessions cannot split evenly; the largest
	// remainders soak up the leftover cent
	resp, err := svc.Distribute(context.Background(), dto.DistributeBudgetRequest{EventID: "e1", TotalCents: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(100), resp.AllocatedCents)

	var total int64
	for _, allocation := range budgets.stored {
		total += allocation.AmountCents
	}
	assert.Equal(t, int64(100), total)
}

func TestDistributeProportionalToVotes(t *testing.T) {
	svc, _ := budgetFixture([]models.Session{
		{ID: "s1", TotalVotes: 30},
		{ID: "s2", TotalVotes: 10},
	})

	resp, err := svc.Distribute(context.Background(), dto.DistributeBudgetRequest{EventID: "e1", TotalCents: 4000})
	require.NoError(t, err)
	require.Len(t, resp.Allocations, 2)
	assert.Equal(t, int64(3000), resp.Allocations[0].AmountCents)
	assert.Equal(t, int64(1000), resp.Allocations[1].AmountCents)
}

func TestDistributeSkipsUnvotedSessions(t *testing.T) {
	svc, _ := budgetFixture([]models.Session{
		{ID: "s1", TotalVotes: 0},
	})

	_, err := svc.Distribute(context.Background(), dto.DistributeBudgetRequest{EventID: "e1", TotalCents: 100})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
