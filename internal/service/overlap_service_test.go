package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/models"
	"github.com/openagora/agora-api/pkg/jobs"
)

type mockVoterSets struct{ sets map[string][]string }

func (m *mockVoterSets) VoterSets(ctx context.Context, eventID string) (map[string][]string, error) {
	return m.sets, nil
}

type mockOverlapWriter struct {
	eventID string
	rows    []models.VoterOverlap
}

func (m *mockOverlapWriter) ReplaceForEvent(ctx context.Context, eventID string, overlaps []models.VoterOverlap) error {
	m.eventID = eventID
	m.rows = overlaps
	return nil
}

func TestRecomputeOverlaps(t *testing.T) {
	ballots := &mockVoterSets{sets: map[string][]string{
		"s1": {"u1", "u2", "u3", "u4"},
		"s2": {"u2", "u3"},
		"s3": {"u9"},
	}}
	writer := &mockOverlapWriter{}
	svc := NewOverlapService(ballots, writer, zap.NewNop())

	require.NoError(t, svc.Recompute(context.Background(), "e1"))
	assert.Equal(t, "e1", writer.eventID)
	require.Len(t, writer.rows, 1)

	row := writer.rows[0]
	assert.Equal(t, "s1", row.SessionAID)
	assert.Equal(t, "s2", row.SessionBID)
	assert.Equal(t, 2, row.SharedVoters)
	// both of s2's voters also want s1: 2 shared / min(4, 2) voters
	assert.InDelta(t, 100.0, row.OverlapPercent, 1e-9)
}

func TestRecomputeSkipsDisjointPairs(t *testing.T) {
	ballots := &mockVoterSets{sets: map[string][]string{
		"s1": {"u1"},
		"s2": {"u2"},
	}}
	writer := &mockOverlapWriter{}
	svc := NewOverlapService(ballots, writer, zap.NewNop())

	require.NoError(t, svc.Recompute(context.Background(), "e1"))
	assert.Empty(t, writer.rows)
}

func TestHandleJobIgnoresBadPayload(t *testing.T) {
	writer := &mockOverlapWriter{}
	svc := NewOverlapService(&mockVoterSets{}, writer, zap.NewNop())

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "j1", Payload: 42}))
	assert.Empty(t, writer.eventID)
}
