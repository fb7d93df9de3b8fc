package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixtureDay = time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC)

func slotAt(id string, startMinute, duration int) TimeSlot {
	start := fixtureDay.Add(time.Duration(startMinute) * time.Minute)
	return TimeSlot{
		ID:        id,
		Start:     start,
		End:       start.Add(time.Duration(duration) * time.Minute),
		Available: true,
	}
}

func TestGenerateCapacityShortfall(t *testing.T) {
	// Three sessions, one venue, two slots: pure supply shortage, no warnings.
	input := Input{
		Sessions: []Session{
			{ID: "s1", Duration: 60, TotalVotes: 30, TotalVoters: 12},
			{ID: "s2", Duration: 60, TotalVotes: 20, TotalVoters: 9},
			{ID: "s3", Duration: 60, TotalVotes: 10, TotalVoters: 4},
		},
		Venues: []Venue{{ID: "v1", Name: "Main Hall", Capacity: 100}},
		Slots:  []TimeSlot{slotAt("t1", 0, 60), slotAt("t2", 60, 60)},
	}

	result, err := New(Config{}, zap.NewNop()).Generate(input)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Assignments, 2)
	assert.Equal(t, []string{"s3"}, result.Unassigned)
	assert.Empty(t, result.Warnings)
}

func TestGenerateHardConflictNeverShares(t *testing.T) {
	overlap := []Overlap{{SessionA: "s1", SessionB: "s2", Percent: 90, SharedVoters: 40}}

	t.Run("split across slots when possible", func(t *testing.T) {
		input := Input{
			Sessions: []Session{
				{ID: "s1", Duration: 60, TotalVotes: 50, TotalVoters: 40},
				{ID: "s2", Duration: 60, TotalVotes: 45, TotalVoters: 38},
			},
			Venues:   []Venue{{ID: "v1", Capacity: 80}, {ID: "v2", Capacity: 80}},
			Slots:    []TimeSlot{slotAt("t1", 0, 60), slotAt("t2", 60, 60)},
			Overlaps: overlap,
		}
		result, err := New(Config{ConflictThreshold: 50}, zap.NewNop()).Generate(input)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 2)
		assert.NotEqual(t, result.Assignments[0].TimeSlotID, result.Assignments[1].TimeSlotID)
	})

	t.Run("one unassigned when only one slot exists", func(t *testing.T) {
		input := Input{
			Sessions: []Session{
				{ID: "s1", Duration: 60, TotalVotes: 50, TotalVoters: 40},
				{ID: "s2", Duration: 60, TotalVotes: 45, TotalVoters: 38},
			},
			Venues:   []Venue{{ID: "v1", Capacity: 80}, {ID: "v2", Capacity: 80}},
			Slots:    []TimeSlot{slotAt("t1", 0, 60)},
			Overlaps: overlap,
		}
		result, err := New(Config{ConflictThreshold: 50}, zap.NewNop()).Generate(input)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Len(t, result.Assignments, 1)
		assert.Equal(t, []string{"s2"}, result.Unassigned)
	})
}

func TestGenerateLockedSessionIsImmutable(t *testing.T) {
	input := Input{
		Sessions: []Session{
			{ID: "locked", Duration: 60, IsLocked: true, VenueID: "v1", TimeSlotID: "t1", TotalVotes: 5},
			{ID: "newcomer", Duration: 60, TotalVotes: 99, TotalVoters: 50, Requirements: []string{"projector"}},
		},
		Venues: []Venue{
			{ID: "v1", Capacity: 60, Features: []string{"projector"}},
			{ID: "v2", Capacity: 60},
		},
		Slots: []TimeSlot{slotAt("t1", 0, 60)},
	}

	result, err := New(Config{}, zap.NewNop()).Generate(input)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, Assignment{SessionID: "locked", VenueID: "v1", TimeSlotID: "t1"}, result.Assignments[0])
	assert.Equal(t, []string{"newcomer"}, result.Unassigned)
}

func TestGenerateInvariants(t *testing.T) {
	input := denseFixture()
	result, err := New(Config{ConflictThreshold: 60, MaxIterations: 200}, zap.NewNop()).Generate(input)
	require.NoError(t, err)
	require.True(t, result.Success)

	slots := make(map[string]TimeSlot)
	for _, slot := range input.Slots {
		slots[slot.ID] = slot
	}
	venues := make(map[string]Venue)
	for _, venue := range input.Venues {
		venues[venue.ID] = venue
	}
	sessions := make(map[string]Session)
	for _, session := range input.Sessions {
		sessions[session.ID] = session
	}

	seen := make(map[[2]string]string)
	for _, assignment := range result.Assignments {
		cell := [2]string{assignment.VenueID, assignment.TimeSlotID}
		if prior, taken := seen[cell]; taken {
			t.Fatalf("cell %v double-booked by %s and %s", cell, prior, assignment.SessionID)
		}
		seen[cell] = assignment.SessionID

		session := sessions[assignment.SessionID]
		assert.LessOrEqual(t, session.Duration, slots[assignment.TimeSlotID].DurationMinutes(), "duration fit for %s", session.ID)

		offered := make(map[string]struct{})
		for _, feature := range venues[assignment.VenueID].Features {
			offered[feature] = struct{}{}
		}
		for _, required := range session.Requirements {
			assert.Contains(t, offered, required, "feature fit for %s", session.ID)
		}

		if session.IsLocked {
			assert.Equal(t, session.VenueID, assignment.VenueID)
			assert.Equal(t, session.TimeSlotID, assignment.TimeSlotID)
		}
	}

	assert.Equal(t, len(input.Sessions), len(result.Assignments)+len(result.Unassigned), "coverage accounting")
	assert.GreaterOrEqual(t, result.Score, result.Metrics.GreedyScore, "optimizer must not worsen the greedy score")
}

func TestGenerateDeterminism(t *testing.T) {
	input := denseFixture()
	gen := New(Config{ConflictThreshold: 55, MaxIterations: 250}, zap.NewNop())

	first, err := gen.Generate(input)
	require.NoError(t, err)
	second, err := gen.Generate(input)
	require.NoError(t, err)

	first.Elapsed, second.Elapsed = 0, 0
	assert.Equal(t, first, second)
}

func TestGenerateStructurallyUnassignable(t *testing.T) {
	input := Input{
		Sessions: []Session{
			{ID: "plain", Duration: 30, TotalVotes: 10},
			{ID: "needs-lab", Duration: 30, TotalVotes: 20, Requirements: []string{"wet-lab"}},
		},
		Venues: []Venue{{ID: "v1", Capacity: 40, Features: []string{"projector"}}},
		Slots:  []TimeSlot{slotAt("t1", 0, 30), slotAt("t2", 30, 30)},
	}

	result, err := New(Config{}, zap.NewNop()).Generate(input)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Unassigned, "needs-lab")

	var found bool
	for _, warning := range result.Warnings {
		if warning.Type == WarnUnassignable && warning.SessionID == "needs-lab" {
			found = true
		}
	}
	assert.True(t, found, "expected unassignable warning for needs-lab")
}

func TestGenerateUnderutilizedSlotWarning(t *testing.T) {
	input := Input{
		Sessions: []Session{{ID: "short", Duration: 30, TotalVotes: 5}},
		Venues:   []Venue{{ID: "v1", Capacity: 20}},
		Slots:    []TimeSlot{slotAt("t1", 0, 90)},
	}

	result, err := New(Config{}, zap.NewNop()).Generate(input)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnUnderutilizedSlot, result.Warnings[0].Type)
	assert.Equal(t, "short", result.Warnings[0].SessionID)
}

func TestGenerateIntegrityFailures(t *testing.T) {
	base := func() Input {
		return Input{
			Sessions: []Session{{ID: "s1", Duration: 60}},
			Venues:   []Venue{{ID: "v1", Capacity: 10}},
			Slots:    []TimeSlot{slotAt("t1", 0, 60)},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Input)
	}{
		{"dangling venue reference", func(in *Input) {
			in.Sessions[0].VenueID = "ghost"
		}},
		{"dangling slot reference", func(in *Input) {
			in.Sessions[0].TimeSlotID = "ghost"
		}},
		{"non-positive slot duration", func(in *Input) {
			in.Slots[0].End = in.Slots[0].Start
		}},
		{"locked session missing placement", func(in *Input) {
			in.Sessions[0].IsLocked = true
		}},
		{"locked session larger than its slot", func(in *Input) {
			in.Sessions[0] = Session{ID: "s1", Duration: 90, IsLocked: true, VenueID: "v1", TimeSlotID: "t1"}
		}},
		{"zero capacity venue", func(in *Input) {
			in.Venues[0].Capacity = 0
		}},
		{"double-booked locked sessions", func(in *Input) {
			in.Sessions = []Session{
				{ID: "a", Duration: 60, IsLocked: true, VenueID: "v1", TimeSlotID: "t1"},
				{ID: "b", Duration: 60, IsLocked: true, VenueID: "v1", TimeSlotID: "t1"},
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base()
			tc.mutate(&input)
			result, err := New(Config{}, zap.NewNop()).Generate(input)
			require.Error(t, err)
			require.NotNil(t, result)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Reason)
			assert.Empty(t, result.Assignments)
		})
	}
}

func TestGenerateDuplicateOverlapWarning(t *testing.T) {
	input := Input{
		Sessions: []Session{
			{ID: "s1", Duration: 30, TotalVotes: 4},
			{ID: "s2", Duration: 30, TotalVotes: 3},
		},
		Venues: []Venue{{ID: "v1", Capacity: 25}},
		Slots:  []TimeSlot{slotAt("t1", 0, 30), slotAt("t2", 30, 30)},
		Overlaps: []Overlap{
			{SessionA: "s1", SessionB: "s2", Percent: 20},
			{SessionA: "s2", SessionB: "s1", Percent: 35},
			{SessionA: "s1", SessionB: "ghost", Percent: 10},
		},
	}

	result, err := New(Config{}, zap.NewNop()).Generate(input)
	require.NoError(t, err)

	types := make(map[string]int)
	for _, warning := range result.Warnings {
		types[warning.Type]++
	}
	assert.Equal(t, 1, types[WarnDuplicateOverlap])
	assert.Equal(t, 1, types[WarnUnknownOverlap])
}

// denseFixture builds a crowded event: eight sessions over two venues and
// three slots with a mix of overlaps, locks and feature requirements.
func denseFixture() Input {
	return Input{
		Sessions: []Session{
			{ID: "go-observability", Duration: 60, TotalVotes: 80, TotalVoters: 45},
			{ID: "platform-teams", Duration: 60, TotalVotes: 72, TotalVoters: 40},
			{ID: "quadratic-funding", Duration: 60, TotalVotes: 64, TotalVoters: 35, Requirements: []string{"projector"}},
			{ID: "lightning-talks", Duration: 30, TotalVotes: 60, TotalVoters: 55},
			{ID: "incident-reviews", Duration: 60, TotalVotes: 41, TotalVoters: 22},
			{ID: "hallway-track", Duration: 30, TotalVotes: 18, TotalVoters: 14},
			{ID: "keynote", Duration: 60, IsLocked: true, VenueID: "auditorium", TimeSlotID: "morning-1", TotalVotes: 120, TotalVoters: 90},
			{ID: "sponsors-demo", Duration: 60, TotalVotes: 12, TotalVoters: 6},
		},
		Venues: []Venue{
			{ID: "auditorium", Name: "Auditorium", Capacity: 120, Features: []string{"projector", "mic"}},
			{ID: "workshop-room", Name: "Workshop Room", Capacity: 30, Features: []string{"whiteboard"}},
		},
		Slots: []TimeSlot{
			slotAt("morning-1", 0, 60),
			slotAt("morning-2", 75, 60),
			slotAt("afternoon-1", 240, 60),
		},
		Overlaps: []Overlap{
			{SessionA: "go-observability", SessionB: "platform-teams", Percent: 70, SharedVoters: 28},
			{SessionA: "go-observability", SessionB: "incident-reviews", Percent: 35, SharedVoters: 9},
			{SessionA: "quadratic-funding", SessionB: "lightning-talks", Percent: 20, SharedVoters: 8},
			{SessionA: "keynote", SessionB: "go-observability", Percent: 55, SharedVoters: 30},
			{SessionA: "hallway-track", SessionB: "sponsors-demo", Percent: 10, SharedVoters: 2},
		},
	}
}
