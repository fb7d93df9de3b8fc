package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/jobs"
)

type voterSetReader interface {
	VoterSets(ctx context.Context, eventID string) (map[string][]string, error)
}

type overlapWriter interface {
	ReplaceForEvent(ctx context.Context, eventID string, overlaps []models.VoterOverlap) error
}

// OverlapService recomputes pairwise voter overlaps from raw ballots. It runs
// as a background job after ballots change, keeping the scheduler's conflict
// signal out of the vote request path.
type OverlapService struct {
	ballots  voterSetReader
	overlaps overlapWriter
	logger   *zap.Logger
}

// NewOverlapService wires overlap dependencies.
func NewOverlapService(ballots voterSetReader, overlaps overlapWriter, logger *zap.Logger) *OverlapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverlapService{ballots: ballots, overlaps: overlaps, logger: logger}
}

// HandleJob adapts Recompute to the background queue contract. The payload is
// the event id.
func (s *OverlapService) HandleJob(ctx context.Context, job jobs.Job) error {
	eventID, ok := job.Payload.(string)
	if !ok || eventID == "" {
		s.logger.Warn("overlap job carried no event id", zap.String("job_id", job.ID))
		return nil
	}
	return s.Recompute(ctx, eventID)
}

// Recompute rebuilds the overlap table for an event. The overlap percentage
// for a pair is the shared voter count relative to the smaller of the two
// audiences, so a niche session fully contained in a popular one still reads
// as a strong conflict.
func (s *OverlapService) Recompute(ctx context.Context, eventID string) error {
	sets, err := s.ballots.VoterSets(ctx, eventID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voter sets")
	}

	sessionIDs := make([]string, 0, len(sets))
	for sessionID := range sets {
		sessionIDs = append(sessionIDs, sessionID)
	}
	sort.Strings(sessionIDs)

	var rows []models.VoterOverlap
	for i := 0; i < len(sessionIDs); i++ {
		for j := i + 1; j < len(sessionIDs); j++ {
			a, b := sessionIDs[i], sessionIDs[j]
			shared := countShared(sets[a], sets[b])
			if shared == 0 {
				continue
			}
			smaller := len(sets[a])
			if len(sets[b]) < smaller {
				smaller = len(sets[b])
			}
			rows = append(rows, models.VoterOverlap{
				EventID:        eventID,
				SessionAID:     a,
				SessionBID:     b,
				OverlapPercent: float64(shared) / float64(smaller) * 100,
				SharedVoters:   shared,
			})
		}
	}

	if err := s.overlaps.ReplaceForEvent(ctx, eventID, rows); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store voter overlaps")
	}
	s.logger.Info("voter overlaps recomputed",
		zap.String("event_id", eventID),
		zap.Int("sessions", len(sessionIDs)),
		zap.Int("pairs", len(rows)),
	)
	return nil
}

// countShared assumes both slices are sorted, which VoterSets guarantees.
func countShared(a, b []string) int {
	shared, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			shared++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return shared
}
