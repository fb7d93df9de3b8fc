package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora-api/internal/models"
)

func TestListSchedulableSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "event_id", "proposer_id", "title", "abstract", "format", "status", "duration_minutes", "is_locked", "venue_id", "time_slot_id", "requirements", "total_votes", "total_voters", "created_at", "updated_at"}).
		AddRow("s1", "e1", "u1", "Intro to Gardening", "", string(models.SessionFormatTalk), string(models.SessionStatusApproved), 60, false, nil, nil, []byte(`[]`), 12, 5, now, now).
		AddRow("s2", "e1", "u2", "Fermentation Lab", "", string(models.SessionFormatWorkshop), string(models.SessionStatusScheduled), 90, true, "v1", "t1", []byte(`["projector"]`), 30, 9, now, now)
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE event_id = \\$1 AND status IN").
		WithArgs("e1", string(models.SessionStatusApproved), string(models.SessionStatusScheduled)).
		WillReturnRows(rows)

	sessions, err := repo.ListSchedulable(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Intro to Gardening", sessions[0].Title)
	assert.True(t, sessions[1].IsLocked)
	assert.Equal(t, []string{"projector"}, sessions[1].RequirementTags())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessionsWithFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "event_id", "proposer_id", "title", "abstract", "format", "status", "duration_minutes", "is_locked", "venue_id", "time_slot_id", "requirements", "total_votes", "total_voters", "created_at", "updated_at"}).
		AddRow("s1", "e1", "u1", "Intro to Gardening", "", string(models.SessionFormatTalk), string(models.SessionStatusSubmitted), 30, false, nil, nil, []byte(`[]`), 0, 0, now, now)
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE 1=1 AND event_id = \\$1 AND status = \\$2 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("e1", models.SessionStatusSubmitted).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sessions WHERE 1=1")).
		WithArgs("e1", models.SessionStatusSubmitted).
		WillReturnRows(countRows)

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{EventID: "e1", Status: models.SessionStatusSubmitted})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPlacementWithTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions SET venue_id = \\$2, time_slot_id = \\$3, status = \\$4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyPlacementWithTx(context.Background(), tx, "s1", "v1", "t1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
