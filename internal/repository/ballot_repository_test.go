package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora-api/internal/models"
)

func TestUpsertBallot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	mock.ExpectExec("INSERT INTO ballots").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), &models.Ballot{EventID: "e1", SessionID: "s1", VoterID: "u1", Votes: 3, Credits: 9})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpentCredits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow(14)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(credits), 0) FROM ballots WHERE event_id = $1 AND voter_id = $2")).
		WithArgs("e1", "u1").
		WillReturnRows(rows)

	spent, err := repo.SpentCredits(context.Background(), "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 14, spent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTallies(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	rows := sqlmock.NewRows([]string{"session_id", "total_votes", "total_voters"}).
		AddRow("s1", 18, 6).
		AddRow("s2", 4, 2)
	mock.ExpectQuery("SELECT session_id, COALESCE\\(SUM\\(votes\\), 0\\) AS total_votes").
		WithArgs("e1").
		WillReturnRows(rows)

	tallies, err := repo.Tallies(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	assert.Equal(t, 18, tallies[0].TotalVotes)
	assert.Equal(t, 2, tallies[1].TotalVoters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoterSets(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBallotRepository(db)

	rows := sqlmock.NewRows([]string{"session_id", "voter_id"}).
		AddRow("s1", "u1").
		AddRow("s1", "u2").
		AddRow("s2", "u2")
	mock.ExpectQuery("SELECT session_id, voter_id FROM ballots").
		WithArgs("e1").
		WillReturnRows(rows)

	sets, err := repo.VoterSets(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, sets["s1"])
	assert.Equal(t, []string{"u2"}, sets["s2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
