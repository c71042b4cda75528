package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/competition-system/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var participantCols = []string{"id", "user_id", "competition_id", "status", "reason", "created_at"}

func TestParticipantGetOrCreateInserts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresParticipantRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, competition_id) DO NOTHING")).
		WithArgs(7, 3, models.ParticipantPending, nil).
		WillReturnRows(sqlmock.NewRows(participantCols).AddRow(11, 7, 3, "pending", nil, now))

	p := &models.Participant{UserID: 7, CompetitionID: 3, Status: models.ParticipantPending}
	created, err := repo.GetOrCreate(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 11, p.ID)
	assert.Nil(t, p.Reason)
}

func TestParticipantGetOrCreateReturnsExisting(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresParticipantRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, competition_id) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows(participantCols))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND competition_id = $2")).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows(participantCols).AddRow(5, 7, 3, "approved", "ok", now))

	p := &models.Participant{UserID: 7, CompetitionID: 3, Status: models.ParticipantPending}
	created, err := repo.GetOrCreate(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, p.ID)
	assert.Equal(t, models.ParticipantApproved, p.Status)
	require.NotNil(t, p.Reason)
	assert.Equal(t, "ok", *p.Reason)
}

func TestParticipantGetOrCreateMapsForeignKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresParticipantRepository(db)

	mock.ExpectQuery("INSERT INTO participants").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "participants_competition_id_fkey"})

	_, err := repo.GetOrCreate(context.Background(), &models.Participant{UserID: 1, CompetitionID: 99, Status: models.ParticipantPending})
	assert.ErrorIs(t, err, ErrParticipantCompetitionInvalid)
}

func TestParticipantUpdateStatusNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresParticipantRepository(db)

	mock.ExpectExec("UPDATE participants SET status").
		WithArgs(models.ParticipantDenied, nil, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 42, models.ParticipantDenied, nil)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestParticipantListByCompetitionWithFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresParticipantRepository(db)
	now := time.Now()
	status := models.ParticipantApproved

	mock.ExpectQuery(regexp.QuoteMeta("AND p.status = $2")).
		WithArgs(3, status).
		WillReturnRows(sqlmock.NewRows(append(participantCols, "uid", "username", "email")).
			AddRow(1, 7, 3, "approved", nil, now, 7, "alice", "alice@example.com"))

	list, err := repo.ListByCompetition(context.Background(), 3, &status)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "alice", list[0].User.Username)
}
