package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var competitionCols = []string{"id", "title", "description", "creator_id", "published", "has_registration",
	"is_migrating_delayed", "image_key", "created_at", "admin_ids"}

func TestGetCompetitionWithAdmins(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresCompetitionRepository(db)

	mock.ExpectQuery("FROM competitions c").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(competitionCols).
			AddRow(3, "Segmentation", "desc", 1, true, true, false, nil, time.Now(), "{4,5}"))

	c, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, c.AdminIDs)
	assert.Nil(t, c.ImageKey)
	assert.True(t, c.CanAdminister(5))
}

func TestSetPublishedNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresCompetitionRepository(db)

	mock.ExpectExec("UPDATE competitions SET published").
		WithArgs(true, 77).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SetPublished(context.Background(), 77, true), ErrCompetitionNotFound)
}
