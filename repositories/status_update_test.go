package repositories

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/competition-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionUpdateStatusSkipsFinal(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		exists   *bool
		want     error
	}{
		{name: "updated", affected: 1},
		{name: "already final", affected: 0, exists: boolPtr(true), want: ErrSubmissionStatusFinal},
		{name: "missing", affected: 0, exists: boolPtr(false), want: ErrSubmissionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewPostgresSubmissionRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND status NOT IN ('finished', 'failed')")).
				WithArgs(models.SubmissionRunning, 9).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			if tt.exists != nil {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM submissions WHERE id = $1)")).
					WithArgs(9).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(*tt.exists))
			}

			err := repo.UpdateStatus(context.Background(), 9, models.SubmissionRunning)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJobUpdateStatusSkipsFinal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND status NOT IN ('finished', 'failed')")).
		WithArgs(models.JobRunning, nil, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateStatus(context.Background(), 4, models.JobRunning, json.RawMessage(nil))
	assert.ErrorIs(t, err, ErrJobStatusFinal)
}

func boolPtr(b bool) *bool { return &b }
