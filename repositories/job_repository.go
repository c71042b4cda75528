package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobStatusFinal = errors.New("job status is already final")
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id int) (*models.Job, error)
	UpdateStatus(ctx context.Context, id int, status models.JobStatus, resultInfo json.RawMessage) error
}

type postgresJobRepository struct {
	db *sql.DB
}

func NewPostgresJobRepository(db *sql.DB) JobRepository {
	return &postgresJobRepository{db: db}
}

func (r *postgresJobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.Status == "" {
		job.Status = models.JobPending
	}
	args := job.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	query := `
		INSERT INTO jobs (kind, args, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, job.Kind, []byte(args), job.Status).
		Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	job.Args = args
	return nil
}

func (r *postgresJobRepository) GetByID(ctx context.Context, id int) (*models.Job, error) {
	job := &models.Job{}
	var args, resultInfo []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, args, status, result_info, created_at, updated_at
		FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Kind, &args, &job.Status, &resultInfo, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.Args = args
	if resultInfo != nil {
		job.ResultInfo = resultInfo
	}
	return job, nil
}

// UpdateStatus records a worker result. Finished and failed jobs are final:
// later results return ErrJobStatusFinal and leave the row untouched.
func (r *postgresJobRepository) UpdateStatus(ctx context.Context, id int, status models.JobStatus, resultInfo json.RawMessage) error {
	var info interface{}
	if len(resultInfo) > 0 {
		info = []byte(resultInfo)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, result_info = COALESCE($2, result_info), updated_at = now()
		WHERE id = $3 AND status NOT IN ('finished', 'failed')`, status, info, id)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if err := checkAffectedRows(result, ErrJobNotFound); !errors.Is(err, ErrJobNotFound) {
		return err
	}
	return rowExistsOr(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id, ErrJobStatusFinal, ErrJobNotFound)
}
