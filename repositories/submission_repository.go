package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrSubmissionNotFound         = errors.New("submission not found")
	ErrSubmissionReferenceInvalid = errors.New("submission participant or phase invalid")
	ErrSubmissionStatusFinal      = errors.New("submission status is already final")
)

type SubmissionRepository interface {
	Create(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id int) (*models.Submission, error)
	ListByParticipant(ctx context.Context, participantID int, phaseID *int) ([]*models.Submission, error)
	UpdateStatus(ctx context.Context, id int, status models.SubmissionStatus) error
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

const submissionColumns = `id, participant_id, phase_id, file_key, status, description, team_name,
	organization_or_affiliation, method_name, method_description, project_url, publication_url,
	bibtex, submitted_at`

func (r *postgresSubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	if s.Status == "" {
		s.Status = models.SubmissionSubmitted
	}
	query := `
		INSERT INTO submissions (participant_id, phase_id, file_key, status, description, team_name,
			organization_or_affiliation, method_name, method_description, project_url, publication_url, bibtex)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, submitted_at`
	m := s.Metadata
	err := r.db.QueryRowContext(ctx, query,
		s.ParticipantID, s.PhaseID, s.FileKey, s.Status, m.Description, m.TeamName,
		m.OrganizationOrAffiliation, m.MethodName, m.MethodDescription, m.ProjectURL, m.PublicationURL, m.Bibtex,
	).Scan(&s.ID, &s.SubmittedAt)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
			return ErrSubmissionReferenceInvalid
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *postgresSubmissionRepository) scanSubmission(rowScanner interface {
	Scan(dest ...interface{}) error
}, s *models.Submission) error {
	m := &s.Metadata
	return rowScanner.Scan(
		&s.ID, &s.ParticipantID, &s.PhaseID, &s.FileKey, &s.Status,
		&m.Description, &m.TeamName, &m.OrganizationOrAffiliation, &m.MethodName, &m.MethodDescription,
		&m.ProjectURL, &m.PublicationURL, &m.Bibtex, &s.SubmittedAt,
	)
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	s := &models.Submission{}
	if err := r.scanSubmission(r.db.QueryRowContext(ctx, query, id), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

func (r *postgresSubmissionRepository) ListByParticipant(ctx context.Context, participantID int, phaseID *int) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE participant_id = $1`
	args := []interface{}{participantID}
	if phaseID != nil {
		query += ` AND phase_id = $2`
		args = append(args, *phaseID)
	}
	query += ` ORDER BY submitted_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*models.Submission, 0)
	for rows.Next() {
		s := &models.Submission{}
		if err := r.scanSubmission(rows, s); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpdateStatus moves a submission to status unless it already finished or
// failed, in which case ErrSubmissionStatusFinal is returned.
func (r *postgresSubmissionRepository) UpdateStatus(ctx context.Context, id int, status models.SubmissionStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE submissions SET status = $1
		WHERE id = $2 AND status NOT IN ('finished', 'failed')`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	if err := checkAffectedRows(result, ErrSubmissionNotFound); !errors.Is(err, ErrSubmissionNotFound) {
		return err
	}
	return rowExistsOr(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM submissions WHERE id = $1)`, id, ErrSubmissionStatusFinal, ErrSubmissionNotFound)
}
