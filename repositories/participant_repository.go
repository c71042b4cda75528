package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrParticipantNotFound           = errors.New("participant not found")
	ErrParticipantUserInvalid        = errors.New("participant user conflict or invalid")
	ErrParticipantCompetitionInvalid = errors.New("participant competition conflict or invalid")
	ErrParticipantStatusInvalid      = errors.New("participant status violates check constraint")
)

type ParticipantRepository interface {
	// GetOrCreate inserts p unless (user, competition) already exists, in which
	// case p is overwritten with the stored row. created reports which happened.
	GetOrCreate(ctx context.Context, p *models.Participant) (created bool, err error)
	UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus, reason *string) error
	FindByID(ctx context.Context, id int) (*models.Participant, error)
	FindInCompetition(ctx context.Context, competitionID, id int) (*models.Participant, error)
	FindByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Participant, error)
	ListByCompetition(ctx context.Context, competitionID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

const participantColumns = `id, user_id, competition_id, status, reason, created_at`

func (r *postgresParticipantRepository) GetOrCreate(ctx context.Context, p *models.Participant) (bool, error) {
	query := `
		INSERT INTO participants (user_id, competition_id, status, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, competition_id) DO NOTHING
		RETURNING ` + participantColumns

	err := r.scanParticipant(r.db.QueryRowContext(ctx, query, p.UserID, p.CompetitionID, p.Status, p.Reason), p)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, r.handleParticipantError(err)
	}

	// Conflict: the row already exists (possibly committed by a concurrent request).
	existing, err := r.FindByUserAndCompetition(ctx, p.UserID, p.CompetitionID)
	if err != nil {
		return false, err
	}
	*p = *existing
	return false, nil
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus, reason *string) error {
	query := `UPDATE participants SET status = $1, reason = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, reason, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Participant) error {
	var reason sql.NullString
	err := rowScanner.Scan(
		&p.ID,
		&p.UserID,
		&p.CompetitionID,
		&p.Status,
		&reason,
		&p.CreatedAt,
	)
	if err != nil {
		return err
	}
	p.Reason = nil
	if reason.Valid {
		s := reason.String
		p.Reason = &s
	}
	return nil
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Participant, error) {
	p := &models.Participant{}
	err := r.scanParticipant(r.db.QueryRowContext(ctx, query, args...), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	return r.findOne(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
}

func (r *postgresParticipantRepository) FindInCompetition(ctx context.Context, competitionID, id int) (*models.Participant, error) {
	return r.findOne(ctx, `SELECT `+participantColumns+` FROM participants WHERE competition_id = $1 AND id = $2`, competitionID, id)
}

func (r *postgresParticipantRepository) FindByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Participant, error) {
	return r.findOne(ctx, `SELECT `+participantColumns+` FROM participants WHERE user_id = $1 AND competition_id = $2`, userID, competitionID)
}

func (r *postgresParticipantRepository) ListByCompetition(ctx context.Context, competitionID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error) {
	var queryBuilder strings.Builder
	args := []interface{}{competitionID}

	queryBuilder.WriteString(`
		SELECT
			p.id, p.user_id, p.competition_id, p.status, p.reason, p.created_at,
			u.id, u.username, u.email
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.competition_id = $1`)

	if statusFilter != nil {
		queryBuilder.WriteString(" AND p.status = $2")
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY p.created_at ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by competition: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		var u models.User
		var reason sql.NullString
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.CompetitionID, &p.Status, &reason, &p.CreatedAt,
			&u.ID, &u.Username, &u.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		if reason.Valid {
			s := reason.String
			p.Reason = &s
		}
		p.User = &u
		participants = append(participants, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if code, constraint, ok := pqErrorCode(err); ok {
		switch code {
		case pqForeignKeyViolation:
			switch constraint {
			case "participants_user_id_fkey":
				return ErrParticipantUserInvalid
			case "participants_competition_id_fkey":
				return ErrParticipantCompetitionInvalid
			}
		case pqCheckViolation:
			if constraint == "chk_participant_status" {
				return ErrParticipantStatusInvalid
			}
		}
	}
	return fmt.Errorf("participant query failed: %w", err)
}
