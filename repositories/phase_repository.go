package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrPhaseNotFound       = errors.New("phase not found")
	ErrPhaseNumberConflict = errors.New("phase number already used in this competition")
)

type PhaseRepository interface {
	Create(ctx context.Context, p *models.Phase) error
	GetByID(ctx context.Context, id int) (*models.Phase, error)
	GetByNumber(ctx context.Context, competitionID, phaseNumber int) (*models.Phase, error)
	ListByCompetition(ctx context.Context, competitionID int) ([]models.Phase, error)
	CountMissingReferenceData(ctx context.Context, competitionID int) (int, error)
}

type postgresPhaseRepository struct {
	db *sql.DB
}

func NewPostgresPhaseRepository(db *sql.DB) PhaseRepository {
	return &postgresPhaseRepository{db: db}
}

// A phase ends when the next one (by phase number) starts.
const phaseWindowSelect = `
	SELECT id, competition_id, phase_number, label, start_date, end_date,
		is_blind, is_scoring_only, auto_migration, is_migrated, reference_data
	FROM (
		SELECT p.*, LEAD(p.start_date) OVER (PARTITION BY p.competition_id ORDER BY p.phase_number) AS end_date
		FROM phases p
		WHERE p.competition_id = %s
	) w`

func (r *postgresPhaseRepository) Create(ctx context.Context, p *models.Phase) error {
	query := `
		INSERT INTO phases (competition_id, phase_number, label, start_date, is_blind, is_scoring_only,
			auto_migration, is_migrated, reference_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		p.CompetitionID, p.PhaseNumber, p.Label, p.StartDate, p.IsBlind, p.IsScoringOnly,
		p.AutoMigration, p.IsMigrated, p.ReferenceData,
	).Scan(&p.ID)
	if err != nil {
		if code, constraint, ok := pqErrorCode(err); ok && code == pqUniqueViolation &&
			constraint == "phases_competition_id_phase_number_key" {
			return ErrPhaseNumberConflict
		}
		return fmt.Errorf("failed to create phase: %w", err)
	}
	return nil
}

func (r *postgresPhaseRepository) scanPhase(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Phase) error {
	var end sql.NullTime
	err := rowScanner.Scan(
		&p.ID, &p.CompetitionID, &p.PhaseNumber, &p.Label, &p.StartDate, &end,
		&p.IsBlind, &p.IsScoringOnly, &p.AutoMigration, &p.IsMigrated, &p.ReferenceData,
	)
	if err != nil {
		return err
	}
	p.EndDate = nil
	if end.Valid {
		t := end.Time
		p.EndDate = &t
	}
	return nil
}

func (r *postgresPhaseRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Phase, error) {
	p := &models.Phase{}
	if err := r.scanPhase(r.db.QueryRowContext(ctx, query, args...), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPhaseNotFound
		}
		return nil, fmt.Errorf("failed to find phase: %w", err)
	}
	return p, nil
}

func (r *postgresPhaseRepository) GetByID(ctx context.Context, id int) (*models.Phase, error) {
	query := fmt.Sprintf(phaseWindowSelect, `(SELECT competition_id FROM phases WHERE id = $1)`) + ` WHERE w.id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresPhaseRepository) GetByNumber(ctx context.Context, competitionID, phaseNumber int) (*models.Phase, error) {
	query := fmt.Sprintf(phaseWindowSelect, `$1`) + ` WHERE w.phase_number = $2`
	return r.findOne(ctx, query, competitionID, phaseNumber)
}

func (r *postgresPhaseRepository) ListByCompetition(ctx context.Context, competitionID int) ([]models.Phase, error) {
	query := fmt.Sprintf(phaseWindowSelect, `$1`) + ` ORDER BY w.phase_number`
	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}
	defer rows.Close()

	phases := make([]models.Phase, 0)
	for rows.Next() {
		var p models.Phase
		if err := r.scanPhase(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan phase row: %w", err)
		}
		phases = append(phases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return phases, nil
}

func (r *postgresPhaseRepository) CountMissingReferenceData(ctx context.Context, competitionID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM phases WHERE competition_id = $1 AND reference_data = ''`,
		competitionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count phases without reference data: %w", err)
	}
	return n, nil
}
