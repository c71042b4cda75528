package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/models"
	"github.com/lib/pq"
)

var (
	ErrCompetitionNotFound       = errors.New("competition not found")
	ErrCompetitionCreatorInvalid = errors.New("invalid creator reference")
	ErrBundleOwnerInvalid        = errors.New("invalid bundle owner reference")
)

type ListCompetitionsFilter struct {
	CreatorID     *int
	PublishedOnly bool
	Search        string
	Limit         int
	Offset        int
}

type CompetitionRepository interface {
	Create(ctx context.Context, c *models.Competition) error
	GetByID(ctx context.Context, id int) (*models.Competition, error)
	List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error)
	UpdateInfo(ctx context.Context, id int, title, description string) error
	SetPublished(ctx context.Context, id int, published bool) error
	Delete(ctx context.Context, id int) error
	CreateDefBundle(ctx context.Context, b *models.CompetitionDefBundle) error
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

const competitionSelect = `
	SELECT
		c.id, c.title, c.description, c.creator_id, c.published, c.has_registration,
		c.is_migrating_delayed, c.image_key, c.created_at,
		COALESCE(array_agg(a.user_id) FILTER (WHERE a.user_id IS NOT NULL), '{}') AS admin_ids
	FROM competitions c
	LEFT JOIN competition_admins a ON a.competition_id = c.id`

func (r *postgresCompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO competitions (title, description, creator_id, published, has_registration, is_migrating_delayed, image_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query,
		c.Title, c.Description, c.CreatorID, c.Published, c.HasRegistration, c.IsMigratingDelayed, c.ImageKey,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return r.handleCompetitionError(err)
	}

	for _, adminID := range c.AdminIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO competition_admins (competition_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			c.ID, adminID,
		); err != nil {
			return fmt.Errorf("failed to add competition admin %d: %w", adminID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit competition: %w", err)
	}
	return nil
}

func (r *postgresCompetitionRepository) scanCompetition(rowScanner interface {
	Scan(dest ...interface{}) error
}, c *models.Competition) error {
	var adminIDs []int64
	var imageKey sql.NullString
	err := rowScanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.CreatorID, &c.Published, &c.HasRegistration,
		&c.IsMigratingDelayed, &imageKey, &c.CreatedAt,
		pq.Array(&adminIDs),
	)
	if err != nil {
		return err
	}
	if imageKey.Valid {
		k := imageKey.String
		c.ImageKey = &k
	}
	c.AdminIDs = intsFromInt64s(adminIDs)
	return nil
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id int) (*models.Competition, error) {
	query := competitionSelect + ` WHERE c.id = $1 GROUP BY c.id`

	c := &models.Competition{}
	if err := r.scanCompetition(r.db.QueryRowContext(ctx, query, id), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error) {
	query := competitionSelect + ` WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.CreatorID != nil {
		query += fmt.Sprintf(" AND c.creator_id = $%d", argID)
		args = append(args, *filter.CreatorID)
		argID++
	}
	if filter.PublishedOnly {
		query += " AND c.published = TRUE"
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (c.title ILIKE $%d OR c.description ILIKE $%d)", argID, argID)
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	query += " GROUP BY c.id ORDER BY c.created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	competitions := make([]models.Competition, 0)
	for rows.Next() {
		var c models.Competition
		if err := r.scanCompetition(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan competition row: %w", err)
		}
		competitions = append(competitions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) UpdateInfo(ctx context.Context, id int, title, description string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE competitions SET title = $1, description = $2 WHERE id = $3`,
		title, description, id,
	)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) SetPublished(ctx context.Context, id int, published bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE competitions SET published = $1 WHERE id = $2`, published, id)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

// Delete removes the competition; phases, participants, submissions and
// leaderboards go with it through ON DELETE CASCADE.
func (r *postgresCompetitionRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) CreateDefBundle(ctx context.Context, b *models.CompetitionDefBundle) error {
	query := `
		INSERT INTO competition_def_bundles (owner_id, blob_key)
		VALUES ($1, $2)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, b.OwnerID, b.BlobKey).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
			return ErrBundleOwnerInvalid
		}
		return fmt.Errorf("failed to create competition bundle: %w", err)
	}
	return nil
}

func (r *postgresCompetitionRepository) handleCompetitionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCompetitionNotFound
	}
	if code, constraint, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation && constraint == "competitions_creator_id_fkey" {
		return ErrCompetitionCreatorInvalid
	}
	return fmt.Errorf("competition query failed: %w", err)
}
