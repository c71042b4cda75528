package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/competition-system/models"
)

var (
	ErrLeaderBoardNotFound      = errors.New("leaderboard not found")
	ErrLeaderBoardEntryNotFound = errors.New("leaderboard entry not found")
	ErrLeaderBoardEntryInvalid  = errors.New("leaderboard entry references invalid board, participant or submission")
)

type LeaderBoardRepository interface {
	// GetOrCreateBoard returns the single board of a phase, creating it on first use.
	GetOrCreateBoard(ctx context.Context, phaseID int) (*models.LeaderBoard, error)
	FindBoardByPhase(ctx context.Context, phaseID int) (*models.LeaderBoard, error)
	// UpsertEntry stores e as the participant's entry on the board, replacing the
	// submission of any existing entry. created is false when nothing new was
	// inserted (including the case where the same submission was already there).
	UpsertEntry(ctx context.Context, e *models.LeaderBoardEntry) (created bool, err error)
	FindEntryBySubmission(ctx context.Context, boardID, submissionID int) (*models.LeaderBoardEntry, error)
	DeleteEntry(ctx context.Context, id int) error
	ListRows(ctx context.Context, boardID int) ([]models.LeaderBoardRow, error)

	ListScoreGroups(ctx context.Context, phaseID int) ([]models.ScoreGroup, error)
	ListScoreDefs(ctx context.Context, phaseID int) ([]models.ScoreDef, error)
	ListScoresForBoard(ctx context.Context, boardID int) ([]models.SubmissionScore, error)
	// SaveScores writes values keyed by score definition key for the submission's phase.
	// Unknown keys are ignored and reported back.
	SaveScores(ctx context.Context, submissionID int, values map[string]float64) (unknown []string, err error)
}

type postgresLeaderBoardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderBoardRepository(db *sql.DB) LeaderBoardRepository {
	return &postgresLeaderBoardRepository{db: db}
}

func (r *postgresLeaderBoardRepository) GetOrCreateBoard(ctx context.Context, phaseID int) (*models.LeaderBoard, error) {
	// DO UPDATE so RETURNING yields the row on conflict too.
	query := `
		INSERT INTO leaderboards (phase_id) VALUES ($1)
		ON CONFLICT (phase_id) DO UPDATE SET phase_id = EXCLUDED.phase_id
		RETURNING id, phase_id`
	b := &models.LeaderBoard{}
	if err := r.db.QueryRowContext(ctx, query, phaseID).Scan(&b.ID, &b.PhaseID); err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
			return nil, ErrPhaseNotFound
		}
		return nil, fmt.Errorf("failed to get or create leaderboard: %w", err)
	}
	return b, nil
}

func (r *postgresLeaderBoardRepository) FindBoardByPhase(ctx context.Context, phaseID int) (*models.LeaderBoard, error) {
	b := &models.LeaderBoard{}
	err := r.db.QueryRowContext(ctx, `SELECT id, phase_id FROM leaderboards WHERE phase_id = $1`, phaseID).
		Scan(&b.ID, &b.PhaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaderBoardNotFound
		}
		return nil, fmt.Errorf("failed to find leaderboard: %w", err)
	}
	return b, nil
}

func (r *postgresLeaderBoardRepository) UpsertEntry(ctx context.Context, e *models.LeaderBoardEntry) (bool, error) {
	// xmax is 0 only for freshly inserted tuples.
	query := `
		INSERT INTO leaderboard_entries (board_id, participant_id, submission_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (board_id, participant_id) DO UPDATE SET submission_id = EXCLUDED.submission_id
		RETURNING id, (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRowContext(ctx, query, e.BoardID, e.ParticipantID, e.SubmissionID).Scan(&e.ID, &inserted)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == pqForeignKeyViolation {
			return false, ErrLeaderBoardEntryInvalid
		}
		return false, fmt.Errorf("failed to upsert leaderboard entry: %w", err)
	}
	return inserted, nil
}

func (r *postgresLeaderBoardRepository) FindEntryBySubmission(ctx context.Context, boardID, submissionID int) (*models.LeaderBoardEntry, error) {
	e := &models.LeaderBoardEntry{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, board_id, participant_id, submission_id
		FROM leaderboard_entries WHERE board_id = $1 AND submission_id = $2`,
		boardID, submissionID,
	).Scan(&e.ID, &e.BoardID, &e.ParticipantID, &e.SubmissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaderBoardEntryNotFound
		}
		return nil, fmt.Errorf("failed to find leaderboard entry: %w", err)
	}
	return e, nil
}

func (r *postgresLeaderBoardRepository) DeleteEntry(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leaderboard entry: %w", err)
	}
	return checkAffectedRows(result, ErrLeaderBoardEntryNotFound)
}

func (r *postgresLeaderBoardRepository) ListRows(ctx context.Context, boardID int) ([]models.LeaderBoardRow, error) {
	query := `
		SELECT e.id, e.submission_id, u.id, u.username, s.team_name
		FROM leaderboard_entries e
		JOIN participants p ON p.id = e.participant_id
		JOIN users u ON u.id = p.user_id
		JOIN submissions s ON s.id = e.submission_id
		WHERE e.board_id = $1
		ORDER BY e.id`
	rows, err := r.db.QueryContext(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard rows: %w", err)
	}
	defer rows.Close()

	result := make([]models.LeaderBoardRow, 0)
	for rows.Next() {
		var row models.LeaderBoardRow
		if err := rows.Scan(&row.EntryID, &row.SubmissionID, &row.UserID, &row.Username, &row.TeamName); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresLeaderBoardRepository) ListScoreGroups(ctx context.Context, phaseID int) ([]models.ScoreGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, phase_id, label, ordering FROM leaderboard_score_groups
		WHERE phase_id = $1 ORDER BY ordering, id`, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list score groups: %w", err)
	}
	defer rows.Close()

	groups := make([]models.ScoreGroup, 0)
	for rows.Next() {
		var g models.ScoreGroup
		if err := rows.Scan(&g.ID, &g.PhaseID, &g.Label, &g.Ordering); err != nil {
			return nil, fmt.Errorf("failed to scan score group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *postgresLeaderBoardRepository) ListScoreDefs(ctx context.Context, phaseID int) ([]models.ScoreDef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.group_id, d.key, d.label, d.sorting, d.numeric_format, d.ordering
		FROM leaderboard_score_defs d
		JOIN leaderboard_score_groups g ON g.id = d.group_id
		WHERE g.phase_id = $1
		ORDER BY g.ordering, g.id, d.ordering, d.id`, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list score definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]models.ScoreDef, 0)
	for rows.Next() {
		var d models.ScoreDef
		if err := rows.Scan(&d.ID, &d.GroupID, &d.Key, &d.Label, &d.Sorting, &d.NumericFormat, &d.Ordering); err != nil {
			return nil, fmt.Errorf("failed to scan score definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (r *postgresLeaderBoardRepository) ListScoresForBoard(ctx context.Context, boardID int) ([]models.SubmissionScore, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sc.submission_id, sc.score_def_id, sc.value
		FROM submission_scores sc
		JOIN leaderboard_entries e ON e.submission_id = sc.submission_id
		WHERE e.board_id = $1`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	scores := make([]models.SubmissionScore, 0)
	for rows.Next() {
		var s models.SubmissionScore
		if err := rows.Scan(&s.SubmissionID, &s.ScoreDefID, &s.Value); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *postgresLeaderBoardRepository) SaveScores(ctx context.Context, submissionID int, values map[string]float64) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT d.id, d.key
		FROM leaderboard_score_defs d
		JOIN leaderboard_score_groups g ON g.id = d.group_id
		JOIN submissions s ON s.phase_id = g.phase_id
		WHERE s.id = $1`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load score definitions: %w", err)
	}
	defIDs := make(map[string]int)
	for rows.Next() {
		var id int
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan score definition: %w", err)
		}
		defIDs[key] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var unknown []string
	for key, value := range values {
		defID, ok := defIDs[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO submission_scores (submission_id, score_def_id, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (submission_id, score_def_id) DO UPDATE SET value = EXCLUDED.value`,
			submissionID, defID, value,
		); err != nil {
			return nil, fmt.Errorf("failed to save score %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit scores: %w", err)
	}
	sort.Strings(unknown)
	return unknown, nil
}
