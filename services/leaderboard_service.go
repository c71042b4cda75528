package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/ranking"
	"github.com/Dosada05/competition-system/realtime"
	"github.com/Dosada05/competition-system/repositories"
	"golang.org/x/sync/errgroup"
)

type AddResult struct {
	Created bool `json:"created"`
	EntryID int  `json:"entry_id"`
}

type LeaderboardService interface {
	AddToLeaderboard(ctx context.Context, userID, competitionID, submissionID int) (*AddResult, error)
	RemoveFromLeaderboard(ctx context.Context, userID, competitionID, submissionID int) (int, error)
	ComputeScores(ctx context.Context, competitionID, phaseNumber int) ([]ranking.Group, error)
	ListEntries(ctx context.Context, competitionID, phaseID int) ([]models.LeaderBoardRow, error)
}

type leaderboardService struct {
	repo            repositories.LeaderBoardRepository
	submissionRepo  repositories.SubmissionRepository
	participantRepo repositories.ParticipantRepository
	phaseRepo       repositories.PhaseRepository
	competitionRepo repositories.CompetitionRepository
	broadcaster     Broadcaster
	now             func() time.Time
}

func NewLeaderboardService(
	repo repositories.LeaderBoardRepository,
	submissionRepo repositories.SubmissionRepository,
	participantRepo repositories.ParticipantRepository,
	phaseRepo repositories.PhaseRepository,
	competitionRepo repositories.CompetitionRepository,
	broadcaster Broadcaster,
	now func() time.Time,
) LeaderboardService {
	return &leaderboardService{
		repo:            repo,
		submissionRepo:  submissionRepo,
		participantRepo: participantRepo,
		phaseRepo:       phaseRepo,
		competitionRepo: competitionRepo,
		broadcaster:     broadcaster,
		now:             nowOrDefault(now),
	}
}

type leaderboardChange struct {
	submission  *models.Submission
	phase       *models.Phase
	participant *models.Participant
}

// authorizeChange applies the shared preconditions of add and remove in order:
// approved participant, active phase, non-blind phase, submission owner.
// With a competition in the route, participation is checked before the
// submission is looked up so outsiders cannot tell which ids exist.
func (s *leaderboardService) authorizeChange(ctx context.Context, userID, competitionID, submissionID int) (*leaderboardChange, error) {
	var participant *models.Participant
	if competitionID != 0 {
		p, err := approvedParticipant(ctx, s.participantRepo, userID, competitionID)
		if err != nil {
			return nil, err
		}
		participant = p
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	phase, err := s.phaseRepo.GetByID(ctx, submission.PhaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load phase of submission %d: %w", submission.ID, err)
	}
	if competitionID != 0 && phase.CompetitionID != competitionID {
		return nil, ErrSubmissionNotFound
	}

	if participant == nil {
		participant, err = approvedParticipant(ctx, s.participantRepo, userID, phase.CompetitionID)
		if err != nil {
			return nil, err
		}
	}
	if !phase.IsActive(s.now()) {
		return nil, fmt.Errorf("%w: phase %d", ErrPhaseClosed, phase.ID)
	}
	if phase.IsBlind {
		return nil, fmt.Errorf("%w: phase %d is blind", ErrLeaderboardLocked, phase.ID)
	}
	if submission.ParticipantID != participant.ID {
		return nil, fmt.Errorf("%w: submission %d does not belong to the caller", ErrInvalidInput, submission.ID)
	}
	return &leaderboardChange{submission: submission, phase: phase, participant: participant}, nil
}

// AddToLeaderboard makes the submission the participant's official entry for
// its phase. An existing entry of the participant is pointed at this
// submission instead of being duplicated; Created reports whether a new entry
// row was inserted.
func (s *leaderboardService) AddToLeaderboard(ctx context.Context, userID, competitionID, submissionID int) (*AddResult, error) {
	change, err := s.authorizeChange(ctx, userID, competitionID, submissionID)
	if err != nil {
		return nil, err
	}

	board, err := s.repo.GetOrCreateBoard(ctx, change.phase.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	previous, err := s.repo.FindEntryBySubmission(ctx, board.ID, submissionID)
	if err != nil && !errors.Is(err, repositories.ErrLeaderBoardEntryNotFound) {
		return nil, fmt.Errorf("failed to look up leaderboard entry: %w", err)
	}

	entry := &models.LeaderBoardEntry{
		BoardID:       board.ID,
		ParticipantID: change.participant.ID,
		SubmissionID:  submissionID,
	}
	created, err := s.repo.UpsertEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to store leaderboard entry: %w", err)
	}

	switch {
	case created:
		metrics.LeaderboardChanges.WithLabelValues("added").Inc()
	case previous != nil:
		metrics.LeaderboardChanges.WithLabelValues("unchanged").Inc()
	default:
		metrics.LeaderboardChanges.WithLabelValues("replaced").Inc()
	}
	if previous == nil {
		s.publish(change.phase.ID, "added", entry.ID, submissionID)
	}
	return &AddResult{Created: created, EntryID: entry.ID}, nil
}

func (s *leaderboardService) RemoveFromLeaderboard(ctx context.Context, userID, competitionID, submissionID int) (int, error) {
	change, err := s.authorizeChange(ctx, userID, competitionID, submissionID)
	if err != nil {
		return 0, err
	}

	board, err := s.repo.FindBoardByPhase(ctx, change.phase.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderBoardNotFound) {
			return 0, ErrLeaderboardEntryNotFound
		}
		return 0, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	entry, err := s.repo.FindEntryBySubmission(ctx, board.ID, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderBoardEntryNotFound) {
			return 0, ErrLeaderboardEntryNotFound
		}
		return 0, fmt.Errorf("failed to look up leaderboard entry: %w", err)
	}

	if err := s.repo.DeleteEntry(ctx, entry.ID); err != nil {
		if errors.Is(err, repositories.ErrLeaderBoardEntryNotFound) {
			return 0, ErrLeaderboardEntryNotFound
		}
		return 0, fmt.Errorf("failed to delete leaderboard entry: %w", err)
	}

	metrics.LeaderboardChanges.WithLabelValues("removed").Inc()
	s.publish(change.phase.ID, "removed", entry.ID, submissionID)
	return entry.ID, nil
}

// ComputeScores returns the ranked score tables of a phase. Blind phases never
// expose scores.
func (s *leaderboardService) ComputeScores(ctx context.Context, competitionID, phaseNumber int) ([]ranking.Group, error) {
	if _, err := loadCompetition(ctx, s.competitionRepo, competitionID); err != nil {
		return nil, err
	}
	phase, err := s.phaseRepo.GetByNumber(ctx, competitionID, phaseNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrPhaseNotFound) {
			return nil, ErrPhaseNotFound
		}
		return nil, fmt.Errorf("failed to load phase: %w", err)
	}
	if phase.IsBlind {
		return nil, fmt.Errorf("%w: scores of blind phase %d are hidden", ErrForbidden, phase.ID)
	}

	var (
		groups []models.ScoreGroup
		defs   []models.ScoreDef
		rows   []models.LeaderBoardRow
		scores []models.SubmissionScore
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		groups, err = s.repo.ListScoreGroups(gCtx, phase.ID)
		return err
	})
	g.Go(func() (err error) {
		defs, err = s.repo.ListScoreDefs(gCtx, phase.ID)
		return err
	})
	g.Go(func() error {
		board, err := s.repo.FindBoardByPhase(gCtx, phase.ID)
		if errors.Is(err, repositories.ErrLeaderBoardNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rows, err = s.repo.ListRows(gCtx, board.ID); err != nil {
			return err
		}
		scores, err = s.repo.ListScoresForBoard(gCtx, board.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load leaderboard data: %w", err)
	}

	return ranking.Build(groups, defs, rows, scores), nil
}

func (s *leaderboardService) ListEntries(ctx context.Context, competitionID, phaseID int) ([]models.LeaderBoardRow, error) {
	phase, err := s.phaseRepo.GetByID(ctx, phaseID)
	if err != nil {
		if errors.Is(err, repositories.ErrPhaseNotFound) {
			return nil, ErrPhaseNotFound
		}
		return nil, fmt.Errorf("failed to load phase: %w", err)
	}
	if phase.CompetitionID != competitionID {
		return nil, ErrPhaseNotFound
	}
	if phase.IsBlind {
		return nil, fmt.Errorf("%w: leaderboard of blind phase %d is hidden", ErrForbidden, phase.ID)
	}

	board, err := s.repo.FindBoardByPhase(ctx, phase.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderBoardNotFound) {
			return []models.LeaderBoardRow{}, nil
		}
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	rows, err := s.repo.ListRows(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard entries: %w", err)
	}
	return rows, nil
}

func (s *leaderboardService) publish(phaseID int, action string, entryID, submissionID int) {
	room := PhaseRoom(phaseID)
	s.broadcaster.BroadcastToRoom(room, realtime.Message{
		Type:   realtime.TypeLeaderboardUpdated,
		RoomID: room,
		Payload: map[string]interface{}{
			"action":        action,
			"entry_id":      entryID,
			"submission_id": submissionID,
		},
	})
}
