package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/realtime"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/storage"
	"github.com/Dosada05/competition-system/utils"
)

type SubmitInput struct {
	PhaseID  int                       `json:"phase_id"`
	BlobID   string                    `json:"id"`
	Metadata models.SubmissionMetadata `json:"metadata"`
}

// EvaluationArgs are the arguments of an evaluate_submission job.
type EvaluationArgs struct {
	SubmissionID  int  `json:"submission_id"`
	IsScoringOnly bool `json:"is_scoring_only"`
}

type SubmissionService interface {
	Submit(ctx context.Context, userID, competitionID int, input SubmitInput) (*models.Submission, error)
	CreateUploadGrant(ctx context.Context, userID, competitionID int) (*storage.UploadGrant, error)
	GetSubmission(ctx context.Context, userID, competitionID, submissionID int) (*models.Submission, error)
	ListMySubmissions(ctx context.Context, userID, competitionID int, phaseID *int) ([]*models.Submission, error)
	HandleEvaluationResult(ctx context.Context, job *models.Job, info models.JobResultInfo) error
}

type submissionService struct {
	repo            repositories.SubmissionRepository
	participantRepo repositories.ParticipantRepository
	competitionRepo repositories.CompetitionRepository
	leaderboardRepo repositories.LeaderBoardRepository
	gate            *PhaseGate
	store           storage.BlobStore
	queue           JobQueue
	broadcaster     Broadcaster
	logger          *slog.Logger
}

func NewSubmissionService(
	repo repositories.SubmissionRepository,
	participantRepo repositories.ParticipantRepository,
	competitionRepo repositories.CompetitionRepository,
	leaderboardRepo repositories.LeaderBoardRepository,
	gate *PhaseGate,
	store storage.BlobStore,
	queue JobQueue,
	broadcaster Broadcaster,
	logger *slog.Logger,
) SubmissionService {
	return &submissionService{
		repo:            repo,
		participantRepo: participantRepo,
		competitionRepo: competitionRepo,
		leaderboardRepo: leaderboardRepo,
		gate:            gate,
		store:           store,
		queue:           queue,
		broadcaster:     broadcaster,
		logger:          logger,
	}
}

// Submit records a new entry and hands it to the evaluation workers. Checks run
// in a fixed order and stop at the first failure: approved participant, open
// phase, then artifact id.
func (s *submissionService) Submit(ctx context.Context, userID, competitionID int, input SubmitInput) (*models.Submission, error) {
	submission, err := s.submit(ctx, userID, competitionID, input)
	if err != nil {
		metrics.SubmissionsRejected.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}
	metrics.SubmissionsAccepted.Inc()
	return submission, nil
}

func (s *submissionService) submit(ctx context.Context, userID, competitionID int, input SubmitInput) (*models.Submission, error) {
	competition, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return nil, err
	}

	participant, err := approvedParticipant(ctx, s.participantRepo, userID, competitionID)
	if err != nil {
		return nil, err
	}

	phase, err := s.gate.SelectOpenPhase(ctx, competition, input.PhaseID)
	if err != nil {
		return nil, err
	}

	blobID := strings.TrimSpace(input.BlobID)
	if blobID == "" {
		return nil, fmt.Errorf("%w: upload id is required", ErrInvalidInput)
	}

	submission := &models.Submission{
		ParticipantID: participant.ID,
		PhaseID:       phase.ID,
		FileKey:       blobID,
		Status:        models.SubmissionSubmitted,
		Metadata:      utils.EscapeMetadata(input.Metadata),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	// A queue failure keeps the submission but marks it failed, since no result will arrive.
	args := EvaluationArgs{SubmissionID: submission.ID, IsScoringOnly: phase.IsScoringOnly}
	if _, err := s.queue.Submit(ctx, models.JobEvaluateSubmission, args); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue submission evaluation",
			slog.Int("submission_id", submission.ID), slog.Any("error", err))
		if err := s.repo.UpdateStatus(ctx, submission.ID, models.SubmissionFailed); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark unqueued submission failed",
				slog.Int("submission_id", submission.ID), slog.Any("error", err))
		} else {
			submission.Status = models.SubmissionFailed
		}
	}
	return submission, nil
}

func (s *submissionService) CreateUploadGrant(ctx context.Context, userID, competitionID int) (*storage.UploadGrant, error) {
	if _, err := loadCompetition(ctx, s.competitionRepo, competitionID); err != nil {
		return nil, err
	}
	if _, err := approvedParticipant(ctx, s.participantRepo, userID, competitionID); err != nil {
		return nil, err
	}
	grant, err := s.store.PresignUpload(ctx, storage.SubmissionPrefix(competitionID, userID), ".zip", "application/zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload grant: %w", err)
	}
	return grant, nil
}

// GetSubmission is visible to its owner and to the competition's creator and admins.
func (s *submissionService) GetSubmission(ctx context.Context, userID, competitionID, submissionID int) (*models.Submission, error) {
	competition, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return nil, err
	}
	submission, err := s.repo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	participant, err := s.participantRepo.FindByID(ctx, submission.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission owner: %w", err)
	}
	if participant.CompetitionID != competitionID {
		return nil, ErrSubmissionNotFound
	}
	if participant.UserID != userID && !competition.CanAdminister(userID) {
		return nil, fmt.Errorf("%w: not the owner of this submission", ErrPermissionDenied)
	}
	return submission, nil
}

func (s *submissionService) ListMySubmissions(ctx context.Context, userID, competitionID int, phaseID *int) ([]*models.Submission, error) {
	participant, err := s.participantRepo.FindByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return []*models.Submission{}, nil
		}
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	submissions, err := s.repo.ListByParticipant(ctx, participant.ID, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// HandleEvaluationResult mirrors an evaluate_submission job onto its submission.
func (s *submissionService) HandleEvaluationResult(ctx context.Context, job *models.Job, info models.JobResultInfo) error {
	var args EvaluationArgs
	if err := json.Unmarshal(job.Args, &args); err != nil || args.SubmissionID <= 0 {
		s.logger.WarnContext(ctx, "evaluation job without submission id", slog.Int("job_id", job.ID))
		return nil
	}

	submission, err := s.repo.GetByID(ctx, args.SubmissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			s.logger.WarnContext(ctx, "evaluation result for deleted submission", slog.Int("submission_id", args.SubmissionID))
			return nil
		}
		return err
	}
	if submission.Status.Terminal() {
		s.logger.InfoContext(ctx, "ignoring evaluation result for settled submission",
			slog.Int("submission_id", submission.ID), slog.String("status", string(submission.Status)),
			slog.String("job_status", string(job.Status)))
		return nil
	}

	var status models.SubmissionStatus
	switch job.Status {
	case models.JobRunning:
		status = models.SubmissionRunning
	case models.JobFailed:
		status = models.SubmissionFailed
		s.logger.WarnContext(ctx, "submission evaluation failed",
			slog.Int("submission_id", submission.ID), slog.String("error", derefString(info.Error)))
	case models.JobFinished:
		status = models.SubmissionFinished
		unknown, err := s.leaderboardRepo.SaveScores(ctx, submission.ID, info.Scores)
		if err != nil {
			return fmt.Errorf("failed to save scores for submission %d: %w", submission.ID, err)
		}
		if len(unknown) > 0 {
			s.logger.WarnContext(ctx, "evaluation reported unknown score keys",
				slog.Int("submission_id", submission.ID), slog.Any("keys", unknown))
		}
	default:
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, submission.ID, status); err != nil {
		switch {
		case errors.Is(err, repositories.ErrSubmissionNotFound):
			s.logger.WarnContext(ctx, "evaluation result for deleted submission", slog.Int("submission_id", submission.ID))
			return nil
		case errors.Is(err, repositories.ErrSubmissionStatusFinal):
			return nil
		}
		return err
	}

	if status != models.SubmissionFinished {
		return nil
	}
	phase, err := s.gate.phases.GetByID(ctx, submission.PhaseID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load phase for score broadcast",
			slog.Int("phase_id", submission.PhaseID), slog.Any("error", err))
		return nil
	}
	// Blind phases keep scores hidden from participants, live updates included.
	if phase.IsBlind {
		return nil
	}
	room := PhaseRoom(submission.PhaseID)
	s.broadcaster.BroadcastToRoom(room, realtime.Message{
		Type:    realtime.TypeLeaderboardUpdated,
		RoomID:  room,
		Payload: map[string]interface{}{"submission_id": submission.ID, "action": "scored"},
	})
	return nil
}
