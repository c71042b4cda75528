package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

type ParticipationResult struct {
	Participant *models.Participant `json:"participant"`
	Created     bool                `json:"created"`
}

type ParticipantStatusView struct {
	Status models.ParticipantStatus `json:"status"`
	Reason *string                  `json:"reason"`
}

type ParticipantService interface {
	RequestParticipation(ctx context.Context, userID, competitionID int) (*ParticipationResult, error)
	GetStatus(ctx context.Context, userID, competitionID int) (*ParticipantStatusView, error)
	SetStatus(ctx context.Context, actorID, competitionID, participantID int, status models.ParticipantStatus, reason *string) (*models.Participant, error)
	ListParticipants(ctx context.Context, actorID, competitionID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error)
}

type participantService struct {
	repo            repositories.ParticipantRepository
	competitionRepo repositories.CompetitionRepository
	notifier        Notifier
}

func NewParticipantService(
	repo repositories.ParticipantRepository,
	competitionRepo repositories.CompetitionRepository,
	notifier Notifier,
) ParticipantService {
	return &participantService{
		repo:            repo,
		competitionRepo: competitionRepo,
		notifier:        notifier,
	}
}

// RequestParticipation registers the user in the competition. Competitions
// without registration approve immediately. Repeated calls return the
// existing record untouched with Created == false.
func (s *participantService) RequestParticipation(ctx context.Context, userID, competitionID int) (*ParticipationResult, error) {
	competition, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return nil, err
	}

	status := models.ParticipantApproved
	if competition.HasRegistration {
		status = models.ParticipantPending
	}

	participant := &models.Participant{
		UserID:        userID,
		CompetitionID: competitionID,
		Status:        status,
	}
	created, err := s.repo.GetOrCreate(ctx, participant)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantCompetitionInvalid):
			return nil, ErrCompetitionNotFound
		case errors.Is(err, repositories.ErrParticipantUserInvalid):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}
	metrics.ParticipationRequests.WithLabelValues(string(participant.Status), strconv.FormatBool(created)).Inc()

	if created {
		if notices, ok := joinNotices[participant.Status]; ok {
			s.notifier.ParticipationChanged(competition, participant, notices)
		}
	}
	return &ParticipationResult{Participant: participant, Created: created}, nil
}

func (s *participantService) GetStatus(ctx context.Context, userID, competitionID int) (*ParticipantStatusView, error) {
	participant, err := s.repo.FindByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant status: %w", err)
	}
	return &ParticipantStatusView{Status: participant.Status, Reason: participant.Reason}, nil
}

func (s *participantService) SetStatus(ctx context.Context, actorID, competitionID, participantID int, status models.ParticipantStatus, reason *string) (*models.Participant, error) {
	competition, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return nil, err
	}
	if !competition.CanAdminister(actorID) {
		return nil, fmt.Errorf("%w: only the creator or an admin can change participant status", ErrPermissionDenied)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown participant status %q", ErrInvalidInput, status)
	}

	participant, err := s.repo.FindInCompetition(ctx, competitionID, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, participant.ID, status, reason); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to update participant status: %w", err)
	}
	participant.Status = status
	participant.Reason = reason

	if notices, ok := statusChangeNotices[status]; ok {
		s.notifier.ParticipationChanged(competition, participant, notices)
	}
	return participant, nil
}

func (s *participantService) ListParticipants(ctx context.Context, actorID, competitionID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error) {
	competition, err := loadCompetition(ctx, s.competitionRepo, competitionID)
	if err != nil {
		return nil, err
	}
	if !competition.CanAdminister(actorID) {
		return nil, fmt.Errorf("%w: only the creator or an admin can list participants", ErrPermissionDenied)
	}
	if statusFilter != nil && !statusFilter.Valid() {
		return nil, fmt.Errorf("%w: unknown participant status %q", ErrInvalidInput, *statusFilter)
	}

	participants, err := s.repo.ListByCompetition(ctx, competitionID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		populateUserDetails(p.User)
	}
	return participants, nil
}
