package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/storage"
)

// JobQueue submits work to the asynchronous workers and reports on it.
type JobQueue interface {
	Submit(ctx context.Context, kind models.JobKind, args interface{}) (*models.Job, error)
	Status(ctx context.Context, id int) (*models.Job, error)
}

// Broadcaster pushes a message to everyone listening on a realtime room.
type Broadcaster interface {
	BroadcastToRoom(room string, message interface{})
}

// PhaseRoom is the realtime room carrying leaderboard updates for a phase.
func PhaseRoom(phaseID int) string {
	return fmt.Sprintf("phase:%d", phaseID)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nowOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func loadCompetition(ctx context.Context, repo repositories.CompetitionRepository, id int) (*models.Competition, error) {
	competition, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to load competition %d: %w", id, err)
	}
	return competition, nil
}

// approvedParticipant returns the caller's participant record, or
// ErrPermissionDenied when there is none or it is not approved.
func approvedParticipant(ctx context.Context, repo repositories.ParticipantRepository, userID, competitionID int) (*models.Participant, error) {
	participant, err := repo.FindByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, fmt.Errorf("%w: not a participant of this competition", ErrPermissionDenied)
		}
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	if !participant.IsApproved() {
		return nil, fmt.Errorf("%w: participation is %s", ErrPermissionDenied, participant.Status)
	}
	return participant, nil
}

func populateCompetitionImageURL(c *models.Competition, store storage.BlobStore) {
	if c == nil || store == nil || c.ImageKey == nil || *c.ImageKey == "" {
		return
	}
	if url := store.GetPublicURL(*c.ImageKey); url != "" {
		c.ImageURL = &url
	}
}

func populateUserDetails(user *models.User) {
	if user != nil {
		user.PasswordHash = ""
	}
}
