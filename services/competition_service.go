package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Dosada05/competition-system/jobs"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/storage"
)

type ListCompetitionsInput struct {
	Search string
	// Mine lists the caller's own competitions, published or not.
	Mine   bool
	Limit  int
	Offset int
}

// CreationArgs are the arguments of a create_competition job.
type CreationArgs struct {
	BundleID int    `json:"bundle_id"`
	BlobKey  string `json:"blob_key"`
	OwnerID  int    `json:"owner_id"`
}

type CreationStatus struct {
	Status models.JobStatus `json:"status"`
	ID     *int             `json:"id,omitempty"`
	Error  *string          `json:"error,omitempty"`
}

type CompetitionService interface {
	Get(ctx context.Context, actorID, id int) (*models.Competition, error)
	List(ctx context.Context, actorID int, input ListCompetitionsInput) ([]models.Competition, error)
	ListPhases(ctx context.Context, actorID, id int) ([]models.Phase, error)
	Publish(ctx context.Context, actorID, id int) error
	Unpublish(ctx context.Context, actorID, id int) error
	Delete(ctx context.Context, actorID, id int) error
	UpdateInfo(ctx context.Context, actorID, id int, title, description string) (*models.Competition, error)
	CreateBundleUploadGrant(ctx context.Context, userID int) (*storage.UploadGrant, error)
	StartCreation(ctx context.Context, userID int, blobID string) (string, error)
	CreationStatus(ctx context.Context, userID int, token string) (*CreationStatus, error)
}

type competitionService struct {
	repo      repositories.CompetitionRepository
	phaseRepo repositories.PhaseRepository
	store     storage.BlobStore
	queue     JobQueue
	logger    *slog.Logger
}

func NewCompetitionService(
	repo repositories.CompetitionRepository,
	phaseRepo repositories.PhaseRepository,
	store storage.BlobStore,
	queue JobQueue,
	logger *slog.Logger,
) CompetitionService {
	return &competitionService{
		repo:      repo,
		phaseRepo: phaseRepo,
		store:     store,
		queue:     queue,
		logger:    logger,
	}
}

// visible loads a competition the actor may see: published ones for everyone,
// unpublished ones only for their creator and admins.
func (s *competitionService) visible(ctx context.Context, actorID, id int) (*models.Competition, error) {
	competition, err := loadCompetition(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !competition.Published && !competition.CanAdminister(actorID) {
		return nil, ErrCompetitionNotFound
	}
	return competition, nil
}

func (s *competitionService) Get(ctx context.Context, actorID, id int) (*models.Competition, error) {
	competition, err := s.visible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	phases, err := s.phaseRepo.ListByCompetition(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	competition.Phases = phases
	populateCompetitionImageURL(competition, s.store)
	return competition, nil
}

func (s *competitionService) List(ctx context.Context, actorID int, input ListCompetitionsInput) ([]models.Competition, error) {
	filter := repositories.ListCompetitionsFilter{
		Search: strings.TrimSpace(input.Search),
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if input.Mine {
		if actorID <= 0 {
			return nil, fmt.Errorf("%w: sign in to list your competitions", ErrPermissionDenied)
		}
		filter.CreatorID = &actorID
	} else {
		filter.PublishedOnly = true
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	competitions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	for i := range competitions {
		populateCompetitionImageURL(&competitions[i], s.store)
	}
	return competitions, nil
}

func (s *competitionService) ListPhases(ctx context.Context, actorID, id int) ([]models.Phase, error) {
	if _, err := s.visible(ctx, actorID, id); err != nil {
		return nil, err
	}
	phases, err := s.phaseRepo.ListByCompetition(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	return phases, nil
}

// Publish requires every phase to carry reference data.
func (s *competitionService) Publish(ctx context.Context, actorID, id int) error {
	competition, err := loadCompetition(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if !competition.CanAdminister(actorID) {
		return fmt.Errorf("%w: only the creator or an admin can publish", ErrPermissionDenied)
	}
	missing, err := s.phaseRepo.CountMissingReferenceData(ctx, id)
	if err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d phase(s) have no reference data", ErrValidationFailed, missing)
	}
	return s.setPublished(ctx, id, true)
}

func (s *competitionService) Unpublish(ctx context.Context, actorID, id int) error {
	competition, err := loadCompetition(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if !competition.IsCreator(actorID) {
		return fmt.Errorf("%w: only the creator can unpublish", ErrPermissionDenied)
	}
	return s.setPublished(ctx, id, false)
}

func (s *competitionService) setPublished(ctx context.Context, id int, published bool) error {
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return fmt.Errorf("failed to update competition: %w", err)
	}
	return nil
}

func (s *competitionService) Delete(ctx context.Context, actorID, id int) error {
	competition, err := loadCompetition(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if !competition.IsCreator(actorID) {
		return fmt.Errorf("%w: only the creator can delete a competition", ErrPermissionDenied)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return fmt.Errorf("failed to delete competition: %w", err)
	}

	if key := derefString(competition.ImageKey); key != "" {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete competition image", slog.Int("competition_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *competitionService) UpdateInfo(ctx context.Context, actorID, id int, title, description string) (*models.Competition, error) {
	competition, err := loadCompetition(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !competition.CanAdminister(actorID) {
		return nil, fmt.Errorf("%w: only the creator or an admin can edit a competition", ErrPermissionDenied)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	if err := s.repo.UpdateInfo(ctx, id, title, description); err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to update competition: %w", err)
	}
	competition.Title = title
	competition.Description = description
	populateCompetitionImageURL(competition, s.store)
	return competition, nil
}

func (s *competitionService) CreateBundleUploadGrant(ctx context.Context, userID int) (*storage.UploadGrant, error) {
	grant, err := s.store.PresignUpload(ctx, storage.CompetitionUploadPrefix(userID), ".zip", "application/zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload grant: %w", err)
	}
	return grant, nil
}

// StartCreation registers an uploaded bundle and queues the job that builds a
// competition from it. The returned token is used to poll CreationStatus.
func (s *competitionService) StartCreation(ctx context.Context, userID int, blobID string) (string, error) {
	blobID = strings.TrimSpace(blobID)
	if blobID == "" {
		return "", fmt.Errorf("%w: upload id is required", ErrInvalidInput)
	}
	if !storage.HasPrefix(blobID, storage.CompetitionUploadPrefix(userID)) {
		return "", fmt.Errorf("%w: upload id was not issued to this user", ErrInvalidInput)
	}
	exists, err := s.store.Exists(ctx, blobID)
	if err != nil {
		return "", fmt.Errorf("failed to check uploaded bundle: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("%w: bundle has not been uploaded", ErrInvalidInput)
	}

	bundle := &models.CompetitionDefBundle{OwnerID: userID, BlobKey: blobID}
	if err := s.repo.CreateDefBundle(ctx, bundle); err != nil {
		if errors.Is(err, repositories.ErrBundleOwnerInvalid) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to register bundle: %w", err)
	}

	job, err := s.queue.Submit(ctx, models.JobCreateCompetition, CreationArgs{
		BundleID: bundle.ID,
		BlobKey:  bundle.BlobKey,
		OwnerID:  userID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to queue competition creation: %w", err)
	}
	return strconv.Itoa(job.ID), nil
}

func (s *competitionService) CreationStatus(ctx context.Context, userID int, token string) (*CreationStatus, error) {
	jobID, err := strconv.Atoi(token)
	if err != nil || jobID <= 0 {
		return nil, ErrJobNotFound
	}
	job, err := s.queue.Status(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	// Tokens of other users and other job kinds look like unknown tokens.
	var args CreationArgs
	if job.Kind != models.JobCreateCompetition || json.Unmarshal(job.Args, &args) != nil || args.OwnerID != userID {
		return nil, ErrJobNotFound
	}

	status := &CreationStatus{Status: job.Status}
	info, err := job.DecodeResultInfo()
	if err != nil {
		s.logger.WarnContext(ctx, "undecodable creation result", slog.Int("job_id", job.ID), slog.Any("error", err))
		return status, nil
	}
	if job.Status == models.JobFinished {
		status.ID = info.CompetitionID
	}
	if job.Status == models.JobFailed {
		status.Error = info.Error
	}
	return status, nil
}
