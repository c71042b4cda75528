package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
)

// PhaseGate decides whether a competition phase currently accepts submissions.
type PhaseGate struct {
	phases repositories.PhaseRepository
	now    func() time.Time
}

func NewPhaseGate(phases repositories.PhaseRepository, now func() time.Time) *PhaseGate {
	return &PhaseGate{phases: phases, now: nowOrDefault(now)}
}

func (g *PhaseGate) SelectOpenPhase(ctx context.Context, competition *models.Competition, requestedPhaseID int) (*models.Phase, error) {
	phases, err := g.phases.ListByCompetition(ctx, competition.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	return selectOpenPhase(phases, competition, requestedPhaseID, g.now())
}

func selectOpenPhase(phases []models.Phase, competition *models.Competition, requestedPhaseID int, now time.Time) (*models.Phase, error) {
	var open *models.Phase
	for i := range phases {
		if phases[i].ID == requestedPhaseID && phases[i].IsActive(now) {
			open = &phases[i]
			break
		}
	}
	if open == nil {
		return nil, fmt.Errorf("%w: phase %d", ErrPhaseClosed, requestedPhaseID)
	}
	if open.AutoMigration && !open.IsMigrated && !competition.IsMigratingDelayed {
		return nil, fmt.Errorf("%w: phase %d", ErrMigrationInProgress, open.ID)
	}
	return open, nil
}
