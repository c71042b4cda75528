package services

import (
	"testing"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *memDB
	queue       *fakeQueue
	broadcaster *fakeBroadcaster
	notifier    *fakeNotifier
	store       *fakeStore

	organizer   *models.User
	admin       *models.User
	player      *models.User
	competition *models.Competition
	phase       *models.Phase
}

// newFixture seeds an organizer, an admin, a player and a published
// competition with one active, non-blind phase.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{
		db:          db,
		queue:       newFakeQueue(),
		broadcaster: newFakeBroadcaster(),
		notifier:    &fakeNotifier{},
		store:       newFakeStore(),
	}
	f.organizer = db.addUser(models.User{Username: "org", Email: "org@example.com", OrganizerStatusUpdates: true})
	f.admin = db.addUser(models.User{Username: "admin", Email: "admin@example.com"})
	f.player = db.addUser(models.User{Username: "player", Email: "player@example.com", ParticipationStatusUpdates: true})
	f.competition = db.addCompetition(models.Competition{
		Title:           "Segmentation Challenge",
		CreatorID:       f.organizer.ID,
		AdminIDs:        []int{f.admin.ID},
		Published:       true,
		HasRegistration: true,
	})
	f.phase = db.addPhase(models.Phase{
		CompetitionID: f.competition.ID,
		PhaseNumber:   1,
		Label:         "Development",
		StartDate:     testNow.Add(-24 * time.Hour),
		ReferenceData: "ref/phase1.zip",
	})
	return f
}

func (f *fixture) approve(userID int) *models.Participant {
	return f.db.addParticipant(models.Participant{
		UserID:        userID,
		CompetitionID: f.competition.ID,
		Status:        models.ParticipantApproved,
	})
}

func (f *fixture) participants() ParticipantService {
	return NewParticipantService(fakeParticipantRepo{f.db}, fakeCompetitionRepo{f.db}, f.notifier)
}

func (f *fixture) submissions() SubmissionService {
	return NewSubmissionService(
		fakeSubmissionRepo{f.db},
		fakeParticipantRepo{f.db},
		fakeCompetitionRepo{f.db},
		fakeLeaderboardRepo{f.db},
		NewPhaseGate(fakePhaseRepo{f.db}, func() time.Time { return testNow }),
		f.store,
		f.queue,
		f.broadcaster,
		discardLogger(),
	)
}

func (f *fixture) leaderboard() LeaderboardService {
	return NewLeaderboardService(
		fakeLeaderboardRepo{f.db},
		fakeSubmissionRepo{f.db},
		fakeParticipantRepo{f.db},
		fakePhaseRepo{f.db},
		fakeCompetitionRepo{f.db},
		f.broadcaster,
		func() time.Time { return testNow },
	)
}

func (f *fixture) competitions() CompetitionService {
	return NewCompetitionService(fakeCompetitionRepo{f.db}, fakePhaseRepo{f.db}, f.store, f.queue, discardLogger())
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "unexpected error: %v", err)
}
