package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/competition-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToLeaderboardIsIdempotent(t *testing.T) {
	f := newFixture(t)
	participant := f.approve(f.player.ID)
	submission := f.db.addSubmission(models.Submission{ParticipantID: participant.ID, PhaseID: f.phase.ID, FileKey: "b1"})
	svc := f.leaderboard()
	ctx := context.Background()

	first, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.EntryID, second.EntryID)

	board := f.db.boardFor(f.phase.ID)
	require.NotNil(t, board)
	assert.Equal(t, 1, f.db.entryCount(board.ID))
	assert.Equal(t, 1, f.broadcaster.count(PhaseRoom(f.phase.ID)), "a no-op add does not publish")
}

func TestRemoveThenAddRestoresOneEntry(t *testing.T) {
	f := newFixture(t)
	participant := f.approve(f.player.ID)
	submission := f.db.addSubmission(models.Submission{ParticipantID: participant.ID, PhaseID: f.phase.ID, FileKey: "b1"})
	svc := f.leaderboard()
	ctx := context.Background()

	added, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.NoError(t, err)

	removedID, err := svc.RemoveFromLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, added.EntryID, removedID)
	board := f.db.boardFor(f.phase.ID)
	assert.Equal(t, 0, f.db.entryCount(board.ID))

	_, err = svc.RemoveFromLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.ErrorIs(t, err, ErrLeaderboardEntryNotFound)

	again, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.NoError(t, err)
	assert.True(t, again.Created)
	assert.Equal(t, 1, f.db.entryCount(board.ID))
	assert.Equal(t, 3, f.broadcaster.count(PhaseRoom(f.phase.ID)))
}

func TestAddToLeaderboardReplacesSubmission(t *testing.T) {
	f := newFixture(t)
	participant := f.approve(f.player.ID)
	s1 := f.db.addSubmission(models.Submission{ParticipantID: participant.ID, PhaseID: f.phase.ID, FileKey: "b1"})
	s2 := f.db.addSubmission(models.Submission{ParticipantID: participant.ID, PhaseID: f.phase.ID, FileKey: "b2"})
	svc := f.leaderboard()
	ctx := context.Background()

	first, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, s1.ID)
	require.NoError(t, err)
	second, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, s2.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.EntryID, second.EntryID)

	board := f.db.boardFor(f.phase.ID)
	assert.Equal(t, 1, f.db.entryCount(board.ID))
	assert.Equal(t, s2.ID, f.db.entries[first.EntryID].SubmissionID)

	_, err = svc.RemoveFromLeaderboard(ctx, f.player.ID, f.competition.ID, s1.ID)
	require.ErrorIs(t, err, ErrLeaderboardEntryNotFound, "the replaced submission is no longer on the board")
}

func TestBlindPhaseLocksLeaderboard(t *testing.T) {
	f := newFixture(t)
	blind := f.db.addPhase(models.Phase{
		CompetitionID: f.competition.ID, PhaseNumber: 2, StartDate: testNow.Add(-time.Hour), IsBlind: true,
	})
	participant := f.approve(f.player.ID)
	submission := f.db.addSubmission(models.Submission{ParticipantID: participant.ID, PhaseID: blind.ID, FileKey: "b1"})
	svc := f.leaderboard()
	ctx := context.Background()

	_, err := svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	requireKind(t, err, KindLeaderboardLocked)
	_, err = svc.RemoveFromLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	requireKind(t, err, KindLeaderboardLocked)

	_, err = svc.ComputeScores(ctx, f.competition.ID, blind.PhaseNumber)
	requireKind(t, err, KindForbidden)
	_, err = svc.ListEntries(ctx, f.competition.ID, blind.ID)
	requireKind(t, err, KindForbidden)
	assert.Nil(t, f.db.boardFor(blind.ID))
}

func TestLeaderboardChangePreconditions(t *testing.T) {
	f := newFixture(t)
	owner := f.approve(f.player.ID)
	other := f.db.addUser(models.User{Username: "other", Email: "other@example.com"})
	submission := f.db.addSubmission(models.Submission{ParticipantID: owner.ID, PhaseID: f.phase.ID, FileKey: "b1"})
	svc := f.leaderboard()
	ctx := context.Background()

	_, err := svc.AddToLeaderboard(ctx, other.ID, f.competition.ID, submission.ID)
	requireKind(t, err, KindPermissionDenied)

	f.approve(other.ID)
	_, err = svc.AddToLeaderboard(ctx, other.ID, f.competition.ID, submission.ID)
	requireKind(t, err, KindInvalidInput)

	_, err = svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, 31337)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	another := f.db.addCompetition(models.Competition{Title: "Another", CreatorID: f.organizer.ID})
	_, err = svc.AddToLeaderboard(ctx, f.player.ID, another.ID, submission.ID)
	requireKind(t, err, KindPermissionDenied)
	f.db.addParticipant(models.Participant{UserID: f.player.ID, CompetitionID: another.ID, Status: models.ParticipantApproved})
	_, err = svc.AddToLeaderboard(ctx, f.player.ID, another.ID, submission.ID)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	ended := testNow.Add(-time.Minute)
	f.db.phases[f.phase.ID].EndDate = &ended
	_, err = svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	requireKind(t, err, KindPhaseClosed)
}

func TestLeaderboardChangeHidesSubmissionsFromOutsiders(t *testing.T) {
	f := newFixture(t)
	owner := f.approve(f.player.ID)
	outsider := f.db.addUser(models.User{Username: "outsider", Email: "outsider@example.com"})
	submission := f.db.addSubmission(models.Submission{ParticipantID: owner.ID, PhaseID: f.phase.ID, FileKey: "b1"})
	svc := f.leaderboard()
	ctx := context.Background()

	for _, id := range []int{submission.ID, 31337} {
		_, err := svc.AddToLeaderboard(ctx, outsider.ID, f.competition.ID, id)
		requireKind(t, err, KindPermissionDenied)
		_, err = svc.RemoveFromLeaderboard(ctx, outsider.ID, f.competition.ID, id)
		requireKind(t, err, KindPermissionDenied)
	}
}

func TestComputeScoresRanksEntries(t *testing.T) {
	f := newFixture(t)
	svc := f.leaderboard()
	ctx := context.Background()

	f.db.scoreGroups = []models.ScoreGroup{{ID: 1, PhaseID: f.phase.ID, Label: "Results"}}
	f.db.scoreDefs = []models.ScoreDef{{ID: 11, GroupID: 1, Key: "dice", Label: "Dice", Sorting: models.SortDescending, NumericFormat: 2}}

	var subs []*models.Submission
	for i, name := range []string{"ann", "bob", "cid"} {
		u := f.db.addUser(models.User{Username: name, Email: name + "@example.com"})
		p := f.approve(u.ID)
		s := f.db.addSubmission(models.Submission{ParticipantID: p.ID, PhaseID: f.phase.ID, FileKey: name})
		subs = append(subs, s)
		_, err := svc.AddToLeaderboard(ctx, u.ID, f.competition.ID, s.ID)
		require.NoError(t, err, "entry %d", i)
	}
	f.db.scores[[2]int{subs[0].ID, 11}] = 0.5
	f.db.scores[[2]int{subs[1].ID, 11}] = 0.9

	groups, err := svc.ComputeScores(ctx, f.competition.ID, f.phase.PhaseNumber)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	rows := groups[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "bob", rows[0].Username)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "ann", rows[1].Username)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, "cid", rows[2].Username)
	assert.Equal(t, 0, rows[2].Rank)

	_, err = svc.ComputeScores(ctx, f.competition.ID, 99)
	require.ErrorIs(t, err, ErrPhaseNotFound)
	_, err = svc.ComputeScores(ctx, 99999, 1)
	require.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestComputeScoresWithoutBoard(t *testing.T) {
	f := newFixture(t)
	f.db.scoreGroups = []models.ScoreGroup{{ID: 1, PhaseID: f.phase.ID, Label: "Results"}}

	groups, err := f.leaderboard().ComputeScores(context.Background(), f.competition.ID, f.phase.PhaseNumber)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].Rows)
}

func TestListEntries(t *testing.T) {
	f := newFixture(t)
	svc := f.leaderboard()
	ctx := context.Background()

	rows, err := svc.ListEntries(ctx, f.competition.ID, f.phase.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	participant := f.approve(f.player.ID)
	submission := f.db.addSubmission(models.Submission{
		ParticipantID: participant.ID, PhaseID: f.phase.ID, FileKey: "b1",
		Metadata: models.SubmissionMetadata{TeamName: "Owls"},
	})
	_, err = svc.AddToLeaderboard(ctx, f.player.ID, f.competition.ID, submission.ID)
	require.NoError(t, err)

	rows, err = svc.ListEntries(ctx, f.competition.ID, f.phase.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "player", rows[0].Username)
	assert.Equal(t, "Owls", rows[0].TeamName)

	other := f.db.addCompetition(models.Competition{Title: "Other", CreatorID: f.organizer.ID})
	_, err = svc.ListEntries(ctx, other.ID, f.phase.ID)
	require.ErrorIs(t, err, ErrPhaseNotFound)
}
