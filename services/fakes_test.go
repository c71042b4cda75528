package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/competition-system/jobs"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/Dosada05/competition-system/storage"
)

// memDB backs every fake repository so services see one consistent store.
type memDB struct {
	mu sync.Mutex

	nextID int

	users        map[int]*models.User
	competitions map[int]*models.Competition
	bundles      map[int]*models.CompetitionDefBundle
	phases       map[int]*models.Phase
	participants map[int]*models.Participant
	submissions  map[int]*models.Submission
	boards       map[int]*models.LeaderBoard
	entries      map[int]*models.LeaderBoardEntry
	scoreGroups  []models.ScoreGroup
	scoreDefs    []models.ScoreDef
	scores       map[[2]int]float64
}

func newMemDB() *memDB {
	return &memDB{
		nextID:       100,
		users:        map[int]*models.User{},
		competitions: map[int]*models.Competition{},
		bundles:      map[int]*models.CompetitionDefBundle{},
		phases:       map[int]*models.Phase{},
		participants: map[int]*models.Participant{},
		submissions:  map[int]*models.Submission{},
		boards:       map[int]*models.LeaderBoard{},
		entries:      map[int]*models.LeaderBoardEntry{},
		scores:       map[[2]int]float64{},
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func (db *memDB) addUser(u models.User) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID == 0 {
		u.ID = db.id()
	}
	db.users[u.ID] = &u
	return &u
}

func (db *memDB) addCompetition(c models.Competition) *models.Competition {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID == 0 {
		c.ID = db.id()
	}
	db.competitions[c.ID] = &c
	return &c
}

func (db *memDB) addPhase(p models.Phase) *models.Phase {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == 0 {
		p.ID = db.id()
	}
	db.phases[p.ID] = &p
	return &p
}

func (db *memDB) addParticipant(p models.Participant) *models.Participant {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == 0 {
		p.ID = db.id()
	}
	db.participants[p.ID] = &p
	return &p
}

func (db *memDB) addSubmission(s models.Submission) *models.Submission {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == 0 {
		s.ID = db.id()
	}
	if s.Status == "" {
		s.Status = models.SubmissionSubmitted
	}
	db.submissions[s.ID] = &s
	return &s
}

func (db *memDB) entryCount(boardID int) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, e := range db.entries {
		if e.BoardID == boardID {
			n++
		}
	}
	return n
}

func (db *memDB) boardFor(phaseID int) *models.LeaderBoard {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, b := range db.boards {
		if b.PhaseID == phaseID {
			return b
		}
	}
	return nil
}

type fakeUserRepo struct{ db *memDB }

func (r fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Username == u.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	u.ID = r.db.id()
	u.CreatedAt = time.Now()
	cp := *u
	r.db.users[u.ID] = &cp
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeCompetitionRepo struct{ db *memDB }

func (r fakeCompetitionRepo) Create(_ context.Context, c *models.Competition) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.id()
	cp := *c
	r.db.competitions[c.ID] = &cp
	return nil
}

func (r fakeCompetitionRepo) GetByID(_ context.Context, id int) (*models.Competition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeCompetitionRepo) List(_ context.Context, f repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Competition
	for _, c := range r.db.competitions {
		if f.PublishedOnly && !c.Published {
			continue
		}
		if f.CreatorID != nil && c.CreatorID != *f.CreatorID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeCompetitionRepo) UpdateInfo(_ context.Context, id int, title, description string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.Title, c.Description = title, description
	return nil
}

func (r fakeCompetitionRepo) SetPublished(_ context.Context, id int, published bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.Published = published
	return nil
}

func (r fakeCompetitionRepo) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.competitions[id]; !ok {
		return repositories.ErrCompetitionNotFound
	}
	delete(r.db.competitions, id)
	for pid, p := range r.db.phases {
		if p.CompetitionID == id {
			delete(r.db.phases, pid)
		}
	}
	return nil
}

func (r fakeCompetitionRepo) CreateDefBundle(_ context.Context, b *models.CompetitionDefBundle) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[b.OwnerID]; !ok {
		return repositories.ErrBundleOwnerInvalid
	}
	b.ID = r.db.id()
	cp := *b
	r.db.bundles[b.ID] = &cp
	return nil
}

type fakePhaseRepo struct{ db *memDB }

func (r fakePhaseRepo) Create(_ context.Context, p *models.Phase) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.id()
	cp := *p
	r.db.phases[p.ID] = &cp
	return nil
}

func (r fakePhaseRepo) GetByID(_ context.Context, id int) (*models.Phase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.phases[id]
	if !ok {
		return nil, repositories.ErrPhaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (r fakePhaseRepo) GetByNumber(_ context.Context, competitionID, phaseNumber int) (*models.Phase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.phases {
		if p.CompetitionID == competitionID && p.PhaseNumber == phaseNumber {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPhaseNotFound
}

func (r fakePhaseRepo) ListByCompetition(_ context.Context, competitionID int) ([]models.Phase, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Phase{}
	for _, p := range r.db.phases {
		if p.CompetitionID == competitionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out, nil
}

func (r fakePhaseRepo) CountMissingReferenceData(ctx context.Context, competitionID int) (int, error) {
	phases, _ := r.ListByCompetition(ctx, competitionID)
	n := 0
	for i := range phases {
		if !phases[i].HasReferenceData() {
			n++
		}
	}
	return n, nil
}

type fakeParticipantRepo struct{ db *memDB }

func (r fakeParticipantRepo) GetOrCreate(_ context.Context, p *models.Participant) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.competitions[p.CompetitionID]; !ok {
		return false, repositories.ErrParticipantCompetitionInvalid
	}
	for _, existing := range r.db.participants {
		if existing.UserID == p.UserID && existing.CompetitionID == p.CompetitionID {
			*p = *existing
			return false, nil
		}
	}
	p.ID = r.db.id()
	p.CreatedAt = time.Now()
	cp := *p
	r.db.participants[p.ID] = &cp
	return true, nil
}

func (r fakeParticipantRepo) UpdateStatus(_ context.Context, id int, status models.ParticipantStatus, reason *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status, p.Reason = status, reason
	return nil
}

func (r fakeParticipantRepo) FindByID(_ context.Context, id int) (*models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r fakeParticipantRepo) FindInCompetition(ctx context.Context, competitionID, id int) (*models.Participant, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CompetitionID != competitionID {
		return nil, repositories.ErrParticipantNotFound
	}
	return p, nil
}

func (r fakeParticipantRepo) FindByUserAndCompetition(_ context.Context, userID, competitionID int) (*models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.participants {
		if p.UserID == userID && p.CompetitionID == competitionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r fakeParticipantRepo) ListByCompetition(_ context.Context, competitionID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []*models.Participant{}
	for _, p := range r.db.participants {
		if p.CompetitionID != competitionID || (statusFilter != nil && p.Status != *statusFilter) {
			continue
		}
		cp := *p
		if u, ok := r.db.users[p.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeSubmissionRepo struct{ db *memDB }

func (r fakeSubmissionRepo) Create(_ context.Context, s *models.Submission) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.ID = r.db.id()
	if s.Status == "" {
		s.Status = models.SubmissionSubmitted
	}
	s.SubmittedAt = time.Now()
	cp := *s
	r.db.submissions[s.ID] = &cp
	return nil
}

func (r fakeSubmissionRepo) GetByID(_ context.Context, id int) (*models.Submission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r fakeSubmissionRepo) ListByParticipant(_ context.Context, participantID int, phaseID *int) ([]*models.Submission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []*models.Submission{}
	for _, s := range r.db.submissions {
		if s.ParticipantID != participantID || (phaseID != nil && s.PhaseID != *phaseID) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeSubmissionRepo) UpdateStatus(_ context.Context, id int, status models.SubmissionStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.submissions[id]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	if s.Status.Terminal() {
		return repositories.ErrSubmissionStatusFinal
	}
	s.Status = status
	return nil
}

type fakeLeaderboardRepo struct{ db *memDB }

func (r fakeLeaderboardRepo) GetOrCreateBoard(_ context.Context, phaseID int) (*models.LeaderBoard, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.boards {
		if b.PhaseID == phaseID {
			cp := *b
			return &cp, nil
		}
	}
	b := &models.LeaderBoard{ID: r.db.id(), PhaseID: phaseID}
	r.db.boards[b.ID] = b
	cp := *b
	return &cp, nil
}

func (r fakeLeaderboardRepo) FindBoardByPhase(_ context.Context, phaseID int) (*models.LeaderBoard, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.boards {
		if b.PhaseID == phaseID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repositories.ErrLeaderBoardNotFound
}

func (r fakeLeaderboardRepo) UpsertEntry(_ context.Context, e *models.LeaderBoardEntry) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.entries {
		if existing.BoardID == e.BoardID && existing.ParticipantID == e.ParticipantID {
			existing.SubmissionID = e.SubmissionID
			e.ID = existing.ID
			return false, nil
		}
	}
	e.ID = r.db.id()
	cp := *e
	r.db.entries[e.ID] = &cp
	return true, nil
}

func (r fakeLeaderboardRepo) FindEntryBySubmission(_ context.Context, boardID, submissionID int) (*models.LeaderBoardEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.entries {
		if e.BoardID == boardID && e.SubmissionID == submissionID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrLeaderBoardEntryNotFound
}

func (r fakeLeaderboardRepo) DeleteEntry(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.entries[id]; !ok {
		return repositories.ErrLeaderBoardEntryNotFound
	}
	delete(r.db.entries, id)
	return nil
}

func (r fakeLeaderboardRepo) ListRows(_ context.Context, boardID int) ([]models.LeaderBoardRow, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rows := []models.LeaderBoardRow{}
	for _, e := range r.db.entries {
		if e.BoardID != boardID {
			continue
		}
		row := models.LeaderBoardRow{EntryID: e.ID, SubmissionID: e.SubmissionID}
		if p, ok := r.db.participants[e.ParticipantID]; ok {
			row.UserID = p.UserID
			if u, ok := r.db.users[p.UserID]; ok {
				row.Username = u.Username
			}
		}
		if s, ok := r.db.submissions[e.SubmissionID]; ok {
			row.TeamName = s.Metadata.TeamName
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EntryID < rows[j].EntryID })
	return rows, nil
}

func (r fakeLeaderboardRepo) ListScoreGroups(_ context.Context, phaseID int) ([]models.ScoreGroup, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.ScoreGroup
	for _, g := range r.db.scoreGroups {
		if g.PhaseID == phaseID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r fakeLeaderboardRepo) ListScoreDefs(_ context.Context, phaseID int) ([]models.ScoreDef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	groups := map[int]bool{}
	for _, g := range r.db.scoreGroups {
		if g.PhaseID == phaseID {
			groups[g.ID] = true
		}
	}
	var out []models.ScoreDef
	for _, d := range r.db.scoreDefs {
		if groups[d.GroupID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r fakeLeaderboardRepo) ListScoresForBoard(_ context.Context, boardID int) ([]models.SubmissionScore, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	onBoard := map[int]bool{}
	for _, e := range r.db.entries {
		if e.BoardID == boardID {
			onBoard[e.SubmissionID] = true
		}
	}
	var out []models.SubmissionScore
	for k, v := range r.db.scores {
		if onBoard[k[0]] {
			out = append(out, models.SubmissionScore{SubmissionID: k[0], ScoreDefID: k[1], Value: v})
		}
	}
	return out, nil
}

func (r fakeLeaderboardRepo) SaveScores(_ context.Context, submissionID int, values map[string]float64) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.submissions[submissionID]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	groups := map[int]bool{}
	for _, g := range r.db.scoreGroups {
		if g.PhaseID == s.PhaseID {
			groups[g.ID] = true
		}
	}
	var unknown []string
	for key, v := range values {
		found := false
		for _, d := range r.db.scoreDefs {
			if groups[d.GroupID] && d.Key == key {
				r.db.scores[[2]int{submissionID, d.ID}] = v
				found = true
			}
		}
		if !found {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

type fakeQueue struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]*models.Job
	err    error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: map[int]*models.Job{}}
}

func (q *fakeQueue) Submit(_ context.Context, kind models.JobKind, args interface{}) (*models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	q.nextID++
	job := &models.Job{ID: q.nextID, Kind: kind, Args: raw, Status: models.JobPending}
	q.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

func (q *fakeQueue) Status(_ context.Context, id int) (*models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (q *fakeQueue) byKind(kind models.JobKind) []*models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*models.Job
	for i := 1; i <= q.nextID; i++ {
		if j, ok := q.jobs[i]; ok && j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages map[string][]interface{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{messages: map[string][]interface{}{}}
}

func (b *fakeBroadcaster) BroadcastToRoom(room string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[room] = append(b.messages[room], message)
}

func (b *fakeBroadcaster) count(room string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[room])
}

type notifyCall struct {
	competitionID int
	participantID int
	status        models.ParticipantStatus
	notices       NoticePair
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) ParticipationChanged(c *models.Competition, p *models.Participant, notices NoticePair) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{competitionID: c.ID, participantID: p.ID, status: p.Status, notices: notices})
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]bool
}

func (m *fakeMailer) SendEmail(_ context.Context, to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(to) > 0 && m.fail[to[0]] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		out = append(out, s.to...)
	}
	sort.Strings(out)
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	blobs   map[string]bool
	deleted []string
}

func newFakeStore(keys ...string) *fakeStore {
	s := &fakeStore{blobs: map[string]bool{}}
	for _, k := range keys {
		s.blobs[k] = true
	}
	return s
}

func (s *fakeStore) PresignUpload(_ context.Context, prefix, ext, _ string) (*storage.UploadGrant, error) {
	key := storage.NewBlobName(prefix, ext)
	return &storage.UploadGrant{
		URL:       "https://uploads.example/" + key + "?sig=x",
		Key:       key,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[key], nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) GetPublicURL(key string) string {
	return "https://cdn.example/" + key
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
