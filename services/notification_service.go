package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/emails/*.html
var emailTemplates embed.FS

type NotificationTemplate string

const (
	TemplateParticipationRequested          NotificationTemplate = "participation_requested"
	TemplateOrganizerParticipationRequested NotificationTemplate = "organizer_participation_requested"
	TemplateParticipationAccepted           NotificationTemplate = "participation_accepted"
	TemplateOrganizerParticipationAccepted  NotificationTemplate = "organizer_participation_accepted"
	TemplateParticipationRevoked            NotificationTemplate = "participation_revoked"
	TemplateOrganizerParticipationRevoked   NotificationTemplate = "organizer_participation_revoked"
)

var templateSubjects = map[NotificationTemplate]string{
	TemplateParticipationRequested:          "Participation request sent: %s",
	TemplateOrganizerParticipationRequested: "New participation request: %s",
	TemplateParticipationAccepted:           "Participation accepted: %s",
	TemplateOrganizerParticipationAccepted:  "Participant accepted: %s",
	TemplateParticipationRevoked:            "Participation denied: %s",
	TemplateOrganizerParticipationRevoked:   "Participant denied: %s",
}

// NoticePair names the notice for the participant and the one for the organizer.
type NoticePair struct {
	Participant NotificationTemplate
	Organizer   NotificationTemplate
}

// Notices sent when a participation record is first created, by initial status.
var joinNotices = map[models.ParticipantStatus]NoticePair{
	models.ParticipantPending:  {TemplateParticipationRequested, TemplateOrganizerParticipationRequested},
	models.ParticipantApproved: {TemplateParticipationAccepted, TemplateOrganizerParticipationAccepted},
}

// Notices sent when an organizer changes a status. Moving back to pending is silent.
var statusChangeNotices = map[models.ParticipantStatus]NoticePair{
	models.ParticipantApproved: {TemplateParticipationAccepted, TemplateOrganizerParticipationAccepted},
	models.ParticipantDenied:   {TemplateParticipationRevoked, TemplateOrganizerParticipationRevoked},
}

// Notifier accepts participation notices for out-of-band delivery. It never
// blocks the caller and never reports delivery failures back.
type Notifier interface {
	ParticipationChanged(competition *models.Competition, participant *models.Participant, notices NoticePair)
}

type participationNotice struct {
	competition models.Competition
	participant models.Participant
	notices     NoticePair
}

type NotificationService struct {
	users     repositories.UserRepository
	mailer    Mailer
	templates *template.Template
	publicURL string
	logger    *slog.Logger

	queue  chan participationNotice
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewNotificationService(users repositories.UserRepository, mailer Mailer, publicURL string, queueSize int, logger *slog.Logger) (*NotificationService, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/emails/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	for name := range templateSubjects {
		if tmpl.Lookup(string(name)+".html") == nil {
			return nil, fmt.Errorf("missing email template %s", name)
		}
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &NotificationService{
		users:     users,
		mailer:    mailer,
		templates: tmpl,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		queue:     make(chan participationNotice, queueSize),
	}, nil
}

// Start launches workers that deliver queued notices until Close is called.
func (s *NotificationService) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for n := range s.queue {
				s.deliver(ctx, n)
			}
		}()
	}
}

// Close stops accepting notices and waits for queued ones to be delivered.
func (s *NotificationService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *NotificationService) ParticipationChanged(competition *models.Competition, participant *models.Participant, notices NoticePair) {
	if competition == nil || participant == nil {
		return
	}
	n := participationNotice{competition: *competition, participant: *participant, notices: notices}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.NotificationsDropped.Inc()
		s.logger.Warn("notification dropped, dispatcher closed", slog.Int("participant_id", participant.ID))
		return
	}
	select {
	case s.queue <- n:
	default:
		metrics.NotificationsDropped.Inc()
		s.logger.Error("notification dropped, queue full", slog.Int("participant_id", participant.ID))
	}
}

func (s *NotificationService) deliver(ctx context.Context, n participationNotice) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var participantUser, organizer *models.User
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetByID(gCtx, n.participant.UserID)
		participantUser = u
		return err
	})
	g.Go(func() error {
		u, err := s.users.GetByID(gCtx, n.competition.CreatorID)
		organizer = u
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load notification recipients",
			slog.Int("participant_id", n.participant.ID), slog.Any("error", err))
		return
	}

	data := map[string]interface{}{
		"Username":         participantUser.Username,
		"CompetitionTitle": n.competition.Title,
		"CompetitionURL":   fmt.Sprintf("%s/competitions/%d", s.publicURL, n.competition.ID),
		"ParticipantsURL":  fmt.Sprintf("%s/competitions/%d/participants", s.publicURL, n.competition.ID),
		"Status":           string(n.participant.Status),
		"Reason":           derefString(n.participant.Reason),
	}

	// The two sends are independent; one failing must not cancel the other.
	var sends errgroup.Group
	if n.notices.Participant != "" && participantUser.ParticipationStatusUpdates {
		sends.Go(func() error {
			return s.send(ctx, n.notices.Participant, participantUser.Email, n.competition.Title, data)
		})
	}
	if n.notices.Organizer != "" && organizer.OrganizerStatusUpdates {
		sends.Go(func() error {
			return s.send(ctx, n.notices.Organizer, organizer.Email, n.competition.Title, data)
		})
	}
	_ = sends.Wait()
}

func (s *NotificationService) send(ctx context.Context, name NotificationTemplate, to, title string, data map[string]interface{}) error {
	body, err := s.render(name, data)
	if err == nil {
		err = s.mailer.SendEmail(ctx, []string{to}, fmt.Sprintf(templateSubjects[name], title), body)
	}
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(name)).Inc()
		s.logger.Error("failed to send notification",
			slog.String("template", string(name)), slog.String("to", to), slog.Any("error", err))
		return err
	}
	metrics.NotificationsSent.WithLabelValues(string(name)).Inc()
	return nil
}

func (s *NotificationService) render(name NotificationTemplate, data map[string]interface{}) (string, error) {
	t := s.templates.Lookup(string(name) + ".html")
	if t == nil {
		return "", errors.New("unknown email template " + string(name))
	}
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return body.String(), nil
}
