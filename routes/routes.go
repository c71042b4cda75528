package routes

import (
	"log/slog"
	"net/http"
	"time"

	_ "github.com/Dosada05/competition-system/docs"
	"github.com/Dosada05/competition-system/handlers"
	"github.com/Dosada05/competition-system/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Config struct {
	JWTSecret      string
	AllowedOrigins []string
	LogLevel       slog.Level
	JSONLogs       bool
}

type Handlers struct {
	Auth        *handlers.AuthHandler
	Competition *handlers.CompetitionHandler
	Participant *handlers.ParticipantHandler
	Submission  *handlers.SubmissionHandler
	Leaderboard *handlers.LeaderboardHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, cfg Config, h Handlers) {
	secret := []byte(cfg.JWTSecret)

	requestLogger := httplog.NewLogger("competition-system", httplog.Options{
		JSON:             cfg.JSONLogs,
		LogLevel:         cfg.LogLevel,
		Concise:          true,
		RequestHeaders:   false,
		MessageFieldName: "message",
		QuietDownRoutes:  []string{"/", "/metrics"},
		QuietDownPeriod:  10 * time.Second,
	})

	router.Use(httplog.RequestLogger(requestLogger))
	router.Use(middleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.With(middleware.Authenticate(secret)).Get("/me", h.Auth.Me)
	})

	router.Route("/competitions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(secret))
			r.Get("/", h.Competition.List)
			r.Get("/{competitionID}", h.Competition.Get)
			r.Get("/{competitionID}/phases", h.Competition.ListPhases)
			r.Get("/{competitionID}/phases/{phaseNumber}/leaderboard", h.Leaderboard.Scores)
			r.Get("/{competitionID}/leaderboard/entries", h.Leaderboard.Entries)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(secret))

			r.Post("/creation/upload", h.Competition.CreateUploadGrant)
			r.Post("/creation", h.Competition.StartCreation)
			r.Get("/creation/{token}", h.Competition.CreationStatus)

			r.Patch("/{competitionID}", h.Competition.UpdateInfo)
			r.Delete("/{competitionID}", h.Competition.Delete)
			r.Post("/{competitionID}/publish", h.Competition.Publish)
			r.Post("/{competitionID}/unpublish", h.Competition.Unpublish)

			r.Post("/{competitionID}/participate", h.Participant.Participate)
			r.Get("/{competitionID}/mystatus", h.Participant.MyStatus)
			r.Get("/{competitionID}/participants", h.Participant.List)
			r.Put("/{competitionID}/participants/{participantID}/status", h.Participant.SetStatus)

			r.Post("/{competitionID}/submissions/upload", h.Submission.CreateUploadGrant)
			r.Post("/{competitionID}/submissions", h.Submission.Submit)
			r.Get("/{competitionID}/submissions", h.Submission.ListMine)
			r.Get("/{competitionID}/submissions/{submissionID}", h.Submission.Get)
			r.Post("/{competitionID}/submissions/{submissionID}/leaderboard", h.Leaderboard.Add)
			r.Delete("/{competitionID}/submissions/{submissionID}/leaderboard", h.Leaderboard.Remove)
		})
	})

	router.Get("/ws/phases/{phaseID}/leaderboard", h.WebSocket.ServeWs)
}
