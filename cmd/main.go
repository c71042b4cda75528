package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/competition-system/config"
	"github.com/Dosada05/competition-system/db"
	"github.com/Dosada05/competition-system/handlers"
	"github.com/Dosada05/competition-system/jobs"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/realtime"
	"github.com/Dosada05/competition-system/repositories"
	api "github.com/Dosada05/competition-system/routes"
	"github.com/Dosada05/competition-system/services"
	"github.com/Dosada05/competition-system/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const notificationQueueSize = 256

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(ctx, dbConn); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("database ready")

	store, err := storage.NewCloudflareR2Store(ctx, storage.CloudflareR2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
		UploadTTL:       cfg.UploadURLTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Cloudflare R2 store: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	competitionRepo := repositories.NewPostgresCompetitionRepository(dbConn)
	phaseRepo := repositories.NewPostgresPhaseRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderBoardRepository(dbConn)
	jobRepo := repositories.NewPostgresJobRepository(dbConn)

	queue := jobs.NewSQSQueue(jobRepo, sqsClient, cfg.JobQueueURL, cfg.JobResultQueueURL)
	hub := realtime.NewHub(logger)

	var mailer services.Mailer
	if cfg.SMTPHost != "" {
		mailer = services.NewEmailService(cfg)
	} else {
		logger.Warn("SMTP_HOST is not set, emails will only be logged")
		mailer = services.NewLogMailer(logger)
	}
	notifications, err := services.NewNotificationService(userRepo, mailer, cfg.PublicURL, notificationQueueSize, logger)
	if err != nil {
		return err
	}

	authService := services.NewAuthService(userRepo)
	competitionService := services.NewCompetitionService(competitionRepo, phaseRepo, store, queue, logger)
	participantService := services.NewParticipantService(participantRepo, competitionRepo, notifications)
	gate := services.NewPhaseGate(phaseRepo, time.Now)
	submissionService := services.NewSubmissionService(
		submissionRepo,
		participantRepo,
		competitionRepo,
		leaderboardRepo,
		gate,
		store,
		queue,
		hub,
		logger,
	)
	leaderboardService := services.NewLeaderboardService(
		leaderboardRepo,
		submissionRepo,
		participantRepo,
		phaseRepo,
		competitionRepo,
		hub,
		time.Now,
	)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Config{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		LogLevel:       slog.LevelInfo,
		JSONLogs:       true,
	}, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Competition: handlers.NewCompetitionHandler(competitionService),
		Participant: handlers.NewParticipantHandler(participantService),
		Submission:  handlers.NewSubmissionHandler(submissionService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		WebSocket:   handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	notifications.Start(ctx, cfg.NotificationWorkers)
	defer notifications.Close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gCtx)
		return nil
	})
	if cfg.JobResultQueueURL != "" {
		consumer := jobs.NewResultConsumer(sqsClient, cfg.JobResultQueueURL, jobRepo, logger)
		consumer.Handle(models.JobEvaluateSubmission, submissionService.HandleEvaluationResult)
		g.Go(func() error {
			return consumer.Run(gCtx)
		})
	} else {
		logger.Warn("JOB_RESULT_QUEUE_URL is not set, job results will not be consumed")
	}
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
		return nil
	})

	return g.Wait()
}
