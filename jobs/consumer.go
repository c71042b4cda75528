package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const receiveRetryDelay = 5 * time.Second

// ResultHandler reacts to a job status change after it has been stored.
type ResultHandler func(ctx context.Context, job *models.Job, info models.JobResultInfo) error

// ResultConsumer polls the result queue and applies worker results to job records.
type ResultConsumer struct {
	client   SQSClient
	queueURL string
	repo     repositories.JobRepository
	handlers map[models.JobKind]ResultHandler
	logger   *slog.Logger
}

func NewResultConsumer(client SQSClient, queueURL string, repo repositories.JobRepository, logger *slog.Logger) *ResultConsumer {
	return &ResultConsumer{
		client:   client,
		queueURL: queueURL,
		repo:     repo,
		handlers: make(map[models.JobKind]ResultHandler),
		logger:   logger,
	}
}

// Handle registers h for results of the given kind. Not safe to call after Run.
func (c *ResultConsumer) Handle(kind models.JobKind, h ResultHandler) {
	c.handlers[kind] = h
}

// Run receives messages until ctx is cancelled.
func (c *ResultConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		output, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     10,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to receive job results", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveRetryDelay):
			}
			continue
		}

		for _, msg := range output.Messages {
			if msg.Body == nil || msg.ReceiptHandle == nil {
				c.logger.Warn("skipping malformed job result message")
				continue
			}
			if err := c.Apply(ctx, *msg.Body); err != nil {
				// Left on the queue so SQS redelivers it after the visibility timeout.
				c.logger.Error("failed to apply job result", slog.Any("error", err))
				continue
			}
			_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(c.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				c.logger.Error("failed to ack job result", slog.Any("error", err))
			}
		}
	}
}

// Apply stores one result message and runs the handler for its job kind.
// Malformed or unknown results are logged and acknowledged.
func (c *ResultConsumer) Apply(ctx context.Context, body string) error {
	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		c.logger.Warn("dropping undecodable job result", slog.Any("error", err))
		return nil
	}
	if !res.Status.Valid() || res.JobID <= 0 {
		c.logger.Warn("dropping invalid job result", slog.Int("job_id", res.JobID), slog.String("status", string(res.Status)))
		return nil
	}

	stored := c.repo.UpdateStatus(ctx, res.JobID, res.Status, res.ResultInfo)
	switch {
	case stored == nil, errors.Is(stored, repositories.ErrJobStatusFinal):
	case errors.Is(stored, repositories.ErrJobNotFound):
		c.logger.Warn("result for unknown job", slog.Int("job_id", res.JobID))
		return nil
	default:
		return fmt.Errorf("failed to store result for job %d: %w", res.JobID, stored)
	}

	job, err := c.repo.GetByID(ctx, res.JobID)
	if err != nil {
		return fmt.Errorf("failed to reload job %d: %w", res.JobID, err)
	}
	// A redelivered terminal result still reaches the handler; anything else
	// arriving after the job settled is stale.
	if stored != nil && job.Status != res.Status {
		c.logger.Info("ignoring stale job result", slog.Int("job_id", job.ID),
			slog.String("status", string(res.Status)), slog.String("current", string(job.Status)))
		return nil
	}
	metrics.JobResults.WithLabelValues(string(job.Kind), string(job.Status)).Inc()

	h, ok := c.handlers[job.Kind]
	if !ok {
		return nil
	}
	info, err := job.DecodeResultInfo()
	if err != nil {
		c.logger.Warn("job result info is not decodable", slog.Int("job_id", job.ID), slog.Any("error", err))
	}
	if err := h(ctx, job, info); err != nil {
		return fmt.Errorf("handler for %s job %d failed: %w", job.Kind, job.ID, err)
	}
	return nil
}
