package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/competition-system/metrics"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/repositories"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

var ErrJobNotFound = errors.New("job not found")

// SQSClient is the subset of *sqs.Client used by this package.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Message is what workers receive on the job queue.
type Message struct {
	JobID          int             `json:"job_id"`
	Kind           models.JobKind  `json:"kind"`
	Args           json.RawMessage `json:"args"`
	ResultQueueURL string          `json:"result_queue_url,omitempty"`
}

// Result is what workers publish on the result queue.
type Result struct {
	JobID      int              `json:"job_id"`
	Status     models.JobStatus `json:"status"`
	ResultInfo json.RawMessage  `json:"result_info,omitempty"`
}

// SQSQueue records jobs in postgres and hands them to workers through SQS.
type SQSQueue struct {
	repo           repositories.JobRepository
	client         SQSClient
	queueURL       string
	resultQueueURL string
}

func NewSQSQueue(repo repositories.JobRepository, client SQSClient, queueURL, resultQueueURL string) *SQSQueue {
	return &SQSQueue{
		repo:           repo,
		client:         client,
		queueURL:       queueURL,
		resultQueueURL: resultQueueURL,
	}
}

// Submit persists a pending job and sends it to the worker queue. If the send
// fails the job is marked failed and the error is returned with the job.
func (q *SQSQueue) Submit(ctx context.Context, kind models.JobKind, args interface{}) (*models.Job, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s job args: %w", kind, err)
	}

	job := &models.Job{Kind: kind, Args: rawArgs, Status: models.JobPending}
	if err := q.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	body, err := json.Marshal(Message{
		JobID:          job.ID,
		Kind:           kind,
		Args:           job.Args,
		ResultQueueURL: q.resultQueueURL,
	})
	if err != nil {
		return job, fmt.Errorf("failed to marshal job message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		metrics.JobsEnqueueFailed.WithLabelValues(string(kind)).Inc()
		sendErr := fmt.Errorf("failed to send message to job queue: %w", err)
		info, _ := json.Marshal(models.JobResultInfo{Error: aws.String(sendErr.Error())})
		if uerr := q.repo.UpdateStatus(ctx, job.ID, models.JobFailed, info); uerr == nil {
			job.Status = models.JobFailed
			job.ResultInfo = info
		}
		return job, sendErr
	}

	metrics.JobsEnqueued.WithLabelValues(string(kind)).Inc()
	return job, nil
}

func (q *SQSQueue) Status(ctx context.Context, id int) (*models.Job, error) {
	job, err := q.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}
