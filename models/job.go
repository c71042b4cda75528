package models

import (
	"encoding/json"
	"time"
)

type JobKind string

const (
	JobCreateCompetition  JobKind = "create_competition"
	JobEvaluateSubmission JobKind = "evaluate_submission"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobRunning, JobFinished, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether no further status change is accepted.
func (s JobStatus) Terminal() bool {
	return s == JobFinished || s == JobFailed
}

type Job struct {
	ID         int             `json:"id" db:"id"`
	Kind       JobKind         `json:"kind" db:"kind"`
	Args       json.RawMessage `json:"args" db:"args"`
	Status     JobStatus       `json:"status" db:"status"`
	ResultInfo json.RawMessage `json:"result_info,omitempty" db:"result_info"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// JobResultInfo is the well-known subset of result_info written by workers.
type JobResultInfo struct {
	CompetitionID *int               `json:"competition_id,omitempty"`
	Error         *string            `json:"error,omitempty"`
	Scores        map[string]float64 `json:"scores,omitempty"`
}

// DecodeResultInfo parses ResultInfo; an empty payload yields a zero value.
func (j *Job) DecodeResultInfo() (JobResultInfo, error) {
	var info JobResultInfo
	if j == nil || len(j.ResultInfo) == 0 {
		return info, nil
	}
	err := json.Unmarshal(j.ResultInfo, &info)
	return info, err
}
