package models

import "time"

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionRunning   SubmissionStatus = "running"
	SubmissionFinished  SubmissionStatus = "finished"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Terminal reports whether no further status change is accepted.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionFinished || s == SubmissionFailed
}

// SubmissionMetadata holds the free-text fields a participant attaches to
// an entry. Values are stored HTML-escaped.
type SubmissionMetadata struct {
	Description               string `json:"description"`
	TeamName                  string `json:"team_name"`
	OrganizationOrAffiliation string `json:"organization_or_affiliation"`
	MethodName                string `json:"method_name"`
	MethodDescription         string `json:"method_description"`
	ProjectURL                string `json:"project_url"`
	PublicationURL            string `json:"publication_url"`
	Bibtex                    string `json:"bibtex"`
}

type Submission struct {
	ID            int                `json:"id" db:"id"`
	ParticipantID int                `json:"participant_id" db:"participant_id"`
	PhaseID       int                `json:"phase_id" db:"phase_id"`
	FileKey       string             `json:"file_key" db:"file_key"`
	Status        SubmissionStatus   `json:"status" db:"status"`
	Metadata      SubmissionMetadata `json:"metadata" db:"-"`
	SubmittedAt   time.Time          `json:"submitted_at" db:"submitted_at"`

	Participant *Participant `json:"-" db:"-"`
	Phase       *Phase       `json:"-" db:"-"`
}
