package models

import "time"

type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantApproved ParticipantStatus = "approved"
	ParticipantDenied   ParticipantStatus = "denied"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantPending, ParticipantApproved, ParticipantDenied:
		return true
	}
	return false
}

type Participant struct {
	ID            int               `json:"id" db:"id"`
	UserID        int               `json:"user_id" db:"user_id"`
	CompetitionID int               `json:"competition_id" db:"competition_id"`
	Status        ParticipantStatus `json:"status" db:"status"`
	Reason        *string           `json:"reason" db:"reason"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

func (p *Participant) IsApproved() bool {
	return p != nil && p.Status == ParticipantApproved
}
