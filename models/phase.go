package models

import "time"

type Phase struct {
	ID            int        `json:"id" db:"id"`
	CompetitionID int        `json:"competition_id" db:"competition_id"`
	PhaseNumber   int        `json:"phase_number" db:"phase_number"`
	Label         string     `json:"label" db:"label"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"-"` // start of the next phase
	IsBlind       bool       `json:"is_blind" db:"is_blind"`
	IsScoringOnly bool       `json:"is_scoring_only" db:"is_scoring_only"`
	AutoMigration bool       `json:"auto_migration" db:"auto_migration"`
	IsMigrated    bool       `json:"is_migrated" db:"is_migrated"`
	ReferenceData string     `json:"-" db:"reference_data"`
}

// IsActive reports whether the phase window contains now.
func (p *Phase) IsActive(now time.Time) bool {
	if p == nil {
		return false
	}
	if now.Before(p.StartDate) {
		return false
	}
	return p.EndDate == nil || now.Before(*p.EndDate)
}

// HasReferenceData reports whether the phase carries the reference data
// required before its competition can be published.
func (p *Phase) HasReferenceData() bool {
	return p != nil && p.ReferenceData != ""
}
