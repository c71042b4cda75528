package models

type LeaderBoard struct {
	ID      int `json:"id" db:"id"`
	PhaseID int `json:"phase_id" db:"phase_id"`
}

// LeaderBoardEntry makes one submission official for its participant.
// (board_id, participant_id) is unique.
type LeaderBoardEntry struct {
	ID            int `json:"id" db:"id"`
	BoardID       int `json:"board_id" db:"board_id"`
	ParticipantID int `json:"participant_id" db:"participant_id"`
	SubmissionID  int `json:"submission_id" db:"submission_id"`
}

type ScoreSorting string

const (
	SortAscending  ScoreSorting = "asc"
	SortDescending ScoreSorting = "desc"
)

type ScoreGroup struct {
	ID       int    `json:"id" db:"id"`
	PhaseID  int    `json:"phase_id" db:"phase_id"`
	Label    string `json:"label" db:"label"`
	Ordering int    `json:"ordering" db:"ordering"`
}

type ScoreDef struct {
	ID            int          `json:"id" db:"id"`
	GroupID       int          `json:"group_id" db:"group_id"`
	Key           string       `json:"key" db:"key"`
	Label         string       `json:"label" db:"label"`
	Sorting       ScoreSorting `json:"sorting" db:"sorting"`
	NumericFormat int          `json:"numeric_format" db:"numeric_format"` // decimal places
	Ordering      int          `json:"ordering" db:"ordering"`
}

type SubmissionScore struct {
	SubmissionID int     `json:"submission_id" db:"submission_id"`
	ScoreDefID   int     `json:"score_def_id" db:"score_def_id"`
	Value        float64 `json:"value" db:"value"`
}

// LeaderBoardRow is an entry joined with what is needed to render it.
type LeaderBoardRow struct {
	EntryID      int    `json:"entry_id"`
	SubmissionID int    `json:"submission_id"`
	UserID       int    `json:"user_id"`
	Username     string `json:"username"`
	TeamName     string `json:"team_name,omitempty"`
}
