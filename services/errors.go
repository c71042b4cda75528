package services

import "errors"

// Kind is the stable category of a service error, exposed to API clients.
type Kind string

const (
	KindPermissionDenied    Kind = "permission_denied"
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindPhaseClosed         Kind = "phase_closed"
	KindMigrationInProgress Kind = "migration_in_progress"
	KindLeaderboardLocked   Kind = "leaderboard_locked"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindValidation          Kind = "validation_failed"
	KindUnauthenticated     Kind = "unauthenticated"
	KindInternal            Kind = "internal"
)

var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("requested resource not found")
	ErrPhaseClosed         = errors.New("phase is not accepting submissions")
	ErrMigrationInProgress = errors.New("phase data migration in progress")
	ErrLeaderboardLocked   = errors.New("leaderboard is locked for this phase")
	ErrForbidden           = errors.New("forbidden")
	ErrValidationFailed    = errors.New("validation failed")

	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserUsernameConflict = errors.New("username is already in use")

	ErrUserNotFound             = errors.New("user not found")
	ErrCompetitionNotFound      = errors.New("competition not found")
	ErrPhaseNotFound            = errors.New("phase not found")
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrSubmissionNotFound       = errors.New("submission not found")
	ErrJobNotFound              = errors.New("job not found")
	ErrLeaderboardEntryNotFound = errors.New("leaderboard entry not found")
)

// Order matters only for errors wrapping several sentinels; the first match wins.
var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrInvalidInput, KindInvalidInput},
	{ErrPasswordTooShort, KindInvalidInput},
	{ErrPhaseClosed, KindPhaseClosed},
	{ErrMigrationInProgress, KindMigrationInProgress},
	{ErrLeaderboardLocked, KindLeaderboardLocked},
	{ErrForbidden, KindForbidden},
	{ErrValidationFailed, KindValidation},
	{ErrInvalidCredentials, KindUnauthenticated},
	{ErrUserEmailConflict, KindConflict},
	{ErrUserUsernameConflict, KindConflict},
	{ErrNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrCompetitionNotFound, KindNotFound},
	{ErrPhaseNotFound, KindNotFound},
	{ErrParticipantNotFound, KindNotFound},
	{ErrSubmissionNotFound, KindNotFound},
	{ErrJobNotFound, KindNotFound},
	{ErrLeaderboardEntryNotFound, KindNotFound},
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
