package domain

import "errors"

// Domain errors
var (
	ErrPlayerNameRequired = errors.New("both player names are required")
	ErrPlayerNameTooLong  = errors.New("player names must be 30 characters or less")
	ErrPlayerNamesMatch   = errors.New("player names must be different")

	ErrInvalidScore    = errors.New("invalid score value")
	ErrNoActiveSession = errors.New("no active session")
	ErrInvalidPhase    = errors.New("operation not allowed in current phase")
	ErrTurnNotFound    = errors.New("turn not found")
	ErrSaveInProgress  = errors.New("game save in progress")
	ErrSaveFailed      = errors.New("failed to save game")

	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
)

var userMessages = map[error]string{
	ErrPlayerNameRequired: "Both player names are required.",
	ErrPlayerNameTooLong:  "Player names must be 30 characters or less.",
	ErrPlayerNamesMatch:   "Player names must be different.",
	ErrSaveFailed:         "Failed to save game. Please try again.",
}

// UserMessage returns the display text for errors shown to players, or "" for anything else
func UserMessage(err error) string {
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return ""
}

// IsValidationError reports whether err is a player name validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrPlayerNameRequired) ||
		errors.Is(err, ErrPlayerNameTooLong) ||
		errors.Is(err, ErrPlayerNamesMatch)
}

// IsRejectedInput reports whether err is a silent input rejection from the state machine
func IsRejectedInput(err error) bool {
	return errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrTurnNotFound)
}
