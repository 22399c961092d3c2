package contract

import "errors"

var (
	// ErrSessionNotFound is fatal for the request; the caller must start a
	// new session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy means a turn for the same session is still in flight;
	// the caller should retry later, not immediately.
	ErrSessionBusy = errors.New("session busy")

	// ErrSessionEnded means the session reached a terminal action and
	// accepts no further turns.
	ErrSessionEnded = errors.New("session already ended")

	ErrValidation      = errors.New("validation failed")
	ErrClassification  = errors.New("classification failed")
	ErrCalendarFailure = errors.New("calendar request failed")
	ErrCRMFailure      = errors.New("crm request failed")
)
