package errs

import "errors"

// Доменные сентинель-ошибки для маппинга в HTTP коды в handlers.
var (
	// ErrAlreadyRunning is the backend's 409 on start: a session for that
	// person is already running. Expected outcome of a race, not a fault.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrDuplicateModel is the backend's 409 on add: username already tracked.
	ErrDuplicateModel = errors.New("model already exists")

	ErrSessionNotFound = errors.New("session not found")
	ErrModelNotFound   = errors.New("model not found")

	// ErrBackendUnavailable marks transport-level failures. Callers must
	// never confuse it with "offline" or "no sessions"; it always has a
	// cache-or-stale fallback path.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
