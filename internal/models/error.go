package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// Account state errors
	ErrAccountDisabled = errors.New("account is disabled")
	ErrAccountLocked   = errors.New("account is temporarily locked")
	ErrNotAdmin        = errors.New("access denied: admin privileges required")

	// Console session errors
	ErrSessionNotActive    = errors.New("no active admin session")
	ErrSessionExpired      = errors.New("session expired due to inactivity")
	ErrOperationInProgress = errors.New("operation already in progress")
	ErrConsoleNotFound     = errors.New("console not found")
	ErrTooManyConsoles     = errors.New("too many open consoles")
	ErrUnknownEventType    = errors.New("unknown analytics event type")
)
