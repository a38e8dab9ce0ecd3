package domain

import "errors"

var (
	// ErrConflict: an active session already exists for the asset.
	ErrConflict = errors.New("active session already exists for asset")
	// ErrUnauthorized: the session token is missing, mismatched or expired.
	ErrUnauthorized = errors.New("session token rejected")
	// ErrSessionNotFound: no session with that id is known.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded: the session has already transitioned to ended.
	ErrSessionEnded = errors.New("session already ended")
)
