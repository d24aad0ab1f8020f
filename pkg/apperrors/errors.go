package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidRole            = errors.New("invalid role")
	ErrLastAdmin              = errors.New("cannot remove last admin")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnauthenticated        = errors.New("not authenticated")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrCredentialsKeyMismatch = errors.New("data source credentials were encrypted with a different key")
)
