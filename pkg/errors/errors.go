package chaterrors

import "errors"

// Common errors
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnknownUser    = errors.New("unknown user")
	ErrNoParticipants = errors.New("chat has no resolvable participants")
	ErrNotIdentified  = errors.New("connection not identified")
)
