package chat

import "errors"

var (
	ErrEmptyMessage   = errors.New("chat: message cannot be empty")
	ErrAlreadyJoined  = errors.New("chat: room already joined")
	ErrNotFound       = errors.New("chat: message not found")
	ErrNotRetryable   = errors.New("chat: only failed messages can be retried")
	ErrSessionClosed  = errors.New("chat: session closed")
	ErrInvalidRole    = errors.New("chat: role must be student or guru")
	ErrMissingPartner = errors.New("chat: both participant ids are required")
)
