package viewer

import "errors"

var (
	ErrNotFound        = errors.New("viewer not found")
	ErrBusy            = errors.New("viewer is busy")
	ErrNoAgent         = errors.New("no agent created for this viewer")
	ErrAgentExists     = errors.New("agent already created")
	ErrSessionActive   = errors.New("conversation already active")
	ErrStopped         = errors.New("conversation stopped while connecting")
	ErrNoSession       = errors.New("no active conversation")
	ErrHandoffConsumed = errors.New("handoff already consumed")
	ErrHandoffNotFound = errors.New("handoff not found")
	ErrNoFiles         = errors.New("no files uploaded")
	ErrFileIndex       = errors.New("file index out of range")
)
