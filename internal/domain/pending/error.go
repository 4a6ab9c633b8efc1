package pending

import "errors"

var (
	ErrEntryNotFound     = errors.New("pending entry not found")
	ErrInvalidOperation  = errors.New("invalid pending operation")
	ErrReferenceRequired = errors.New("reference mapper required")
)
