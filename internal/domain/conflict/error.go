package conflict

import "errors"

var (
	ErrUnknownStrategy  = errors.New("unknown conflict strategy")
	ErrConflictNotFound = errors.New("conflict not found")
	ErrConflictClosed   = errors.New("conflict already closed")
)
