package signal

import "errors"

var (
	ErrUnknownOperation = errors.New("unknown commit operation")
	ErrMissingRecord    = errors.New("commit event without record")
)
