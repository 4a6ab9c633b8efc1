package mapper

import "errors"

var (
	ErrNoMapper        = errors.New("no mapper registered")
	ErrDuplicateMapper = errors.New("mapper already registered")
)
