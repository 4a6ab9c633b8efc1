package publish

import "errors"

var (
	ErrNotSynced        = errors.New("record not synced")
	ErrInvalidStoredURI = errors.New("invalid stored uri")
	ErrBuildPayload     = errors.New("build payload")
)
