package importer

import "errors"

var (
	ErrStateNotFound = errors.New("import state not found")
	ErrNoCollections = errors.New("no collections to import")
)
