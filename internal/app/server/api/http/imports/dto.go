package imports

import (
	"reposync/internal/domain/importer"
)

type importInput struct {
	Owner string `path:"owner" doc:"Repository owner DID"`
	Body  ImportRequest
}

type ImportRequest struct {
	Collections []string `json:"collections,omitempty" doc:"Collections to import; all registered when empty"`
}

type importOutput struct {
	Body importer.UserResult
}

type statusInput struct {
	Owner string `path:"owner"`
}

type statusOutput struct {
	Body StatusResponse
}

type StatusResponse struct {
	Owner  string            `json:"owner"`
	States []*importer.State `json:"states"`
}

type resetInput struct {
	Owner      string `path:"owner"`
	Collection string `path:"collection"`
}

type resetOutput struct {
	Body ResetResponse
}

type ResetResponse struct {
	Status string `json:"status"`
}
