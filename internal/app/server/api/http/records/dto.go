package records

import (
	"reposync/internal/domain/publish"
	"reposync/internal/infrastructure/storage/sqlite"
)

type listInput struct {
	Collection string `path:"collection"`
	Owner      string `query:"owner" required:"true"`
	Limit      int    `query:"limit" minimum:"1" maximum:"1000" default:"100"`
}

type listOutput struct {
	Body RecordListResponse
}

type RecordListResponse struct {
	Records []*sqlite.Record `json:"records"`
}

type createInput struct {
	Body CreateRequest
}

type CreateRequest struct {
	Owner      string         `json:"owner" minLength:"1"`
	Collection string         `json:"collection" minLength:"1"`
	Value      map[string]any `json:"value"`
}

type updateInput struct {
	Collection string `path:"collection"`
	ID         string `path:"id"`
	Body       UpdateRequest
}

type UpdateRequest struct {
	Value map[string]any `json:"value"`
}

type idInput struct {
	Collection string `path:"collection"`
	ID         string `path:"id"`
}

type output struct {
	Body RecordResponse
}

// RecordResponse локальная запись и итог ее публикации
type RecordResponse struct {
	Status string          `json:"status"`
	Record *sqlite.Record  `json:"record,omitempty"`
	Sync   *publish.Result `json:"sync,omitempty"`
	Error  string          `json:"error,omitempty"`
}
