package conflicts

import (
	"reposync/internal/domain/conflict"
)

type listInput struct {
	Status string `query:"status" enum:"pending,resolved,dismissed" doc:"Filter by status; all when empty"`
}

type listOutput struct {
	Body ConflictListResponse
}

type ConflictListResponse struct {
	Conflicts []*conflict.PendingConflict `json:"conflicts"`
}

type idInput struct {
	ID string `path:"id"`
}

type resolveInput struct {
	ID   string `path:"id"`
	Body ResolveRequest
}

type ResolveRequest struct {
	Winner string `json:"winner" enum:"local,remote" doc:"Side whose state is kept"`
}

type conflictOutput struct {
	Body *conflict.PendingConflict
}
