package pending

import (
	"reposync/internal/domain/pending"
)

type ownerInput struct {
	Owner string `path:"owner" doc:"Repository owner DID"`
}

type listOutput struct {
	Body PendingListResponse
}

type PendingListResponse struct {
	Owner   string           `json:"owner"`
	Count   int              `json:"count"`
	Entries []*pending.Entry `json:"entries"`
}

type retryOutput struct {
	Body pending.RetryResult
}

type countOutput struct {
	Body CountResponse
}

type CountResponse struct {
	Removed int `json:"removed"`
}
