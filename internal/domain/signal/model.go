package signal

import (
	"reposync/internal/domain/conflict"
	"reposync/internal/domain/mapper"
	"reposync/internal/domain/remote"
)

// Operation вид изменения записи в коммите
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Event уведомление о коммите удаленного репозитория для одной записи
type Event struct {
	Owner      string        `json:"owner"`
	Collection string        `json:"collection"`
	RecordKey  string        `json:"rkey"`
	Operation  Operation     `json:"operation"`
	CID        string        `json:"cid,omitempty"`
	Record     remote.Record `json:"record,omitempty"`
}

// URI адрес записи события
func (e Event) URI() string {
	return remote.NewURI(e.Owner, e.Collection, e.RecordKey).String()
}

// Action что обработчик сделал с событием
type Action string

const (
	ActionIgnored  Action = "ignored"
	ActionApplied  Action = "applied"
	ActionSkipped  Action = "skipped"
	ActionResolved Action = "resolved"
	ActionDeferred Action = "deferred"
	ActionDeleted  Action = "deleted"
)

// Outcome итог обработки события
type Outcome struct {
	Action     Action
	Model      mapper.Model
	Resolution *conflict.Resolution
}
