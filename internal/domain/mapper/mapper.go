package mapper

import (
	"context"

	"reposync/internal/domain/remote"
)

// RecordMapper переводит локальную модель в запись удаленного репозитория и обратно
type RecordMapper interface {
	Collection() string
	ModelType() string
	ToPayload(m Model) (remote.Record, error)
	// Upsert создает или обновляет локальную модель по записи и сохраняет ее.
	// Возврат (nil, nil) означает, что запись пропущена.
	Upsert(ctx context.Context, record remote.Record, meta remote.Meta) (Model, error)
}

// BlobAware мапперы записей с вложениями
type BlobAware interface {
	HasBlobFields() bool
}

// RecordTyped мапперы, у которых $type записи отличается от имени коллекции
type RecordTyped interface {
	RecordType() string
}

// Projector строит несохраненную модель из записи, не трогая локальное хранилище
type Projector interface {
	Project(record remote.Record, meta remote.Meta) (Model, error)
}

// ReferenceMapper описывает вспомогательную запись, указывающую на основную
type ReferenceMapper interface {
	ID() string
	Collection() string
	MainMapper() RecordMapper
	// ReferencePayload строит запись-ссылку; указатель может быть голым URI или StrongRef
	ReferencePayload(m Model, main remote.StrongRef) (remote.Record, error)
	ReferenceState(m Model) SyncState
	SetReferenceState(m Model, s SyncState)
}
