package event

import (
	"time"
)

const (
	NameImportStarted      = "import.started"
	NameImportProgress     = "import.progress"
	NameImportCompleted    = "import.completed"
	NameImportFailed       = "import.failed"
	NameSynced             = "sync.synced"
	NameUnsynced           = "sync.unsynced"
	NameReferenceSynced    = "sync.reference_synced"
	NameConflictDetected   = "conflict.detected"
	NamePendingCaptured    = "pending.captured"
	NamePendingRetried     = "pending.retried"
	NamePendingRetryFailed = "pending.failed"
)

// Event уведомление для наблюдателей синхронизации
type Event interface {
	Name() string
}

// ImportStarted начат импорт коллекции
type ImportStarted struct {
	Owner      string
	Collection string
	Cursor     string
}

// ImportProgress обработана очередная страница
type ImportProgress struct {
	Owner      string
	Collection string
	Cursor     string
	Synced     int
	Skipped    int
	Failed     int
}

// ImportCompleted импорт коллекции завершен
type ImportCompleted struct {
	Owner      string
	Collection string
	Synced     int
	Skipped    int
	Failed     int
}

// ImportFailed импорт коллекции прерван ошибкой
type ImportFailed struct {
	Owner      string
	Collection string
	Error      string
}

// Synced модель записана в удаленный репозиторий
type Synced struct {
	ModelType string
	ModelID   string
	URI       string
	Version   string
}

// Unsynced удаленная запись модели удалена
type Unsynced struct {
	ModelType string
	ModelID   string
	URI       string
}

// ReferenceSynced записаны основная запись и запись-ссылка
type ReferenceSynced struct {
	ModelType    string
	ModelID      string
	MainURI      string
	ReferenceURI string
}

// ConflictDetected конфликт отложен для ручного разрешения
type ConflictDetected struct {
	ConflictID string
	ModelType  string
	ModelID    string
	URI        string
}

// PendingCaptured неудачная операция поставлена в очередь
type PendingCaptured struct {
	EntryID   string
	Owner     string
	ModelType string
	ModelID   string
	Operation string
}

// PendingRetried выполнена повторная попытка операции
type PendingRetried struct {
	EntryID  string
	Owner    string
	Attempts int
	Success  bool
	Error    string
}

// PendingRetryFailed повторная попытка завершилась ошибкой
type PendingRetryFailed struct {
	EntryID  string
	Owner    string
	Attempts int
	Error    string
	At       time.Time
}

func (ImportStarted) Name() string      { return NameImportStarted }
func (ImportProgress) Name() string     { return NameImportProgress }
func (ImportCompleted) Name() string    { return NameImportCompleted }
func (ImportFailed) Name() string       { return NameImportFailed }
func (Synced) Name() string             { return NameSynced }
func (Unsynced) Name() string           { return NameUnsynced }
func (ReferenceSynced) Name() string    { return NameReferenceSynced }
func (ConflictDetected) Name() string   { return NameConflictDetected }
func (PendingCaptured) Name() string    { return NamePendingCaptured }
func (PendingRetried) Name() string     { return NamePendingRetried }
func (PendingRetryFailed) Name() string { return NamePendingRetryFailed }
