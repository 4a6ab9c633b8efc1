package pending

import (
	"time"
)

// Operation операция, которую нужно повторить
type Operation string

const (
	OpSync                Operation = "sync"
	OpResync              Operation = "resync"
	OpUnsync              Operation = "unsync"
	OpSyncWithReference   Operation = "sync_with_reference"
	OpResyncWithReference Operation = "resync_with_reference"
	OpUnsyncWithReference Operation = "unsync_with_reference"
)

func (o Operation) Valid() bool {
	switch o {
	case OpSync, OpResync, OpUnsync, OpSyncWithReference, OpResyncWithReference, OpUnsyncWithReference:
		return true
	}
	return false
}

// WithReference операция над парой основная запись + ссылка
func (o Operation) WithReference() bool {
	switch o {
	case OpSyncWithReference, OpResyncWithReference, OpUnsyncWithReference:
		return true
	}
	return false
}

// Entry отложенная операция над моделью.
// На одну модель приходится не больше одной записи: новая вытесняет старую.
type Entry struct {
	ID              string    `json:"id"`
	Owner           string    `json:"owner"`
	ModelType       string    `json:"model_type"`
	ModelID         string    `json:"model_id"`
	Operation       Operation `json:"operation"`
	ReferenceMapper string    `json:"reference_mapper,omitempty"`
	// URI адрес удаленной записи на момент захвата; нужен для unsync удаленной локально модели
	URI       string    `json:"uri,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
}

// Expired запись старше ttl; нулевой ttl отключает истечение
func (e *Entry) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.CreatedAt) > ttl
}

// RetryResult итог повторных попыток для владельца
type RetryResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// Config параметры очереди
type Config struct {
	MaxAttempts int           `json:"max_attempts"`
	TTL         time.Duration `json:"ttl"`
}
