package importer

import (
	"time"
)

// Status статус импорта коллекции
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// State прогресс импорта одной коллекции владельца.
// Уникален по паре (Owner, Collection).
type State struct {
	ID          int64      `json:"id"`
	Owner       string     `json:"owner"`
	Collection  string     `json:"collection"`
	Status      Status     `json:"status"`
	Cursor      string     `json:"cursor,omitempty"`
	Synced      int        `json:"synced"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Resumable сообщает, можно ли продолжить импорт с сохраненного курсора
func (s *State) Resumable() bool {
	return s.Status == StatusInProgress || s.Status == StatusFailed
}

func (s *State) start(now time.Time) {
	s.Status = StatusInProgress
	s.Error = ""
	if s.StartedAt == nil {
		s.StartedAt = &now
	}
}

func (s *State) complete(now time.Time) {
	s.Status = StatusCompleted
	s.Cursor = ""
	s.Error = ""
	s.CompletedAt = &now
}

func (s *State) fail(msg string) {
	s.Status = StatusFailed
	s.Error = msg
}

// Result итог импорта коллекции
type Result struct {
	Owner      string `json:"owner"`
	Collection string `json:"collection"`
	Completed  bool   `json:"completed"`
	Synced     int    `json:"synced"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Cursor     string `json:"cursor,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Success импорт завершен без ошибки уровня коллекции
func (r Result) Success() bool {
	return r.Completed && r.Error == ""
}

func resultFromState(s *State) Result {
	return Result{
		Owner:      s.Owner,
		Collection: s.Collection,
		Completed:  s.Status == StatusCompleted,
		Synced:     s.Synced,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		Cursor:     s.Cursor,
		Error:      s.Error,
	}
}

// UserResult сводный итог импорта всех коллекций владельца
type UserResult struct {
	Owner       string   `json:"owner"`
	Completed   bool     `json:"completed"`
	Synced      int      `json:"synced"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	Collections []Result `json:"collections"`
}

// Config параметры импортера
type Config struct {
	PageSize  int           `json:"page_size"`
	PageDelay time.Duration `json:"page_delay"`
}
