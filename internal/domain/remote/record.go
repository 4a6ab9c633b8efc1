package remote

import (
	"time"
)

// Record значение записи удаленного репозитория
type Record map[string]any

// Type возвращает $type записи
func (r Record) Type() string {
	s, _ := r["$type"].(string)
	return s
}

// CreatedAt возвращает объявленное время создания записи, если оно есть и разбирается
func (r Record) CreatedAt() (time.Time, bool) {
	raw, ok := r["createdAt"].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Meta адрес и версия записи, пришедшей с удаленной стороны
type Meta struct {
	URI     string `json:"uri"`
	Version string `json:"cid"`
}

// Item элемент страницы listRecords
type Item struct {
	URI   string `json:"uri"`
	CID   string `json:"cid"`
	Value Record `json:"value"`
}

// Meta метаданные элемента
func (i Item) Meta() Meta {
	return Meta{URI: i.URI, Version: i.CID}
}

// Page страница записей; пустой Cursor означает конец списка
type Page struct {
	Items  []Item `json:"records"`
	Cursor string `json:"cursor,omitempty"`
}

// WriteResult ответ createRecord/putRecord
type WriteResult struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}
