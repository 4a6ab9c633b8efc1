package remote

import (
	"fmt"
	"strings"
)

// Scheme схема адресов записей удаленного репозитория
const Scheme = "at"

// URI адрес записи: владелец + коллекция + ключ записи
type URI struct {
	Owner      string
	Collection string
	RecordKey  string
}

// NewURI собирает адрес из компонентов без проверки
func NewURI(owner, collection, rkey string) URI {
	return URI{Owner: owner, Collection: collection, RecordKey: rkey}
}

// ParseURI разбирает строку вида at://owner/collection/rkey.
// Любая другая форма отклоняется с ErrInvalidURI.
func ParseURI(raw string) (URI, error) {
	prefix := Scheme + "://"
	if !strings.HasPrefix(raw, prefix) {
		return URI{}, fmt.Errorf("%w: %q: expected %s scheme", ErrInvalidURI, raw, Scheme)
	}

	parts := strings.Split(strings.TrimPrefix(raw, prefix), "/")
	if len(parts) != 3 {
		return URI{}, fmt.Errorf("%w: %q: expected owner/collection/rkey", ErrInvalidURI, raw)
	}
	for _, p := range parts {
		if p == "" {
			return URI{}, fmt.Errorf("%w: %q: empty segment", ErrInvalidURI, raw)
		}
	}
	if !IsCollection(parts[1]) {
		return URI{}, fmt.Errorf("%w: %q: bad collection %q", ErrInvalidURI, raw, parts[1])
	}

	return URI{Owner: parts[0], Collection: parts[1], RecordKey: parts[2]}, nil
}

// IsCollection проверяет форму имени коллекции: минимум три непустых сегмента через точку
func IsCollection(name string) bool {
	segments := strings.Split(name, ".")
	if len(segments) < 3 {
		return false
	}
	for _, s := range segments {
		if s == "" {
			return false
		}
		for _, r := range s {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	return true
}

func (u URI) String() string {
	return Scheme + "://" + u.Owner + "/" + u.Collection + "/" + u.RecordKey
}

// StrongRef ссылка на конкретную версию записи
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Value представление ссылки внутри значения записи
func (r StrongRef) Value() map[string]any {
	return map[string]any{"uri": r.URI, "cid": r.CID}
}
