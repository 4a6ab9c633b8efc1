package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"reposync/internal/domain/remote"
)

// Remote удаленный репозиторий в памяти.
// Курсор страницы это индекс следующего элемента коллекции.
type Remote struct {
	mu      sync.Mutex
	records map[string][]remote.Item
	seq     int

	Lists   int
	Creates int
	Puts    int
	Deletes int

	// ListErr возвращается listRecords, начиная с вызова номер ListErrAt (с единицы)
	ListErr   error
	ListErrAt int
	// ErrFor ошибка записи по коллекции
	ErrFor    map[string]error
	DeleteErr error
}

func NewRemote() *Remote {
	return &Remote{records: make(map[string][]remote.Item), ErrFor: make(map[string]error)}
}

func bucket(owner, collection string) string { return owner + "/" + collection }

// Seed добавляет n записей с текстом в коллекцию
func (r *Remote) Seed(owner, collection string, n int) {
	for i := 0; i < n; i++ {
		r.Add(owner, collection, remote.Record{"$type": collection, "text": fmt.Sprintf("post %d", i)})
	}
}

// Add добавляет запись и возвращает ее адрес
func (r *Remote) Add(owner, collection string, rec remote.Record) remote.WriteResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(owner, collection, rec)
}

func (r *Remote) add(owner, collection string, rec remote.Record) remote.WriteResult {
	r.seq++
	rkey := fmt.Sprintf("3k%06d", r.seq)
	res := remote.WriteResult{
		URI: remote.NewURI(owner, collection, rkey).String(),
		CID: "bafy" + strconv.Itoa(r.seq),
	}
	b := bucket(owner, collection)
	r.records[b] = append(r.records[b], remote.Item{URI: res.URI, CID: res.CID, Value: rec})
	return res
}

func (r *Remote) ListRecords(_ context.Context, owner, collection, cursor string, limit int) (*remote.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Lists++
	if r.ListErr != nil && r.Lists >= r.ListErrAt {
		return nil, r.ListErr
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}

	items := r.records[bucket(owner, collection)]
	end := min(start+limit, len(items))
	page := &remote.Page{Items: append([]remote.Item(nil), items[start:end]...)}
	if end < len(items) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

func (r *Remote) CreateRecord(_ context.Context, owner, collection string, rec remote.Record) (*remote.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Creates++
	if err := r.ErrFor[collection]; err != nil {
		return nil, err
	}
	res := r.add(owner, collection, rec)
	return &res, nil
}

func (r *Remote) PutRecord(_ context.Context, owner, collection, rkey string, rec remote.Record) (*remote.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Puts++
	if err := r.ErrFor[collection]; err != nil {
		return nil, err
	}

	r.seq++
	uri := remote.NewURI(owner, collection, rkey).String()
	item := remote.Item{URI: uri, CID: "bafy" + strconv.Itoa(r.seq), Value: rec}

	b := bucket(owner, collection)
	for i, it := range r.records[b] {
		if it.URI == uri {
			r.records[b][i] = item
			return &remote.WriteResult{URI: uri, CID: item.CID}, nil
		}
	}
	r.records[b] = append(r.records[b], item)
	return &remote.WriteResult{URI: uri, CID: item.CID}, nil
}

func (r *Remote) DeleteRecord(_ context.Context, owner, collection, rkey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Deletes++
	if r.DeleteErr != nil {
		return r.DeleteErr
	}

	uri := remote.NewURI(owner, collection, rkey).String()
	b := bucket(owner, collection)
	for i, it := range r.records[b] {
		if it.URI == uri {
			r.records[b] = append(r.records[b][:i], r.records[b][i+1:]...)
			return nil
		}
	}
	return &remote.APIError{Status: 400, Code: "RecordNotFound", Message: "Could not locate record: " + uri}
}

// Count число записей коллекции
func (r *Remote) Count(owner, collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records[bucket(owner, collection)])
}
