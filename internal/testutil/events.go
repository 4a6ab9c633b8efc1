package testutil

import (
	"context"
	"sync"

	"reposync/internal/domain/event"
)

// Recorder диспетчер, запоминающий события
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *Recorder) Dispatch(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Names имена событий в порядке отправки
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name())
	}
	return out
}

// Named события с данным именем
func (r *Recorder) Named(name string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}
