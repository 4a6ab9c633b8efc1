package event

import (
	"context"
	"sync"

	"golang.org/x/exp/slog"
)

// Dispatcher доставляет события наблюдателям
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event)
}

// Handler обработчик событий шины
type Handler func(ctx context.Context, e Event)

// Bus синхронная шина событий внутри процесса
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe подписывает обработчик на событие по имени
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// SubscribeAll подписывает обработчик на все события
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

func (b *Bus) Dispatch(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.all)+len(b.handlers[e.Name()]))
	hs = append(hs, b.handlers[e.Name()]...)
	hs = append(hs, b.all...)
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, e)
	}
}

// LogHandler пишет события в лог на уровне debug
func LogHandler(log *slog.Logger) Handler {
	log = log.With("component", "events")
	return func(ctx context.Context, e Event) {
		log.Debug("event dispatched", slog.String("event", e.Name()), slog.Any("payload", e))
	}
}

// Nop диспетчер, отбрасывающий события
type Nop struct{}

func (Nop) Dispatch(context.Context, Event) {}
