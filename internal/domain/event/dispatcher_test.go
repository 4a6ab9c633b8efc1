package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Recorder собирает события для проверок в тестах
type Recorder struct {
	Events []Event
}

func (r *Recorder) Dispatch(_ context.Context, e Event) {
	r.Events = append(r.Events, e)
}

func TestBus_Dispatch(t *testing.T) {
	bus := NewBus()

	var named, all []string
	bus.Subscribe(NameSynced, func(_ context.Context, e Event) {
		named = append(named, e.Name())
	})
	bus.SubscribeAll(func(_ context.Context, e Event) {
		all = append(all, e.Name())
	})

	ctx := context.Background()
	bus.Dispatch(ctx, Synced{URI: "at://did:plc:a/app.bsky.feed.post/1"})
	bus.Dispatch(ctx, ImportStarted{Owner: "did:plc:a"})

	assert.Equal(t, []string{NameSynced}, named)
	assert.Equal(t, []string{NameSynced, NameImportStarted}, all)
}

func TestRecorder(t *testing.T) {
	var d Dispatcher = &Recorder{}
	d.Dispatch(context.Background(), Unsynced{})
	assert.Len(t, d.(*Recorder).Events, 1)
	Nop{}.Dispatch(context.Background(), Unsynced{})
}
