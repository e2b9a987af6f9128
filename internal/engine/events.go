package engine

import (
	"context"
	"sync"

	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
)

type EventSource interface {
	SubscribeEvents(ctx context.Context, userID string) (*store.Subscription[models.Event], error)
}

// EventEngine keeps the live, partitioned event list of one user.
type EventEngine struct {
	source EventSource
	opts   options

	mu        sync.RWMutex
	userID    string
	gen       int
	sub       *store.Subscription[models.Event]
	loading   bool
	events    []models.Event
	active    []models.Event
	completed []models.Event
}

// NewEventEngine returns an idle engine. A nil source leaves it fed only
// through Apply.
func NewEventEngine(source EventSource, opts ...Option) *EventEngine {
	return &EventEngine{source: source, opts: newOptions(opts)}
}

// SetUser switches the engine to userID. The previous subscription is
// released before the new one is opened. An empty userID only tears down.
func (e *EventEngine) SetUser(ctx context.Context, userID string) error {
	e.mu.Lock()
	if userID == e.userID && (e.sub != nil || e.source == nil) && userID != "" {
		e.mu.Unlock()
		return nil
	}

	old := e.sub
	e.sub = nil
	e.gen++
	gen := e.gen
	e.userID = userID
	e.loading = userID != ""
	e.events, e.active, e.completed = nil, nil, nil
	e.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	e.opts.onChange()

	if userID == "" || e.source == nil {
		return nil
	}

	sub, err := e.source.SubscribeEvents(ctx, userID)
	if err != nil {
		e.mu.Lock()
		if gen == e.gen {
			e.loading = false
		}
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	e.sub = sub
	e.mu.Unlock()

	go e.pump(gen, userID, sub)
	return nil
}

func (e *EventEngine) pump(gen int, userID string, sub *store.Subscription[models.Event]) {
	for {
		select {
		case events, ok := <-sub.C:
			if !ok {
				return
			}
			e.apply(gen, events)
		case err := <-sub.Errors:
			log.Error("Event subscription error", err, "user_id", userID)
		}
	}
}

// Apply replaces the current snapshot.
func (e *EventEngine) Apply(events []models.Event) {
	e.mu.RLock()
	gen := e.gen
	e.mu.RUnlock()

	e.apply(gen, events)
}

func (e *EventEngine) apply(gen int, events []models.Event) {
	active, completed := Partition(events)

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.events = events
	e.active = active
	e.completed = completed
	e.loading = false
	e.mu.Unlock()

	e.opts.onChange()
}

// Loading reports whether the first snapshot for the current user is still
// outstanding.
func (e *EventEngine) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

// Events returns the last snapshot in store order.
func (e *EventEngine) Events() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Event(nil), e.events...)
}

func (e *EventEngine) Active() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Event{}, e.active...)
}

func (e *EventEngine) Completed() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Event{}, e.completed...)
}

func (e *EventEngine) Event(id string) (models.Event, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ev := range e.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return models.Event{}, false
}

// Close releases the subscription. The engine can be reused with SetUser.
func (e *EventEngine) Close() {
	e.mu.Lock()
	old := e.sub
	e.sub = nil
	e.gen++
	e.userID = ""
	e.loading = false
	e.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
}
