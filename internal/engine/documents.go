package engine

import (
	"context"
	"sync"

	"github.com/docutrack/docutrack/internal/bg"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
)

type DocumentSource interface {
	SubscribeDocuments(ctx context.Context, eventID string) (*store.Subscription[models.Document], error)
}

type EventUpdater interface {
	UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error
}

// DocumentEngine keeps the live document list of one event and propagates
// "all documents complete" onto the event's isCompleted flag.
type DocumentEngine struct {
	source  DocumentSource
	updater EventUpdater
	opts    options

	mu        sync.RWMutex
	eventID   string
	gen       int
	sub       *store.Subscription[models.Document]
	loading   bool
	documents []models.Document

	// eventCompleted is the parent's flag as last observed or last written
	// by this engine. writing is set while a completion write is in flight;
	// at most one runs at a time and it re-reads documents when it returns.
	eventCompleted bool
	writing        bool
}

// NewDocumentEngine returns an idle engine. A nil source leaves it fed only
// through Apply.
func NewDocumentEngine(source DocumentSource, updater EventUpdater, opts ...Option) *DocumentEngine {
	return &DocumentEngine{source: source, updater: updater, opts: newOptions(opts)}
}

// SetEvent binds the engine to event. Rebinding to the same id only records
// the parent's current completion flag; a new id releases the previous
// subscription before opening the next one.
func (d *DocumentEngine) SetEvent(ctx context.Context, event models.Event) error {
	d.mu.Lock()
	if event.ID != "" && event.ID == d.eventID && (d.sub != nil || d.source == nil) {
		d.observe(event)
		d.mu.Unlock()
		return nil
	}

	old := d.sub
	d.sub = nil
	d.gen++
	gen := d.gen
	d.eventID = event.ID
	d.eventCompleted = event.IsCompleted
	d.writing = false
	d.documents = nil
	d.loading = event.ID != ""
	d.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}

	if event.ID == "" || d.source == nil {
		return nil
	}

	sub, err := d.source.SubscribeDocuments(ctx, event.ID)
	if err != nil {
		d.mu.Lock()
		if gen == d.gen {
			d.loading = false
		}
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	d.sub = sub
	d.mu.Unlock()

	go d.pump(gen, event.ID, sub)
	return nil
}

func (d *DocumentEngine) pump(gen int, eventID string, sub *store.Subscription[models.Document]) {
	for {
		select {
		case docs, ok := <-sub.C:
			if !ok {
				return
			}
			d.apply(gen, docs)
		case err := <-sub.Errors:
			log.Error("Document subscription error", err, "event_id", eventID)
		}
	}
}

// ObserveEvent records the parent event's stored completion flag.
func (d *DocumentEngine) ObserveEvent(event models.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if event.ID == d.eventID {
		d.observe(event)
	}
}

// observe must be called with d.mu held.
func (d *DocumentEngine) observe(event models.Event) {
	d.eventCompleted = event.IsCompleted
}

// Apply replaces the current snapshot and runs the completion rule.
func (d *DocumentEngine) Apply(docs []models.Document) {
	d.mu.RLock()
	gen := d.gen
	d.mu.RUnlock()

	d.apply(gen, docs)
}

func (d *DocumentEngine) apply(gen int, docs []models.Document) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}

	d.documents = docs
	d.loading = false

	all := allComplete(docs)
	propagate := !d.writing && all != d.eventCompleted && d.eventID != "" && d.updater != nil
	if propagate {
		d.writing = true
	}
	eventID := d.eventID
	d.mu.Unlock()

	d.opts.onChange()

	if propagate {
		d.opts.runner.Do(func() {
			d.writeCompletion(gen, eventID, all)
		})
	}
}

// writeCompletion writes completed and keeps writing until the flag agrees
// with the latest snapshot. Snapshots applied meanwhile only update the
// document list.
func (d *DocumentEngine) writeCompletion(gen int, eventID string, completed bool) {
	for {
		err := d.update(eventID, completed)

		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		if err != nil {
			// The next snapshot retries.
			d.writing = false
			d.mu.Unlock()
			d.opts.onError(err)
			return
		}

		d.eventCompleted = completed
		want := allComplete(d.documents)
		if want == completed {
			d.writing = false
			d.mu.Unlock()
			return
		}
		completed = want
		d.mu.Unlock()
	}
}

func (d *DocumentEngine) update(eventID string, completed bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
	defer cancel()

	err := d.updater.UpdateEvent(ctx, eventID, models.EventPatch{IsCompleted: &completed})
	if err != nil {
		log.Error("Failed to propagate event completion", err, "event_id", eventID, "completed", completed)
		return err
	}
	log.Debug("Propagated event completion", "event_id", eventID, "completed", completed)
	return nil
}

func allComplete(docs []models.Document) bool {
	if len(docs) == 0 {
		return false
	}
	for _, doc := range docs {
		if !doc.IsCompleted() {
			return false
		}
	}
	return true
}

// Loading reports whether the first snapshot for the current event is still
// outstanding.
func (d *DocumentEngine) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// Documents returns the last snapshot in creation order.
func (d *DocumentEngine) Documents() []models.Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Document{}, d.documents...)
}

func (d *DocumentEngine) counts() (completed, total int) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, doc := range d.documents {
		if doc.IsCompleted() {
			completed++
		}
	}
	return completed, len(d.documents)
}

// Ratio is the completed fraction, 0 when there are no documents.
func (d *DocumentEngine) Ratio() float64 {
	completed, total := d.counts()
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// Percent is the completed share for display, rounded down.
func (d *DocumentEngine) Percent() int {
	completed, total := d.counts()
	return CompletionPercent(completed, total)
}

// Close releases the subscription. Writes already issued still complete.
func (d *DocumentEngine) Close() {
	d.mu.Lock()
	old := d.sub
	d.sub = nil
	d.gen++
	d.eventID = ""
	d.loading = false
	d.writing = false
	d.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
}

func CompletionPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return completed * 100 / total
}

// Reconcile runs the completion rule once for event against docs and waits
// for the resulting write, if any. It serves callers that mutate documents
// without holding a live subscription.
func Reconcile(updater EventUpdater, event models.Event, docs []models.Document) error {
	var failed error

	d := NewDocumentEngine(nil, updater,
		WithRunner(bg.Sync{}),
		WithOnError(func(err error) { failed = err }),
	)
	defer d.Close()

	if err := d.SetEvent(context.Background(), event); err != nil {
		return err
	}
	d.Apply(docs)

	return failed
}
