package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/docutrack/docutrack/internal/bg"
	"github.com/docutrack/docutrack/internal/engine"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/reminder"
)

const toastBuffer = 16

type SessionStore interface {
	engine.EventSource
	engine.DocumentSource
	engine.EventUpdater
}

// EventView is one event as rendered on the dashboard.
type EventView struct {
	models.Event

	Reminder         *string           `json:"reminder"`
	Documents        []models.Document `json:"documents"`
	DocumentsLoading bool              `json:"documentsLoading"`
	Ratio            float64           `json:"ratio"`
	Progress         int               `json:"progress"`
}

type View struct {
	Loading   bool        `json:"loading"`
	Active    []EventView `json:"active"`
	Completed []EventView `json:"completed"`
}

// Session is one signed-in user's live dashboard: an event engine for the
// user plus a document engine for every event currently in the snapshot.
// Document engines are opened and released as events come and go.
type Session struct {
	store  SessionStore
	now    func() time.Time
	loc    *time.Location
	runner bg.Runner

	ctx    context.Context
	cancel context.CancelFunc

	events *engine.EventEngine

	mu     sync.Mutex
	docs   map[string]*engine.DocumentEngine
	closed bool

	updates chan struct{}
	toasts  chan Toast
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// WithLocation sets the zone reminder dates are compared in.
func WithLocation(loc *time.Location) SessionOption {
	return func(s *Session) {
		s.loc = loc
	}
}

func WithRunner(r bg.Runner) SessionOption {
	return func(s *Session) {
		s.runner = r
	}
}

func NewSession(st SessionStore, opts ...SessionOption) *Session {
	s := &Session{
		store:   st,
		now:     time.Now,
		loc:     time.UTC,
		runner:  &bg.Async{},
		docs:    make(map[string]*engine.DocumentEngine),
		updates: make(chan struct{}, 1),
		toasts:  make(chan Toast, toastBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.events = engine.NewEventEngine(st, engine.WithOnChange(s.reconcile))
	return s
}

// Start subscribes to userID's events. ctx bounds every subscription the
// session opens.
func (s *Session) Start(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	sctx := s.ctx
	s.mu.Unlock()

	return s.events.SetUser(sctx, userID)
}

// Updates signals that View has changed. Signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) Toasts() <-chan Toast {
	return s.toasts
}

// Notify queues a toast. When the queue is full the toast is dropped.
func (s *Session) Notify(t Toast) {
	select {
	case s.toasts <- t:
	default:
		log.Warn("Dropping toast, queue full", "title", t.Title)
	}
}

func (s *Session) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Session) completionFailed(err error) {
	s.Notify(ToastEventCompletionFailed)
}

// reconcile aligns the document engines with the current event snapshot.
func (s *Session) reconcile() {
	events := s.events.Events()

	s.mu.Lock()
	if s.closed || s.ctx == nil {
		s.mu.Unlock()
		s.signal()
		return
	}

	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		seen[ev.ID] = struct{}{}

		eng, exists := s.docs[ev.ID]
		if !exists {
			eng = engine.NewDocumentEngine(s.store, s.store,
				engine.WithRunner(s.runner),
				engine.WithOnChange(s.signal),
				engine.WithOnError(s.completionFailed),
			)
			s.docs[ev.ID] = eng
		}

		if err := eng.SetEvent(s.ctx, ev); err != nil {
			log.Error("Failed to subscribe to documents", err, "event_id", ev.ID)
		}
	}

	var stale []*engine.DocumentEngine
	for id, eng := range s.docs {
		if _, ok := seen[id]; !ok {
			stale = append(stale, eng)
			delete(s.docs, id)
		}
	}
	s.mu.Unlock()

	for _, eng := range stale {
		eng.Close()
	}
	s.signal()
}

// Documents returns the engine for eventID, if the event is in view.
func (s *Session) Documents(eventID string) (*engine.DocumentEngine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, ok := s.docs[eventID]
	return eng, ok
}

func (s *Session) View() View {
	now := s.now().In(s.loc)

	s.mu.Lock()
	docs := make(map[string]*engine.DocumentEngine, len(s.docs))
	for id, eng := range s.docs {
		docs[id] = eng
	}
	s.mu.Unlock()

	render := func(events []models.Event) []EventView {
		views := make([]EventView, 0, len(events))
		for _, ev := range events {
			view := EventView{Event: ev, Documents: []models.Document{}, DocumentsLoading: true}

			if text, ok := reminder.Text(ev.ReminderPreference, ev.DueDate, now); ok {
				view.Reminder = &text
			}
			if eng, ok := docs[ev.ID]; ok {
				view.Documents = eng.Documents()
				view.DocumentsLoading = eng.Loading()
				view.Ratio = eng.Ratio()
				view.Progress = eng.Percent()
			}

			views = append(views, view)
		}
		return views
	}

	return View{
		Loading:   s.events.Loading(),
		Active:    render(s.events.Active()),
		Completed: render(s.events.Completed()),
	}
}

// Close releases every subscription. Mutations already issued still run to
// completion.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	engines := make([]*engine.DocumentEngine, 0, len(s.docs))
	for id, eng := range s.docs {
		engines = append(engines, eng)
		delete(s.docs, id)
	}
	s.mu.Unlock()

	s.events.Close()
	for _, eng := range engines {
		eng.Close()
	}
}
