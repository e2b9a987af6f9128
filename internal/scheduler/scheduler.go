package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docutrack/docutrack/internal/engine"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/reminder"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/robfig/cron/v3"
)

type ReminderStore interface {
	ListReminderEvents(ctx context.Context) ([]models.Event, error)
	ListDocuments(ctx context.Context, eventID string) ([]models.Document, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

type ReminderNotifier interface {
	Reminder(ctx context.Context, user types.UserResponse, event models.Event, text, progress string) error
}

// Scheduler sends due reminders once per cron tick.
type Scheduler struct {
	store    ReminderStore
	notifier ReminderNotifier
	spec     string
	loc      *time.Location
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler(store ReminderStore, notifier ReminderNotifier, spec string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		spec:     spec,
		loc:      loc,
		now:      time.Now,
	}
}

// Start registers the reminder job and begins scheduling
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	log.Info("Starting scheduler...", "schedule", s.spec, "timezone", s.loc)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	c := cron.New(cron.WithLocation(s.loc))

	_, err := c.AddFunc(s.spec, func() {
		sent, err := s.RunOnce(s.ctx, s.now())
		if err != nil {
			log.Error("Reminder run failed", err)
			return
		}
		log.Info("Reminder run finished", "sent", sent)
	})
	if err != nil {
		s.cancel()
		return fmt.Errorf("schedule reminders %q: %w", s.spec, err)
	}

	c.Start()
	s.cron = c
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running job
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	cancel := s.cancel
	s.mu.Unlock()

	if c == nil {
		return
	}

	log.Info("Stopping scheduler...")
	cancel()
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

// RunOnce sends every reminder due on now's date and returns how many went
// out. Individual delivery failures are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	now = now.In(s.loc)

	events, err := s.store.ListReminderEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reminder events: %w", err)
	}

	users := make(map[string]*models.User)
	sent := 0

	for _, event := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if !reminder.ShouldSend(event.ReminderPreference, event.DueDate, now) {
			continue
		}

		user, ok := users[event.UserID]
		if !ok {
			u, err := s.store.UserByID(ctx, event.UserID)
			if err != nil {
				log.Error("Failed to load event owner", err, "event_id", event.ID, "user_id", event.UserID)
				users[event.UserID] = nil
				continue
			}
			user = &u
			users[event.UserID] = user
		}
		if user == nil {
			continue
		}

		text, _ := reminder.Text(event.ReminderPreference, event.DueDate, now)

		if err := s.notifier.Reminder(ctx, user.Profile(), event, text, s.progress(ctx, event.ID)); err != nil {
			log.Error("Failed to send reminder", err, "event_id", event.ID)
			continue
		}

		log.Debug("Reminder sent", "event_id", event.ID, "preference", event.ReminderPreference)
		sent++
	}

	return sent, nil
}

func (s *Scheduler) progress(ctx context.Context, eventID string) string {
	docs, err := s.store.ListDocuments(ctx, eventID)
	if err != nil {
		log.Warn("Failed to load documents for reminder", "event_id", eventID, "err", err)
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	completed := 0
	for _, doc := range docs {
		if doc.IsCompleted() {
			completed++
		}
	}
	return fmt.Sprintf("%d of %d (%d%%)", completed, len(docs), engine.CompletionPercent(completed, len(docs)))
}
