package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
)

// MemoryStore keeps everything in process. It backs the "memory" driver for
// local development and serves as the store fake in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	broker *Broker
	now    func() time.Time

	events    []models.Event
	documents map[string][]models.Document // event id -> documents in creation order
	users     []models.User
	rules     []models.NotificationRule

	failWith error
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		broker:    NewBroker(),
		now:       func() time.Time { return time.Now().UTC() },
		documents: make(map[string][]models.Document),
	}
}

// SetClock overrides the timestamp source used for createdAt.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// FailMutations makes every subsequent mutation return err until it is
// called again with nil.
func (s *MemoryStore) FailMutations(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

func (s *MemoryStore) Broker() *Broker {
	return s.broker
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// mutable must be called with s.mu held.
func (s *MemoryStore) mutable() error {
	if s.closed {
		return ErrClosed
	}
	return s.failWith
}

func (s *MemoryStore) eventIndex(id string) int {
	return slices.IndexFunc(s.events, func(e models.Event) bool { return e.ID == id })
}

// Events

func (s *MemoryStore) SubscribeEvents(ctx context.Context, userID string) (*Subscription[models.Event], error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return watch(ctx, s.broker, EventsTopic(userID), func(ctx context.Context) ([]models.Event, error) {
		return s.ListEvents(ctx, userID)
	}), nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, userID string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []models.Event{}
	for _, e := range s.events {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.eventIndex(id)
	if i < 0 {
		return models.Event{}, ErrNotFound
	}
	return s.events[i], nil
}

func (s *MemoryStore) CreateEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return err
	}

	event.Stamp(s.now())
	if event.ReminderPreference == "" {
		event.ReminderPreference = types.ReminderNone
	}
	s.events = append(s.events, *event)
	s.mu.Unlock()

	s.broker.Publish(EventsTopic(event.UserID))
	return nil
}

func (s *MemoryStore) UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return err
	}

	i := s.eventIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	patch.Apply(&s.events[i])
	userID := s.events[i].UserID
	s.mu.Unlock()

	s.broker.Publish(EventsTopic(userID))
	return nil
}

func (s *MemoryStore) DeleteEventCascade(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return err
	}

	i := s.eventIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	userID := s.events[i].UserID
	s.events = slices.Delete(s.events, i, i+1)
	delete(s.documents, id)
	s.mu.Unlock()

	s.broker.Publish(EventsTopic(userID), DocumentsTopic(id))
	return nil
}

func (s *MemoryStore) ListReminderEvents(ctx context.Context) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []models.Event
	for _, e := range s.events {
		if !e.IsCompleted && e.DueDate != nil && e.ReminderPreference != types.ReminderNone && e.ReminderPreference != "" {
			events = append(events, e)
		}
	}
	return events, nil
}

// Documents

func (s *MemoryStore) SubscribeDocuments(ctx context.Context, eventID string) (*Subscription[models.Document], error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return watch(ctx, s.broker, DocumentsTopic(eventID), func(ctx context.Context) ([]models.Document, error) {
		return s.ListDocuments(ctx, eventID)
	}), nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, eventID string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]models.Document, len(s.documents[eventID]))
	copy(docs, s.documents[eventID])
	return docs, nil
}

func (s *MemoryStore) documentIndex(eventID, id string) int {
	return slices.IndexFunc(s.documents[eventID], func(d models.Document) bool { return d.ID == id })
}

func (s *MemoryStore) GetDocument(ctx context.Context, eventID, id string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.documentIndex(eventID, id)
	if i < 0 {
		return models.Document{}, ErrNotFound
	}
	return s.documents[eventID][i], nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, eventID string, doc *models.Document) error {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.eventIndex(eventID) < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	doc.Stamp(s.now())
	doc.EventID = eventID
	doc.Normalize()
	s.documents[eventID] = append(s.documents[eventID], *doc)
	s.mu.Unlock()

	s.broker.Publish(DocumentsTopic(eventID))
	return nil
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, eventID, id string, patch models.DocumentPatch) error {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return err
	}

	i := s.documentIndex(eventID, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	patch.Apply(&s.documents[eventID][i])
	s.mu.Unlock()

	s.broker.Publish(DocumentsTopic(eventID))
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, eventID, id string) error {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return err
	}

	i := s.documentIndex(eventID, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.documents[eventID] = slices.Delete(s.documents[eventID], i, i+1)
	s.mu.Unlock()

	s.broker.Publish(DocumentsTopic(eventID))
	return nil
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrConflict
		}
	}

	user.Stamp(s.now())
	s.users = append(s.users, *user)
	return nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) UserByID(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// Notification rules

func (s *MemoryStore) CreateRule(ctx context.Context, rule *models.NotificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return err
	}
	rule.Stamp(s.now())
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *MemoryStore) ListRules(ctx context.Context, userID string) ([]models.NotificationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := []models.NotificationRule{}
	for _, r := range s.rules {
		if r.UserID == userID {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func (s *MemoryStore) DeleteRule(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return err
	}
	i := slices.IndexFunc(s.rules, func(r models.NotificationRule) bool {
		return r.ID == id && r.UserID == userID
	})
	if i < 0 {
		return ErrNotFound
	}
	s.rules = slices.Delete(s.rules, i, i+1)
	return nil
}

var _ Store = (*MemoryStore)(nil)
