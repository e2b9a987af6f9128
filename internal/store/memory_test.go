package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func next[T any](t *testing.T, sub *Subscription[T]) []T {
	t.Helper()

	select {
	case snapshot, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return snapshot
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

// nextMatching drains snapshots until one satisfies match.
func nextMatching[T any](t *testing.T, sub *Subscription[T], match func([]T) bool) []T {
	t.Helper()

	deadline := time.After(waitFor)
	for {
		select {
		case snapshot, ok := <-sub.C:
			require.True(t, ok, "subscription closed")
			if match(snapshot) {
				return snapshot
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return nil
		}
	}
}

func seedEvent(t *testing.T, s *MemoryStore, userID, title string) models.Event {
	t.Helper()

	event := models.Event{Title: title, UserID: userID}
	require.NoError(t, s.CreateEvent(context.Background(), &event))
	return event
}

func seedDocument(t *testing.T, s *MemoryStore, eventID, title string, status types.DocumentStatus) models.Document {
	t.Helper()

	doc := models.Document{
		Title:          title,
		GoogleDocsLink: "https://docs.google.com/document/d/" + title,
		DueDate:        time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		Status:         status,
	}
	require.NoError(t, s.CreateDocument(context.Background(), eventID, &doc))
	return doc
}

func TestMemoryStore_SubscribeEventsInitialSnapshot(t *testing.T) {
	s := NewMemoryStore()
	seedEvent(t, s, "u1", "Thesis")
	seedEvent(t, s, "u2", "Other user")

	sub, err := s.SubscribeEvents(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	events := next(t, sub)
	require.Len(t, events, 1)
	assert.Equal(t, "Thesis", events[0].Title)
	assert.Equal(t, types.ReminderNone, events[0].ReminderPreference)
}

func TestMemoryStore_SubscribeEventsEmptyScope(t *testing.T) {
	s := NewMemoryStore()

	sub, err := s.SubscribeEvents(context.Background(), "nobody")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	events := next(t, sub)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestMemoryStore_SubscriptionSeesMutations(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	event := seedEvent(t, s, "u1", "Thesis")

	sub, err := s.SubscribeDocuments(ctx, event.ID)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Empty(t, next(t, sub))

	doc := seedDocument(t, s, event.ID, "draft", "")
	docs := nextMatching(t, sub, func(d []models.Document) bool { return len(d) == 1 })
	assert.Equal(t, types.StatusInProgress, docs[0].Status)
	assert.False(t, docs[0].Completed)

	require.NoError(t, s.UpdateDocument(ctx, event.ID, doc.ID, models.CompletionPatch(true)))
	docs = nextMatching(t, sub, func(d []models.Document) bool { return len(d) == 1 && d[0].IsCompleted() })
	assert.Equal(t, types.StatusCompleted, docs[0].Status)
	assert.True(t, docs[0].Completed)

	require.NoError(t, s.DeleteDocument(ctx, event.ID, doc.ID))
	nextMatching(t, sub, func(d []models.Document) bool { return len(d) == 0 })
}

func TestMemoryStore_DocumentsKeepCreationOrder(t *testing.T) {
	s := NewMemoryStore()
	event := seedEvent(t, s, "u1", "Thesis")

	for _, title := range []string{"c", "a", "b"} {
		seedDocument(t, s, event.ID, title, types.StatusInProgress)
	}

	docs, err := s.ListDocuments(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{docs[0].Title, docs[1].Title, docs[2].Title})
}

func TestMemoryStore_CoalescesUnreadSnapshots(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sub, err := s.SubscribeEvents(ctx, "u1")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 10; i++ {
		seedEvent(t, s, "u1", "event")
	}

	// A slow reader only ever sees the newest state once it catches up.
	events := nextMatching(t, sub, func(e []models.Event) bool { return len(e) == 10 })
	assert.Len(t, events, 10)
}

func TestMemoryStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sub, err := s.SubscribeEvents(ctx, "u1")
	require.NoError(t, err)
	next(t, sub)

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 0, s.Broker().Subscribers(EventsTopic("u1")))

	seedEvent(t, s, "u1", "after")
	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed")
}

func TestMemoryStore_ContextCancelReleasesSubscription(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := s.SubscribeEvents(ctx, "u1")
	require.NoError(t, err)
	next(t, sub)

	cancel()
	sub.Unsubscribe()
	assert.Equal(t, 0, s.Broker().Subscribers(EventsTopic("u1")))
}

func TestMemoryStore_DeleteEventCascade(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	event := seedEvent(t, s, "u1", "Thesis")
	keep := seedEvent(t, s, "u1", "Keep")
	seedDocument(t, s, event.ID, "one", types.StatusInProgress)
	seedDocument(t, s, event.ID, "two", types.StatusCompleted)
	seedDocument(t, s, keep.ID, "three", types.StatusInProgress)

	require.NoError(t, s.DeleteEventCascade(ctx, event.ID))

	_, err := s.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	orphans, err := s.ListDocuments(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	kept, err := s.ListDocuments(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	assert.ErrorIs(t, s.DeleteEventCascade(ctx, event.ID), ErrNotFound)
}

func TestMemoryStore_CreateDocumentRequiresEvent(t *testing.T) {
	s := NewMemoryStore()

	doc := models.Document{Title: "orphan"}
	err := s.CreateDocument(context.Background(), "missing", &doc)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateEventPatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	due := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	event := models.Event{Title: "Thesis", UserID: "u1", DueDate: &due}
	require.NoError(t, s.CreateEvent(ctx, &event))

	done := true
	require.NoError(t, s.UpdateEvent(ctx, event.ID, models.EventPatch{IsCompleted: &done, ClearDueDate: true}))

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "Thesis", got.Title)

	assert.ErrorIs(t, s.UpdateEvent(ctx, "missing", models.EventPatch{}), ErrNotFound)
}

func TestMemoryStore_FailMutations(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("permission denied")

	s.FailMutations(boom)
	err := s.CreateEvent(context.Background(), &models.Event{Title: "x", UserID: "u1"})
	assert.ErrorIs(t, err, boom)

	s.FailMutations(nil)
	assert.NoError(t, s.CreateEvent(context.Background(), &models.Event{Title: "x", UserID: "u1"}))
}

func TestMemoryStore_ListReminderEvents(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	due := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)

	create := func(pref types.ReminderPreference, dueDate *time.Time, completed bool) {
		event := models.Event{Title: "e", UserID: "u1", DueDate: dueDate, ReminderPreference: pref, IsCompleted: completed}
		require.NoError(t, s.CreateEvent(ctx, &event))
	}

	create(types.ReminderDaily, &due, false)
	create(types.ReminderNone, &due, false)
	create(types.ReminderDaily, nil, false)
	create(types.ReminderDaily, &due, true)

	events, err := s.ListReminderEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMemoryStore_Users(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, &user))
	assert.NotEmpty(t, user.ID)

	dup := models.User{Name: "Ada", Email: "ADA@example.com"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrConflict)

	got, err := s.UserByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Rules(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rule := models.NotificationRule{UserID: "u1", TriggerType: types.TriggerReminder, Channel: types.ChannelEmail, IsActive: true}
	require.NoError(t, s.CreateRule(ctx, &rule))

	rules, err := s.ListRules(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	assert.ErrorIs(t, s.DeleteRule(ctx, "u2", rule.ID), ErrNotFound)
	require.NoError(t, s.DeleteRule(ctx, "u1", rule.ID))

	rules, err = s.ListRules(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close(context.Background()))

	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)

	_, err := s.SubscribeEvents(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrClosed)
}
