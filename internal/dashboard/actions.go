package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/bg"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/store"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/go-playground/validator/v10"
)

const notifyTimeout = 30 * time.Second

type ActionStore interface {
	store.EventStore
	store.DocumentStore
}

// EventNotifier is the best-effort side channel run after an event is
// created. It reports nothing back.
type EventNotifier interface {
	EventCreated(ctx context.Context, user types.UserResponse, event models.Event)
}

// Actions are the user-issued mutations. Every call validates first, checks
// that the event belongs to the caller and converts store failures into a
// *Failure carrying the toast to show. Results are observed through the
// subscriptions, not through these return values.
type Actions struct {
	store    ActionStore
	notifier EventNotifier
	runner   bg.Runner
	validate *validator.Validate
}

func NewActions(s ActionStore, notifier EventNotifier, runner bg.Runner) *Actions {
	if runner == nil {
		runner = &bg.Async{}
	}
	return &Actions{store: s, notifier: notifier, runner: runner, validate: newValidator()}
}

func fail(toast Toast, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	return &Failure{Toast: toast, Err: err}
}

// OwnedEvent loads an event and hides it from anyone but its owner.
func (a *Actions) OwnedEvent(ctx context.Context, userID, eventID string) (models.Event, error) {
	event, err := a.store.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if event.UserID != userID {
		return models.Event{}, store.ErrNotFound
	}
	return event, nil
}

func (a *Actions) CreateEvent(ctx context.Context, user types.UserResponse, in EventInput) (models.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(a.validate, in); err != nil {
		return models.Event{}, err
	}
	pref, _ := types.ParseReminderPreference(in.ReminderPreference)

	event := models.Event{
		Title:              in.Title,
		UserID:             user.ID,
		DueDate:            in.DueDate,
		ReminderPreference: pref,
	}
	if err := a.store.CreateEvent(ctx, &event); err != nil {
		log.Error("Failed to create event", err, "user_id", user.ID)
		return models.Event{}, fail(ToastCreateEventFailed, err)
	}

	if a.notifier != nil {
		a.runner.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			a.notifier.EventCreated(ctx, user, event)
		})
	}

	return event, nil
}

// UpdateEvent edits user-owned fields. Completion is derived from the
// documents and cannot be set here.
func (a *Actions) UpdateEvent(ctx context.Context, userID, eventID string, in EventUpdateInput) error {
	in.Title = trimmed(in.Title)
	if err := validateInput(a.validate, in); err != nil {
		return err
	}

	patch := models.EventPatch{Title: in.Title}
	if in.ClearDueDate {
		patch.ClearDueDate = true
	} else {
		patch.DueDate = in.DueDate
	}
	if in.ReminderPreference != nil {
		pref, _ := types.ParseReminderPreference(*in.ReminderPreference)
		patch.ReminderPreference = &pref
	}

	if _, err := a.OwnedEvent(ctx, userID, eventID); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	if err := a.store.UpdateEvent(ctx, eventID, patch); err != nil {
		log.Error("Failed to update event", err, "event_id", eventID)
		return fail(ToastUpdateEventFailed, err)
	}
	return nil
}

func (a *Actions) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if _, err := a.OwnedEvent(ctx, userID, eventID); err != nil {
		return err
	}

	if err := a.store.DeleteEventCascade(ctx, eventID); err != nil {
		log.Error("Failed to delete event", err, "event_id", eventID)
		return fail(ToastDeleteEventFailed, err)
	}
	return nil
}

func (a *Actions) AddDocument(ctx context.Context, userID, eventID string, in DocumentInput) (models.Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.GoogleDocsLink = strings.TrimSpace(in.GoogleDocsLink)
	if err := validateInput(a.validate, in); err != nil {
		return models.Document{}, err
	}

	if _, err := a.OwnedEvent(ctx, userID, eventID); err != nil {
		return models.Document{}, err
	}

	doc := models.Document{
		Title:          in.Title,
		GoogleDocsLink: in.GoogleDocsLink,
		DueDate:        *in.DueDate,
		Status:         types.StatusInProgress,
	}
	if err := a.store.CreateDocument(ctx, eventID, &doc); err != nil {
		log.Error("Failed to add document", err, "event_id", eventID)
		return models.Document{}, fail(ToastAddDocumentFailed, err)
	}

	return doc, nil
}

func (a *Actions) UpdateDocument(ctx context.Context, userID, eventID, docID string, in DocumentUpdateInput) error {
	in.Title = trimmed(in.Title)
	in.GoogleDocsLink = trimmed(in.GoogleDocsLink)
	if err := validateInput(a.validate, in); err != nil {
		return err
	}

	patch := models.DocumentPatch{
		Title:          in.Title,
		GoogleDocsLink: in.GoogleDocsLink,
		DueDate:        in.DueDate,
	}
	if in.Status != nil {
		status, _ := types.ParseDocumentStatus(*in.Status)
		patch.Status = &status
	}

	return a.patchDocument(ctx, userID, eventID, docID, patch, ToastUpdateDocumentFailed)
}

func (a *Actions) SetStatus(ctx context.Context, userID, eventID, docID, status string) error {
	if err := validateInput(a.validate, statusInput{Status: status}); err != nil {
		return err
	}
	parsed, _ := types.ParseDocumentStatus(status)

	return a.patchDocument(ctx, userID, eventID, docID, models.StatusPatch(parsed), ToastUpdateStatusFailed)
}

func (a *Actions) SetCompletion(ctx context.Context, userID, eventID, docID string, completed bool) error {
	return a.patchDocument(ctx, userID, eventID, docID, models.CompletionPatch(completed), ToastUpdateCompletionFailed)
}

func (a *Actions) patchDocument(ctx context.Context, userID, eventID, docID string, patch models.DocumentPatch, toast Toast) error {
	if _, err := a.OwnedEvent(ctx, userID, eventID); err != nil {
		return err
	}
	if patch.Empty() {
		_, err := a.store.GetDocument(ctx, eventID, docID)
		return err
	}

	if err := a.store.UpdateDocument(ctx, eventID, docID, patch); err != nil {
		log.Error("Failed to update document", err, "event_id", eventID, "document_id", docID)
		return fail(toast, err)
	}
	return nil
}

func (a *Actions) DeleteDocument(ctx context.Context, userID, eventID, docID string) error {
	if _, err := a.OwnedEvent(ctx, userID, eventID); err != nil {
		return err
	}

	if err := a.store.DeleteDocument(ctx, eventID, docID); err != nil {
		log.Error("Failed to delete document", err, "event_id", eventID, "document_id", docID)
		return fail(ToastDeleteDocumentFailed, err)
	}
	return nil
}
