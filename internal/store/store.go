// Package store is the remote store adapter: the only code that talks to the
// backing database. Reads are exposed as snapshot subscriptions per scope
// (a user's events, an event's documents); mutations never return entity
// state, callers observe their effect through the subscriptions.
package store

import (
	"context"
	"errors"

	"github.com/docutrack/docutrack/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	ErrClosed   = errors.New("store closed")
)

type EventStore interface {
	SubscribeEvents(ctx context.Context, userID string) (*Subscription[models.Event], error)
	ListEvents(ctx context.Context, userID string) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error
	// DeleteEventCascade removes the event and all of its documents atomically.
	DeleteEventCascade(ctx context.Context, id string) error
	// ListReminderEvents returns incomplete events with a due date and a
	// reminder preference other than none, across all users.
	ListReminderEvents(ctx context.Context) ([]models.Event, error)
}

type DocumentStore interface {
	SubscribeDocuments(ctx context.Context, eventID string) (*Subscription[models.Document], error)
	// ListDocuments returns documents in creation order.
	ListDocuments(ctx context.Context, eventID string) ([]models.Document, error)
	GetDocument(ctx context.Context, eventID, id string) (models.Document, error)
	CreateDocument(ctx context.Context, eventID string, doc *models.Document) error
	UpdateDocument(ctx context.Context, eventID, id string, patch models.DocumentPatch) error
	DeleteDocument(ctx context.Context, eventID, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.NotificationRule) error
	ListRules(ctx context.Context, userID string) ([]models.NotificationRule, error)
	DeleteRule(ctx context.Context, userID, id string) error
}

type Store interface {
	EventStore
	DocumentStore
	UserStore
	RuleStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func EventsTopic(userID string) string {
	return "users/" + userID + "/events"
}

func DocumentsTopic(eventID string) string {
	return "events/" + eventID + "/documents"
}

// EventsTopicPrefix matches every user's event topic.
const EventsTopicPrefix = "users/"
