package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
	"gorm.io/gorm"
)

// NotifyChannel is the postgres channel used to share change topics between
// server instances.
const NotifyChannel = "docutrack_changes"

// GormStore is the postgres adapter.
type GormStore struct {
	db     *gorm.DB
	broker *Broker
	notify bool
}

type GormOption func(*GormStore)

// WithPGNotify makes every mutation also NOTIFY its topics so that a
// PGListener in another process can refresh its own subscribers.
func WithPGNotify() GormOption {
	return func(s *GormStore) {
		s.notify = true
	}
}

func NewGormStore(db *gorm.DB, broker *Broker, opts ...GormOption) *GormStore {
	if broker == nil {
		broker = NewBroker()
	}

	s := &GormStore{db: db, broker: broker}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *GormStore) Broker() *Broker {
	return s.broker
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

// mutate runs fn in a transaction and publishes the returned topics after
// commit. With pg notify enabled the topics are also sent through NOTIFY
// inside the same transaction, so listeners only hear about committed work.
func (s *GormStore) mutate(ctx context.Context, fn func(tx *gorm.DB) ([]string, error)) error {
	var topics []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		topics, err = fn(tx)
		if err != nil {
			return err
		}

		if s.notify && len(topics) > 0 {
			payload := strings.Join(topics, "\n")
			if err := tx.Exec("SELECT pg_notify(?, ?)", NotifyChannel, payload).Error; err != nil {
				return fmt.Errorf("notify: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return translate(err)
	}

	s.broker.Publish(topics...)
	return nil
}

// Events

func (s *GormStore) SubscribeEvents(ctx context.Context, userID string) (*Subscription[models.Event], error) {
	return watch(ctx, s.broker, EventsTopic(userID), func(ctx context.Context) ([]models.Event, error) {
		return s.ListEvents(ctx, userID)
	}), nil
}

func (s *GormStore) ListEvents(ctx context.Context, userID string) ([]models.Event, error) {
	var events []models.Event

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return events, nil
}

func (s *GormStore) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var event models.Event

	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return models.Event{}, translate(err)
	}

	return event, nil
}

func (s *GormStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ReminderPreference == "" {
		event.ReminderPreference = types.ReminderNone
	}

	return s.mutate(ctx, func(tx *gorm.DB) ([]string, error) {
		if err := tx.Create(event).Error; err != nil {
			return nil, err
		}
		return []string{EventsTopic(event.UserID)}, nil
	})
}

func (s *GormStore) UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error {
	return s.mutate(ctx, func(tx *gorm.DB) ([]string, error) {
		var event models.Event
		if err := tx.Select("id", "user_id").Where("id = ?", id).First(&event).Error; err != nil {
			return nil, err
		}

		if cols := patch.Columns(); len(cols) > 0 {
			if err := tx.Model(&models.Event{}).Where("id = ?", id).Updates(cols).Error; err != nil {
				return nil, err
			}
		}

		return []string{EventsTopic(event.UserID)}, nil
	})
}

func (s *GormStore) DeleteEventCascade(ctx context.Context, id string) error {
	return s.mutate(ctx, func(tx *gorm.DB) ([]string, error) {
		var event models.Event
		if err := tx.Select("id", "user_id").Where("id = ?", id).First(&event).Error; err != nil {
			return nil, err
		}

		if err := tx.Where("event_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return nil, err
		}

		if err := tx.Where("id = ?", id).Delete(&models.Event{}).Error; err != nil {
			return nil, err
		}

		return []string{EventsTopic(event.UserID), DocumentsTopic(id)}, nil
	})
}

func (s *GormStore) ListReminderEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event

	err := s.db.WithContext(ctx).
		Where("is_completed = ? AND due_date IS NOT NULL AND reminder_preference <> ?", false, types.ReminderNone).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list reminder events: %w", err)
	}

	return events, nil
}

// Documents

func (s *GormStore) SubscribeDocuments(ctx context.Context, eventID string) (*Subscription[models.Document], error) {
	return watch(ctx, s.broker, DocumentsTopic(eventID), func(ctx context.Context) ([]models.Document, error) {
		return s.ListDocuments(ctx, eventID)
	}), nil
}

func (s *GormStore) ListDocuments(ctx context.Context, eventID string) ([]models.Document, error) {
	var docs []models.Document

	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

func (s *GormStore) GetDocument(ctx context.Context, eventID, id string) (models.Document, error) {
	var doc models.Document

	if err := s.db.WithContext(ctx).Where("id = ? AND event_id = ?", id, eventID).First(&doc).Error; err != nil {
		return models.Document{}, translate(err)
	}

	return doc, nil
}

func (s *GormStore) CreateDocument(ctx context.Context, eventID string, doc *models.Document) error {
	doc.EventID = eventID

	return s.mutate(ctx, func(tx *gorm.DB) ([]string, error) {
		var count int64
		if err := tx.Model(&models.Event{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, gorm.ErrRecordNotFound
		}

		if err := tx.Create(doc).Error; err != nil {
			return nil, err
		}
		return []string{DocumentsTopic(eventID)}, nil
	})
}

func (s *GormStore) UpdateDocument(ctx context.Context, eventID, id string, patch models.DocumentPatch) error {
	return s.mutate(ctx, func(tx *gorm.DB) ([]string, error) {
		var count int64
		if err := tx.Model(&models.Document{}).Where("id = ? AND event_id = ?", id, eventID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, gorm.ErrRecordNotFound
		}

		if cols := patch.Columns(); len(cols) > 0 {
			if err := tx.Model(&models.Document{}).Where("id = ? AND event_id = ?", id, eventID).UpdateColumns(cols).Error; err != nil {
				return nil, err
			}
		}

		return []string{DocumentsTopic(eventID)}, nil
	})
}

func (s *GormStore) DeleteDocument(ctx context.Context, eventID, id string) error {
	return s.mutate(ctx, func(tx *gorm.DB) ([]string, error) {
		result := tx.Where("id = ? AND event_id = ?", id, eventID).Delete(&models.Document{})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		return []string{DocumentsTopic(eventID)}, nil
	})
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, translate(err)
	}

	return user, nil
}

func (s *GormStore) UserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return models.User{}, translate(err)
	}

	return user, nil
}

// Notification rules

func (s *GormStore) CreateRule(ctx context.Context, rule *models.NotificationRule) error {
	return translate(s.db.WithContext(ctx).Create(rule).Error)
}

func (s *GormStore) ListRules(ctx context.Context, userID string) ([]models.NotificationRule, error) {
	var rules []models.NotificationRule

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("list notification rules: %w", err)
	}

	return rules, nil
}

func (s *GormStore) DeleteRule(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.NotificationRule{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*GormStore)(nil)
