package models

import (
	"time"

	"github.com/docutrack/docutrack/internal/types"
)

// Event is a user-owned deadline. IsCompleted is a cached flag maintained by
// the document engine: true iff the event has documents and all are complete.
type Event struct {
	BaseModel `bson:",inline"`

	Title              string                   `gorm:"not null" json:"title" bson:"title"`
	UserID             string                   `gorm:"type:uuid;not null;index" json:"userId" bson:"userId"`
	DueDate            *time.Time               `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	IsCompleted        bool                     `gorm:"not null;default:false" json:"isCompleted" bson:"isCompleted"`
	ReminderPreference types.ReminderPreference `gorm:"not null;default:'none'" json:"reminderPreference" bson:"reminderPreference"`

	// Relationships
	Documents []Document `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-" bson:"-"`
}

// EventPatch is a partial update. Nil fields are left untouched.
type EventPatch struct {
	Title              *string
	DueDate            *time.Time
	ClearDueDate       bool
	IsCompleted        *bool
	ReminderPreference *types.ReminderPreference
}

func (p EventPatch) Empty() bool {
	return p.Title == nil && p.DueDate == nil && !p.ClearDueDate && p.IsCompleted == nil && p.ReminderPreference == nil
}

// Columns returns the patch keyed by relational column name.
func (p EventPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})

	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.ClearDueDate {
		cols["due_date"] = nil
	} else if p.DueDate != nil {
		cols["due_date"] = *p.DueDate
	}
	if p.IsCompleted != nil {
		cols["is_completed"] = *p.IsCompleted
	}
	if p.ReminderPreference != nil {
		cols["reminder_preference"] = *p.ReminderPreference
	}

	return cols
}

// Apply mutates e in place. Used by stores that hold entities in memory.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.ClearDueDate {
		e.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		e.DueDate = &due
	}
	if p.IsCompleted != nil {
		e.IsCompleted = *p.IsCompleted
	}
	if p.ReminderPreference != nil {
		e.ReminderPreference = *p.ReminderPreference
	}
}
