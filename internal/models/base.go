package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the string id and creation timestamp shared by every
// stored entity. Ids are UUIDs so they can be minted by any store adapter.
type BaseModel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id" bson:"_id"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt" bson:"createdAt"`
}

// Stamp assigns an id and creation time when they are unset.
func (m *BaseModel) Stamp(now time.Time) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
}

func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	m.Stamp(time.Now().UTC())
	return nil
}
