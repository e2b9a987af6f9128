package models

import (
	"gorm.io/datatypes"
)

type NotificationRule struct {
	BaseModel `bson:",inline"`

	UserID      string         `gorm:"type:uuid;not null;index" json:"userId" bson:"userId"`
	TriggerType string         `gorm:"not null" json:"triggerType" bson:"triggerType"` // "event_created", "reminder"
	Channel     string         `gorm:"not null" json:"channel" bson:"channel"`         // "email", "discord", "slack"
	IsActive    bool           `gorm:"not null" json:"isActive" bson:"isActive"`
	Config      datatypes.JSON `gorm:"type:jsonb" json:"config" bson:"config"`
}
