package models

import "github.com/docutrack/docutrack/internal/types"

type User struct {
	BaseModel `bson:",inline"`

	Name         string `gorm:"not null" json:"name" bson:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string `gorm:"not null" json:"-" bson:"passwordHash"`
	PhotoURL     string `json:"photoURL" bson:"photoURL"`

	// Relationships
	Events            []Event            `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-" bson:"-"`
	NotificationRules []NotificationRule `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-" bson:"-"`
}

// Profile is the identity handed to the rest of the system.
func (u User) Profile() types.UserResponse {
	return types.UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		PhotoURL: u.PhotoURL,
	}
}
