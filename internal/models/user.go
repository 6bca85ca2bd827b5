package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile is an account identity together with its editable profile fields.
type UserProfile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	DisplayName  string    `gorm:"size:120" json:"display_name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PhotoURL     string    `gorm:"size:512" json:"photo_url,omitempty"`
	Country      string    `gorm:"size:64" json:"country,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps profiles in the users table.
func (UserProfile) TableName() string {
	return "users"
}

// BeforeCreate assigns the identity.
func (u *UserProfile) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
