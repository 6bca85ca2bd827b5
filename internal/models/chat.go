package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Valid reports whether the role is one of the supported roles.
func (r ChatRole) Valid() bool {
	return r == ChatRoleUser || r == ChatRoleAssistant
}

// ChatSession is one continuous support conversation owned by a user.
type ChatSession struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	UserID    string            `gorm:"size:36;index;not null" json:"user_id"`
	Name      string            `gorm:"size:120" json:"name,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []ChatMessage     `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// BeforeCreate assigns the session identifier.
func (s *ChatSession) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// ChatMessage is a single immutable turn within a chat session.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"size:36;index;not null" json:"session_id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	Role      ChatRole  `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the message identifier.
func (m *ChatMessage) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
