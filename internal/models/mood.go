package models

import (
	"time"

	"gorm.io/gorm"
)

// Mood is the fixed set of check-in moods.
type Mood string

const (
	MoodAwful Mood = "Awful"
	MoodOkay  Mood = "Okay"
	MoodGood  Mood = "Good"
	MoodGreat Mood = "Great"
)

// Moods lists the supported moods in display order.
var Moods = []Mood{MoodAwful, MoodOkay, MoodGood, MoodGreat}

// Valid reports whether the mood belongs to the fixed set.
func (m Mood) Valid() bool {
	for _, mood := range Moods {
		if m == mood {
			return true
		}
	}
	return false
}

// MoodEntry is an append-only mood check-in with an optional journal.
type MoodEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	Mood      Mood      `gorm:"size:16;not null" json:"mood"`
	Journal   string    `gorm:"type:text" json:"journal,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the entry identifier.
func (e *MoodEntry) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
