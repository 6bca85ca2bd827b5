package dto

import (
	"time"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// MoodCreateRequest records a check-in.
type MoodCreateRequest struct {
	Mood    string `json:"mood" validate:"required,oneof=Awful Okay Good Great"`
	Journal string `json:"journal" validate:"omitempty,max=5000"`
}

// MoodEntryResponse is a single check-in.
type MoodEntryResponse struct {
	ID        string      `json:"id"`
	Mood      models.Mood `json:"mood"`
	Journal   string      `json:"journal,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// MoodStreakResponse reports the check-in streak.
type MoodStreakResponse struct {
	Streak      int        `json:"streak"`
	LastCheckIn *time.Time `json:"last_check_in,omitempty"`
}

// NewMoodEntryResponseSlice converts mood entries into DTOs.
func NewMoodEntryResponseSlice(entries []models.MoodEntry) []MoodEntryResponse {
	out := make([]MoodEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, MoodEntryResponse{
			ID:        entry.ID,
			Mood:      entry.Mood,
			Journal:   entry.Journal,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}
