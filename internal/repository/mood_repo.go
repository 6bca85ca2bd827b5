package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// MoodRepository persists mood check-ins.
type MoodRepository interface {
	Create(ctx context.Context, entry *models.MoodEntry) error
	CreateBatch(ctx context.Context, entries []models.MoodEntry) (int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.MoodEntry, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type moodRepository struct {
	db *gorm.DB
}

// NewMoodRepository constructs a GORM-backed mood repository.
func NewMoodRepository(db *gorm.DB) MoodRepository {
	return &moodRepository{db: db}
}

func (r *moodRepository) Create(ctx context.Context, entry *models.MoodEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *moodRepository) CreateBatch(ctx context.Context, entries []models.MoodEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Create(&entries)
	return result.RowsAffected, result.Error
}

func (r *moodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.MoodEntry, error) {
	if limit <= 0 || limit > 365 {
		limit = 100
	}

	var entries []models.MoodEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *moodRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MoodEntry{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
