package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// ChatRepository persists chat sessions and their message history.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error)
	GetSession(ctx context.Context, id string) (models.ChatSession, error)
	AppendMessage(ctx context.Context, message *models.ChatMessage) error
	RenameSession(ctx context.Context, id, name string) error
	UpdateMetadata(ctx context.Context, id string, metadata datatypes.JSONMap) error
	DeleteSession(ctx context.Context, id string) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Omit("Messages").Create(session).Error
}

// ListSessions returns the user's sessions newest first, each with its messages in order.
func (r *chatRepository) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *chatRepository) GetSession(ctx context.Context, id string) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		return models.ChatSession{}, err
	}
	return session, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ChatSession{}).Where("id = ?", message.SessionID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(message).Error
	})
}

func (r *chatRepository) RenameSession(ctx context.Context, id, name string) error {
	result := r.db.WithContext(ctx).Model(&models.ChatSession{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *chatRepository) UpdateMetadata(ctx context.Context, id string, metadata datatypes.JSONMap) error {
	return r.db.WithContext(ctx).Model(&models.ChatSession{}).Where("id = ?", id).Update("metadata", metadata).Error
}

// DeleteSession removes the session and every message in it as one batch.
func (r *chatRepository) DeleteSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ChatSession{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
