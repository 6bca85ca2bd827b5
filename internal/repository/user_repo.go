package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// UserRepository persists account identities and profiles.
type UserRepository interface {
	Create(ctx context.Context, user *models.UserProfile) error
	GetByID(ctx context.Context, id string) (models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (models.UserProfile, error)
	Update(ctx context.Context, user *models.UserProfile) error
	UpdatePhotoURL(ctx context.Context, id, url string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.UserProfile) error {
	user.Email = normalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).First(&user, "email = ?", normalizeEmail(email)).Error; err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.UserProfile) error {
	user.Email = normalizeEmail(user.Email)
	return r.db.WithContext(ctx).Model(user).Select("display_name", "email", "country").Updates(user).Error
}

func (r *userRepository) UpdatePhotoURL(ctx context.Context, id, url string) error {
	result := r.db.WithContext(ctx).Model(&models.UserProfile{}).Where("id = ?", id).Update("photo_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
