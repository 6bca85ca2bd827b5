package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// PostRepository persists forum posts, their likes and comments.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	CreatePosts(ctx context.Context, posts []models.Post) (int64, error)
	ListPosts(ctx context.Context, limit int) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	DeletePost(ctx context.Context, id string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a GORM-backed forum repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func preloadLikes(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit("Likes").Create(post).Error
}

func (r *postRepository) CreatePosts(ctx context.Context, posts []models.Post) (int64, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Omit("Likes").Create(&posts)
	return result.RowsAffected, result.Error
}

func (r *postRepository) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Likes", preloadLikes).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) GetPost(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Likes", preloadLikes).First(&post, "id = ?", id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// ToggleLike flips the user's membership in the post's liked-by set and moves the
// counter by one in the same transaction. It reports whether the post is now liked.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}

		delta := -1
		if removed.RowsAffected == 0 {
			if err := tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			delta = 1
			liked = true
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).
			Error
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

// CreateComment inserts the comment and bumps the parent's counter atomically.
func (r *postRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated := tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(comment).Error
	})
}

func (r *postRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// DeletePost enumerates and deletes the post's comments, then its likes and the post.
func (r *postRepository) DeletePost(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []string
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Post{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
