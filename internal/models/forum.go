package models

import (
	"time"

	"gorm.io/gorm"
)

// AnonymousAuthor is the author label shown on every forum post and comment.
const AnonymousAuthor = "Anonymous"

// Post is an anonymous forum post.
type Post struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Author       string     `gorm:"size:64;not null" json:"author"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	UserID       string     `gorm:"size:36;index;not null" json:"user_id"`
	LikeCount    int        `gorm:"not null;default:0" json:"likes"`
	CommentCount int        `gorm:"not null;default:0" json:"comments"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Likes        []PostLike `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the post identifier and author label.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	if p.Author == "" {
		p.Author = AnonymousAuthor
	}
	return nil
}

// LikedBy returns the ids of users that liked the post, when likes are preloaded.
func (p Post) LikedBy() []string {
	out := make([]string, 0, len(p.Likes))
	for _, like := range p.Likes {
		out = append(out, like.UserID)
	}
	return out
}

// PostLike records a single user's membership in a post's liked-by set.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is an anonymous reply attached to a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;index;not null" json:"post_id"`
	Author    string    `gorm:"size:64;not null" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the comment identifier and author label.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	if c.Author == "" {
		c.Author = AnonymousAuthor
	}
	return nil
}
