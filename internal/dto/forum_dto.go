package dto

import (
	"time"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// PostCreateRequest is the payload for a new anonymous post.
type PostCreateRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// CommentCreateRequest is the payload for a reply to a post.
type CommentCreateRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// PostResponse is a forum post as seen by the requesting user.
type PostResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	LikedBy   []string  `json:"liked_by"`
	LikedByMe bool      `json:"liked_by_me"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentResponse is a single reply.
type CommentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDetailResponse is a post together with its comments, oldest first.
type PostDetailResponse struct {
	Post     PostResponse      `json:"post"`
	Comments []CommentResponse `json:"comments"`
}

// LikeResponse reports the outcome of a like toggle.
type LikeResponse struct {
	PostID  string   `json:"post_id"`
	Liked   bool     `json:"liked"`
	Likes   int      `json:"likes"`
	LikedBy []string `json:"liked_by"`
}

// NewPostResponse converts a post model for the given viewer.
func NewPostResponse(post models.Post, viewerID string) PostResponse {
	likedBy := post.LikedBy()
	likedByMe := false
	for _, id := range likedBy {
		if id == viewerID {
			likedByMe = true
			break
		}
	}

	return PostResponse{
		ID:        post.ID,
		Author:    post.Author,
		Content:   post.Content,
		Likes:     post.LikeCount,
		Comments:  post.CommentCount,
		LikedBy:   likedBy,
		LikedByMe: likedByMe,
		IsOwner:   viewerID != "" && post.UserID == viewerID,
		CreatedAt: post.CreatedAt,
	}
}

// NewPostResponseSlice converts a slice of posts for the given viewer.
func NewPostResponseSlice(posts []models.Post, viewerID string) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, NewPostResponse(post, viewerID))
	}
	return out
}

// NewCommentResponseSlice converts comments for the given viewer.
func NewCommentResponseSlice(comments []models.Comment, viewerID string) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, CommentResponse{
			ID:        comment.ID,
			PostID:    comment.PostID,
			Author:    comment.Author,
			Content:   comment.Content,
			IsOwner:   viewerID != "" && comment.UserID == viewerID,
			CreatedAt: comment.CreatedAt,
		})
	}
	return out
}
