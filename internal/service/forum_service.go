package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
	"github.com/noah-isme/mindful-youth-api/internal/realtime"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

var (
	// ErrForumForbidden indicates a user tried to delete a post they did not write.
	ErrForumForbidden = errors.New("only the author can delete this post")
	// ErrForumContentEmpty indicates the text was empty once markup was stripped.
	ErrForumContentEmpty = errors.New("content must not be empty")
)

// ChangePublisher announces that the state behind a topic changed.
type ChangePublisher interface {
	Publish(ctx context.Context, topics ...string)
}

// ForumService implements the anonymous peer forum.
type ForumService interface {
	CreatePost(ctx context.Context, userID string, req dto.PostCreateRequest) (dto.PostResponse, error)
	ListPosts(ctx context.Context, userID string, limit int) ([]dto.PostResponse, error)
	GetPost(ctx context.Context, userID, postID string) (dto.PostDetailResponse, error)
	ToggleLike(ctx context.Context, userID, postID string) (dto.LikeResponse, error)
	AddComment(ctx context.Context, userID, postID string, req dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListComments(ctx context.Context, userID, postID string) ([]dto.CommentResponse, error)
	DeletePost(ctx context.Context, userID, postID string) error
}

type forumService struct {
	repo      repository.PostRepository
	publisher ChangePublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewForumService constructs the forum service. publisher may be nil.
func NewForumService(repo repository.PostRepository, publisher ChangePublisher, validate *validator.Validate, logger zerolog.Logger) ForumService {
	return &forumService{
		repo:      repo,
		publisher: publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "forum_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mindful-youth-api/internal/service/forum"),
	}
}

func (s *forumService) CreatePost(ctx context.Context, userID string, req dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PostResponse{}, err
	}
	content := sanitizeText(s.sanitizer, req.Content)
	if content == "" {
		return dto.PostResponse{}, ErrForumContentEmpty
	}

	ctx, span := s.tracer.Start(ctx, "forum.create_post")
	defer span.End()

	post := models.Post{
		Author:  models.AnonymousAuthor,
		Content: content,
		UserID:  userID,
	}
	if err := s.repo.CreatePost(ctx, &post); err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, fmt.Errorf("create post: %w", err)
	}

	span.SetAttributes(attribute.String("forum.post_id", post.ID))
	observability.ForumActions().WithLabelValues("create_post").Inc()
	s.publish(ctx, realtime.TopicPosts)

	return dto.NewPostResponse(post, userID), nil
}

func (s *forumService) ListPosts(ctx context.Context, userID string, limit int) ([]dto.PostResponse, error) {
	posts, err := s.repo.ListPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponseSlice(posts, userID), nil
}

func (s *forumService) GetPost(ctx context.Context, userID, postID string) (dto.PostDetailResponse, error) {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return dto.PostDetailResponse{}, err
	}
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return dto.PostDetailResponse{}, err
	}

	return dto.PostDetailResponse{
		Post:     dto.NewPostResponse(post, userID),
		Comments: dto.NewCommentResponseSlice(comments, userID),
	}, nil
}

func (s *forumService) ToggleLike(ctx context.Context, userID, postID string) (dto.LikeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "forum.toggle_like", trace.WithAttributes(
		attribute.String("forum.post_id", postID),
	))
	defer span.End()

	liked, err := s.repo.ToggleLike(ctx, postID, userID)
	if err != nil {
		span.RecordError(err)
		return dto.LikeResponse{}, err
	}

	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		span.RecordError(err)
		return dto.LikeResponse{}, err
	}

	action := "unlike"
	if liked {
		action = "like"
	}
	observability.ForumActions().WithLabelValues(action).Inc()
	s.publish(ctx, realtime.TopicPosts, realtime.PostTopic(postID))

	return dto.LikeResponse{
		PostID:  post.ID,
		Liked:   liked,
		Likes:   post.LikeCount,
		LikedBy: post.LikedBy(),
	}, nil
}

func (s *forumService) AddComment(ctx context.Context, userID, postID string, req dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CommentResponse{}, err
	}
	content := sanitizeText(s.sanitizer, req.Content)
	if content == "" {
		return dto.CommentResponse{}, ErrForumContentEmpty
	}

	ctx, span := s.tracer.Start(ctx, "forum.add_comment", trace.WithAttributes(
		attribute.String("forum.post_id", postID),
	))
	defer span.End()

	comment := models.Comment{
		PostID:  postID,
		Author:  models.AnonymousAuthor,
		Content: content,
		UserID:  userID,
	}
	if err := s.repo.CreateComment(ctx, &comment); err != nil {
		span.RecordError(err)
		return dto.CommentResponse{}, err
	}

	observability.ForumActions().WithLabelValues("comment").Inc()
	s.publish(ctx, realtime.TopicPosts, realtime.PostTopic(postID))

	return dto.NewCommentResponseSlice([]models.Comment{comment}, userID)[0], nil
}

func (s *forumService) ListComments(ctx context.Context, userID, postID string) ([]dto.CommentResponse, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return dto.NewCommentResponseSlice(comments, userID), nil
}

// DeletePost removes the caller's own post together with its comments and likes.
func (s *forumService) DeletePost(ctx context.Context, userID, postID string) error {
	ctx, span := s.tracer.Start(ctx, "forum.delete_post", trace.WithAttributes(
		attribute.String("forum.post_id", postID),
	))
	defer span.End()

	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" || post.UserID != userID {
		return ErrForumForbidden
	}

	if err := s.repo.DeletePost(ctx, postID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete post: %w", err)
	}

	observability.ForumActions().WithLabelValues("delete_post").Inc()
	s.publish(ctx, realtime.TopicPosts, realtime.PostTopic(postID))
	return nil
}

func (s *forumService) publish(ctx context.Context, topics ...string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, topics...)
}
