package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/realtime"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

const seedSchemaName = "seed_bundle.schema.json"

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
	// ErrSeedInvalidBundle indicates the bundle failed schema validation.
	ErrSeedInvalidBundle = errors.New("seed bundle does not match schema")
)

// SampleSeedBundle is the demo data set: three forum posts and four mood entries.
var SampleSeedBundle = dto.SeedBundle{
	Posts: []dto.SeedPost{
		{
			Content:  "Just a reminder to everyone to take a moment for yourself today. Even 5 minutes of deep breathing can make a difference. #SelfCare",
			Likes:    15,
			Comments: 3,
			UserID:   "sample_user_1",
		},
		{
			Content:  "Feeling a bit overwhelmed with school lately. It's tough but trying to stay positive. Any tips for managing stress during exam season?",
			Likes:    8,
			Comments: 5,
			UserID:   "sample_user_2",
		},
		{
			Content:  "I'm here if anyone needs to talk. Remember you are not alone in this. We are a community that supports each other.",
			Likes:    22,
			Comments: 1,
			UserID:   "sample_user_3",
		},
	},
	Moods: []dto.SeedMood{
		{Mood: "Good", Journal: "Felt productive today. Finished my assignments and had a nice chat with a friend.", DaysAgo: 1, UserID: "sample_user_1"},
		{Mood: "Okay", Journal: "A bit stressed about exams, but I managed to study for a few hours.", DaysAgo: 2, UserID: "sample_user_1"},
		{Mood: "Great", Journal: "Had a relaxing day, watched a movie and just chilled.", DaysAgo: 3, UserID: "sample_user_2"},
		{Mood: "Awful", Journal: "Feeling down today. Nothing seems to be going right.", DaysAgo: 1, UserID: "sample_user_2"},
	},
}

//go:embed content/seed_bundle.schema.json
var seedSchemaJSON []byte

// SeedService populates non-production databases with demo data.
type SeedService interface {
	SeedSample(ctx context.Context, token string) (dto.SeedResult, error)
	SeedBundle(ctx context.Context, token string, raw []byte) (dto.SeedResult, error)
}

type seedService struct {
	posts     repository.PostRepository
	moods     repository.MoodRepository
	publisher ChangePublisher
	schema    *jsonschema.Schema
	enabled   bool
	token     string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSeedService constructs a seeding service. publisher may be nil.
func NewSeedService(posts repository.PostRepository, moods repository.MoodRepository, publisher ChangePublisher, enabled bool, token string, logger zerolog.Logger) (SeedService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(seedSchemaName, bytes.NewReader(seedSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load seed schema: %w", err)
	}
	schema, err := compiler.Compile(seedSchemaName)
	if err != nil {
		return nil, fmt.Errorf("compile seed schema: %w", err)
	}

	return &seedService{
		posts:     posts,
		moods:     moods,
		publisher: publisher,
		schema:    schema,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
		now:       time.Now,
	}, nil
}

func (s *seedService) SeedSample(ctx context.Context, token string) (dto.SeedResult, error) {
	if err := s.authorize(token); err != nil {
		return dto.SeedResult{}, err
	}
	return s.write(ctx, SampleSeedBundle)
}

// SeedBundle validates raw against the embedded schema before writing anything.
func (s *seedService) SeedBundle(ctx context.Context, token string, raw []byte) (dto.SeedResult, error) {
	if err := s.authorize(token); err != nil {
		return dto.SeedResult{}, err
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return dto.SeedResult{}, fmt.Errorf("%w: %v", ErrSeedInvalidBundle, err)
	}
	if err := s.schema.Validate(document); err != nil {
		return dto.SeedResult{}, fmt.Errorf("%w: %v", ErrSeedInvalidBundle, err)
	}

	var bundle dto.SeedBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return dto.SeedResult{}, fmt.Errorf("%w: %v", ErrSeedInvalidBundle, err)
	}
	return s.write(ctx, bundle)
}

func (s *seedService) authorize(token string) error {
	if !s.enabled {
		return ErrSeedDisabled
	}
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return ErrSeedUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) != 1 {
		return ErrSeedUnauthorized
	}
	return nil
}

func (s *seedService) write(ctx context.Context, bundle dto.SeedBundle) (dto.SeedResult, error) {
	now := s.now().UTC()

	posts := make([]models.Post, 0, len(bundle.Posts))
	for _, item := range bundle.Posts {
		posts = append(posts, models.Post{
			Author:       models.AnonymousAuthor,
			Content:      strings.TrimSpace(item.Content),
			UserID:       seedUserID(item.UserID),
			LikeCount:    item.Likes,
			CommentCount: item.Comments,
		})
	}

	moods := make([]models.MoodEntry, 0, len(bundle.Moods))
	for _, item := range bundle.Moods {
		moods = append(moods, models.MoodEntry{
			UserID:    seedUserID(item.UserID),
			Mood:      models.Mood(item.Mood),
			Journal:   strings.TrimSpace(item.Journal),
			CreatedAt: now.AddDate(0, 0, -item.DaysAgo),
		})
	}

	postsCreated, err := s.posts.CreatePosts(ctx, posts)
	if err != nil {
		return dto.SeedResult{}, fmt.Errorf("seed posts: %w", err)
	}
	moodsCreated, err := s.moods.CreateBatch(ctx, moods)
	if err != nil {
		return dto.SeedResult{PostsCreated: postsCreated}, fmt.Errorf("seed moods: %w", err)
	}

	if s.publisher != nil {
		topics := []string{}
		if postsCreated > 0 {
			topics = append(topics, realtime.TopicPosts)
		}
		seen := map[string]struct{}{}
		for _, mood := range moods {
			if _, ok := seen[mood.UserID]; !ok {
				seen[mood.UserID] = struct{}{}
				topics = append(topics, realtime.MoodTopic(mood.UserID))
			}
		}
		s.publisher.Publish(ctx, topics...)
	}

	s.logger.Info().Int64("posts", postsCreated).Int64("moods", moodsCreated).Msg("database seeded")
	return dto.SeedResult{PostsCreated: postsCreated, MoodsCreated: moodsCreated}, nil
}

func seedUserID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return "sample_user"
}
