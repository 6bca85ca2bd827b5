package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
	"github.com/noah-isme/mindful-youth-api/internal/realtime"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

// streakWindow is how recent the latest check-in must be for the streak to hold.
const streakWindow = 48 * time.Hour

// MoodService records and summarises mood check-ins.
type MoodService interface {
	Create(ctx context.Context, userID string, req dto.MoodCreateRequest) (dto.MoodEntryResponse, error)
	List(ctx context.Context, userID string, limit int) ([]dto.MoodEntryResponse, error)
	Streak(ctx context.Context, userID string) (dto.MoodStreakResponse, error)
}

type moodService struct {
	repo      repository.MoodRepository
	publisher ChangePublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMoodService constructs the mood journal service. publisher may be nil.
func NewMoodService(repo repository.MoodRepository, publisher ChangePublisher, validate *validator.Validate, logger zerolog.Logger) MoodService {
	return &moodService{
		repo:      repo,
		publisher: publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "mood_service").Logger(),
		now:       time.Now,
	}
}

func (s *moodService) Create(ctx context.Context, userID string, req dto.MoodCreateRequest) (dto.MoodEntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MoodEntryResponse{}, err
	}

	entry := models.MoodEntry{
		UserID:  userID,
		Mood:    models.Mood(req.Mood),
		Journal: sanitizeText(s.sanitizer, req.Journal),
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return dto.MoodEntryResponse{}, fmt.Errorf("create mood entry: %w", err)
	}

	observability.MoodEntries().WithLabelValues(string(entry.Mood)).Inc()
	if s.publisher != nil {
		s.publisher.Publish(ctx, realtime.MoodTopic(userID))
	}

	return dto.NewMoodEntryResponseSlice([]models.MoodEntry{entry})[0], nil
}

func (s *moodService) List(ctx context.Context, userID string, limit int) ([]dto.MoodEntryResponse, error) {
	entries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewMoodEntryResponseSlice(entries), nil
}

// Streak is zero without entries. While the latest check-in is under two days old it
// equals the number of entries, otherwise it resets to one.
func (s *moodService) Streak(ctx context.Context, userID string) (dto.MoodStreakResponse, error) {
	latest, err := s.repo.ListByUser(ctx, userID, 1)
	if err != nil {
		return dto.MoodStreakResponse{}, err
	}
	if len(latest) == 0 {
		return dto.MoodStreakResponse{}, nil
	}

	last := latest[0].CreatedAt
	response := dto.MoodStreakResponse{Streak: 1, LastCheckIn: &last}
	if s.now().Sub(last) < streakWindow {
		count, err := s.repo.CountByUser(ctx, userID)
		if err != nil {
			return dto.MoodStreakResponse{}, err
		}
		response.Streak = int(count)
	}
	return response, nil
}
