package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/realtime"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

func newMoodFixture(t *testing.T) (*moodService, repository.MoodRepository, *publisherStub) {
	t.Helper()
	repo := repository.NewMoodRepository(setupServiceDB(t))
	publisher := &publisherStub{}
	svc := NewMoodService(repo, publisher, testValidator(), testLogger()).(*moodService)
	return svc, repo, publisher
}

func TestMoodCreateValidatesMood(t *testing.T) {
	svc, _, publisher := newMoodFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", dto.MoodCreateRequest{Mood: "Ecstatic"})
	require.Error(t, err)

	entry, err := svc.Create(ctx, "user-1", dto.MoodCreateRequest{Mood: "Good", Journal: "<p>walked the dog</p>"})
	require.NoError(t, err)
	require.Equal(t, models.MoodGood, entry.Mood)
	require.Equal(t, "walked the dog", entry.Journal)
	require.Equal(t, []string{realtime.MoodTopic("user-1")}, publisher.published())
}

func TestMoodListNewestFirstPerUser(t *testing.T) {
	svc, repo, _ := newMoodFixture(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.MoodEntry{UserID: "user-1", Mood: models.MoodAwful, CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.MoodEntry{UserID: "user-1", Mood: models.MoodGreat, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.MoodEntry{UserID: "user-2", Mood: models.MoodOkay, CreatedAt: now}))

	entries, err := svc.List(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.MoodGreat, entries[0].Mood)
}

func TestMoodStreak(t *testing.T) {
	svc, repo, _ := newMoodFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	streak, err := svc.Streak(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, streak.Streak)
	require.Nil(t, streak.LastCheckIn)

	for _, age := range []time.Duration{72 * time.Hour, 50 * time.Hour, 47 * time.Hour} {
		require.NoError(t, repo.Create(ctx, &models.MoodEntry{UserID: "user-1", Mood: models.MoodOkay, CreatedAt: now.Add(-age)}))
	}

	streak, err = svc.Streak(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, streak.Streak)
	require.NotNil(t, streak.LastCheckIn)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	streak, err = svc.Streak(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, streak.Streak)
}
