package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

func TestChatRepositoryListSessionsOrdersNewestFirstWithMessages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	older := models.ChatSession{UserID: "u1", CreatedAt: now.Add(-time.Hour)}
	newer := models.ChatSession{UserID: "u1", CreatedAt: now}
	foreign := models.ChatSession{UserID: "u2", CreatedAt: now}
	require.NoError(t, repo.CreateSession(ctx, &older))
	require.NoError(t, repo.CreateSession(ctx, &newer))
	require.NoError(t, repo.CreateSession(ctx, &foreign))

	first := models.ChatMessage{SessionID: older.ID, UserID: "u1", Role: models.ChatRoleUser, Content: "hi", CreatedAt: now.Add(-50 * time.Minute)}
	second := models.ChatMessage{SessionID: older.ID, UserID: "u1", Role: models.ChatRoleAssistant, Content: "hello", CreatedAt: now.Add(-49 * time.Minute)}
	require.NoError(t, repo.AppendMessage(ctx, &second))
	require.NoError(t, repo.AppendMessage(ctx, &first))

	sessions, err := repo.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, newer.ID, sessions[0].ID)
	require.Equal(t, older.ID, sessions[1].ID)
	require.Len(t, sessions[1].Messages, 2)
	require.Equal(t, "hi", sessions[1].Messages[0].Content)
	require.Equal(t, "hello", sessions[1].Messages[1].Content)
}

func TestChatRepositoryAppendMessageRequiresSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)

	err := repo.AppendMessage(context.Background(), &models.ChatMessage{SessionID: "missing", UserID: "u1", Role: models.ChatRoleUser, Content: "hi"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatRepositoryDeleteSessionCascadesMessages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	session := models.ChatSession{UserID: "u1"}
	require.NoError(t, repo.CreateSession(ctx, &session))
	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, repo.AppendMessage(ctx, &models.ChatMessage{SessionID: session.ID, UserID: "u1", Role: models.ChatRoleUser, Content: content}))
	}

	require.NoError(t, repo.DeleteSession(ctx, session.ID))

	var remaining int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("session_id = ?", session.ID).Count(&remaining).Error)
	require.Zero(t, remaining)

	require.ErrorIs(t, repo.DeleteSession(ctx, session.ID), gorm.ErrRecordNotFound)
}

func TestChatRepositoryRenameAndMetadata(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	session := models.ChatSession{UserID: "u1"}
	require.NoError(t, repo.CreateSession(ctx, &session))

	require.NoError(t, repo.RenameSession(ctx, session.ID, "Exam stress"))
	require.NoError(t, repo.UpdateMetadata(ctx, session.ID, datatypes.JSONMap{"emotional_state": "anxious"}))

	stored, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, "Exam stress", stored.Name)
	require.Equal(t, "anxious", stored.Metadata["emotional_state"])

	require.ErrorIs(t, repo.RenameSession(ctx, "missing", "x"), gorm.ErrRecordNotFound)
}
