package dto

import (
	"time"

	"github.com/noah-isme/mindful-youth-api/internal/models"
)

// SyncStatus tracks an optimistically displayed message until storage answers.
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncConfirmed SyncStatus = "confirmed"
	SyncFailed    SyncStatus = "failed"
)

// ChatSendRequest is a user turn posted to the active conversation.
type ChatSendRequest struct {
	Content        string `json:"content" validate:"required,min=1,max=4000"`
	EmotionalState string `json:"emotional_state" validate:"omitempty,max=64"`
}

// ChatRenameRequest renames a session.
type ChatRenameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// ChatMessageView is a displayed message together with its sync status.
type ChatMessageView struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id,omitempty"`
	Role      models.ChatRole `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Status    SyncStatus      `json:"status"`
}

// ChatSessionSummary lists a session without its message bodies.
type ChatSessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Name         string    `json:"name,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatState is a full snapshot of a user's chat-session store.
type ChatState struct {
	Sessions        []ChatSessionSummary `json:"sessions"`
	ActiveSessionID string               `json:"active_session_id,omitempty"`
	Messages        []ChatMessageView    `json:"messages"`
}

// ChatSendResponse reports both turns of an exchange and the resulting state.
type ChatSendResponse struct {
	UserMessage ChatMessageView `json:"user_message"`
	Reply       ChatMessageView `json:"reply"`
	Fallback    bool            `json:"fallback"`
	State       ChatState       `json:"state"`
}

// NewChatMessageView converts a persisted message into a confirmed view.
func NewChatMessageView(message models.ChatMessage) ChatMessageView {
	return ChatMessageView{
		ID:        message.ID,
		SessionID: message.SessionID,
		Role:      message.Role,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
		Status:    SyncConfirmed,
	}
}
