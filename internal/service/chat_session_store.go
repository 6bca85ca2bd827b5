package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

const (
	// GreetingMessage is shown whenever the active conversation has no persisted messages.
	GreetingMessage = "Hello! I'm here to listen and support you. How are you feeling today?"

	greetingMessageID     = "initial"
	defaultSessionTitle   = "New Conversation"
	sessionTitleMaxRunes  = 35
	chatStateSubscriberCh = 16
)

var (
	// ErrChatSessionNotLoaded indicates the session id is not among the user's loaded sessions.
	ErrChatSessionNotLoaded = errors.New("chat session not loaded")
	// ErrChatMessageEmpty indicates a message with no text content.
	ErrChatMessageEmpty = errors.New("chat message must not be empty")
	// ErrChatRoleInvalid indicates a role other than user or assistant.
	ErrChatRoleInvalid = errors.New("chat role must be user or assistant")
)

// ChatSessionStore holds one user's chat sessions, the active conversation and the
// sync status of every displayed message. Operations are serialised; state reads
// are not blocked while an operation waits on storage, so a snapshot taken during
// an append observes the pending message.
type ChatSessionStore struct {
	opMu sync.Mutex

	mu       sync.Mutex
	userID   string
	sessions []models.ChatSession
	activeID string
	messages []dto.ChatMessageView
	loaded   bool
	subs     map[chan dto.ChatState]struct{}

	repo   repository.ChatRepository
	logger zerolog.Logger
}

// NewChatSessionStore constructs an empty store for userID. Call LoadSessions before use.
func NewChatSessionStore(userID string, repo repository.ChatRepository, logger zerolog.Logger) *ChatSessionStore {
	return &ChatSessionStore{
		userID:   userID,
		messages: greetingMessages(),
		subs:     make(map[chan dto.ChatState]struct{}),
		repo:     repo,
		logger:   logger.With().Str("component", "chat_session_store").Str("user_id", userID).Logger(),
	}
}

func greetingMessages() []dto.ChatMessageView {
	return []dto.ChatMessageView{{
		ID:      greetingMessageID,
		Role:    models.ChatRoleAssistant,
		Content: GreetingMessage,
		Status:  dto.SyncConfirmed,
	}}
}

func isGreetingOnly(messages []dto.ChatMessageView) bool {
	return len(messages) == 1 && messages[0].ID == greetingMessageID
}

func displayMessages(session models.ChatSession) []dto.ChatMessageView {
	if len(session.Messages) == 0 {
		return greetingMessages()
	}
	out := make([]dto.ChatMessageView, 0, len(session.Messages))
	for _, message := range session.Messages {
		out = append(out, dto.NewChatMessageView(message))
	}
	return out
}

// SessionTitle returns the display name, else the start of the first user message,
// else a generic title.
func SessionTitle(session models.ChatSession) string {
	if name := strings.TrimSpace(session.Name); name != "" {
		return name
	}
	for _, message := range session.Messages {
		if message.Role != models.ChatRoleUser {
			continue
		}
		runes := []rune(message.Content)
		if len(runes) > sessionTitleMaxRunes {
			runes = runes[:sessionTitleMaxRunes]
		}
		if title := string(runes); title != "" {
			return title
		}
		break
	}
	return defaultSessionTitle
}

// Loaded reports whether LoadSessions has completed successfully.
func (s *ChatSessionStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadSessions replaces the store state with the user's persisted sessions and
// activates the most recent one.
func (s *ChatSessionStore) LoadSessions(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	sessions, err := s.repo.ListSessions(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load chat sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = sessions
	s.loaded = true
	if len(sessions) == 0 {
		s.activeID = ""
		s.messages = greetingMessages()
	} else {
		s.activeID = sessions[0].ID
		s.messages = displayMessages(sessions[0])
	}
	s.publishLocked()
	return nil
}

// CreateSession persists a new empty session and makes it active.
func (s *ChatSessionStore) CreateSession(ctx context.Context) (models.ChatSession, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	return s.createSession(ctx)
}

// createSession requires opMu to be held.
func (s *ChatSessionStore) createSession(ctx context.Context) (models.ChatSession, error) {
	session := models.ChatSession{UserID: s.userID}
	if err := s.repo.CreateSession(ctx, &session); err != nil {
		return models.ChatSession{}, fmt.Errorf("create chat session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append([]models.ChatSession{session}, s.sessions...)
	s.activeID = session.ID
	s.messages = greetingMessages()
	s.publishLocked()

	s.logger.Debug().Str("session_id", session.ID).Msg("chat session created")
	return session, nil
}

// SelectSession activates an already loaded session.
func (s *ChatSessionStore) SelectSession(sessionID string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return ErrChatSessionNotLoaded
	}

	s.activeID = sessionID
	s.messages = displayMessages(s.sessions[idx])
	s.publishLocked()
	return nil
}

// AppendMessage adds a message to the active session, creating one first when none
// is active. The message is displayed as pending until storage confirms it; on
// failure the displayed list is restored and the error returned.
func (s *ChatSessionStore) AppendMessage(ctx context.Context, role models.ChatRole, text string) (dto.ChatMessageView, error) {
	text, err := validateMessage(role, text)
	if err != nil {
		return dto.ChatMessageView{}, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	sessionID := s.activeID
	s.mu.Unlock()

	if sessionID == "" {
		session, err := s.createSession(ctx)
		if err != nil {
			return dto.ChatMessageView{}, err
		}
		sessionID = session.ID
	}

	return s.appendLocked(ctx, sessionID, role, text)
}

// AppendMessageTo adds a message to a specific loaded session whether or not it is
// still active. The displayed list only changes when it is. A session deleted in
// the meantime yields ErrChatSessionNotLoaded; no replacement session is created.
func (s *ChatSessionStore) AppendMessageTo(ctx context.Context, sessionID string, role models.ChatRole, text string) (dto.ChatMessageView, error) {
	text, err := validateMessage(role, text)
	if err != nil {
		return dto.ChatMessageView{}, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	loaded := s.indexLocked(sessionID) >= 0
	s.mu.Unlock()
	if !loaded {
		return dto.ChatMessageView{}, ErrChatSessionNotLoaded
	}

	return s.appendLocked(ctx, sessionID, role, text)
}

// SessionMessages returns the persisted messages of a loaded session, or the
// greeting when it has none.
func (s *ChatSessionStore) SessionMessages(sessionID string) ([]dto.ChatMessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return nil, ErrChatSessionNotLoaded
	}
	return displayMessages(s.sessions[idx]), nil
}

func validateMessage(role models.ChatRole, text string) (string, error) {
	if !role.Valid() {
		return "", ErrChatRoleInvalid
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrChatMessageEmpty
	}
	return text, nil
}

// appendLocked requires opMu to be held and sessionID to be loaded.
func (s *ChatSessionStore) appendLocked(ctx context.Context, sessionID string, role models.ChatRole, text string) (dto.ChatMessageView, error) {
	pending := dto.ChatMessageView{
		ID:        "pending-" + uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   text,
		CreatedAt: time.Now().UTC(),
		Status:    dto.SyncPending,
	}

	s.mu.Lock()
	displayed := s.activeID == sessionID
	var previous []dto.ChatMessageView
	if displayed {
		previous = append([]dto.ChatMessageView(nil), s.messages...)
		if isGreetingOnly(s.messages) {
			s.messages = []dto.ChatMessageView{pending}
		} else {
			s.messages = append(s.messages, pending)
		}
		s.publishLocked()
	}
	s.mu.Unlock()

	record := models.ChatMessage{
		SessionID: sessionID,
		UserID:    s.userID,
		Role:      role,
		Content:   text,
	}
	err := s.repo.AppendMessage(ctx, &record)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		observability.ChatMessages().WithLabelValues(string(role), string(dto.SyncFailed)).Inc()
		if displayed {
			if idx := s.messageIndexLocked(pending.ID); idx >= 0 {
				s.messages[idx].Status = dto.SyncFailed
				s.publishLocked()
			}
			s.messages = previous
			s.publishLocked()
		}
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to persist chat message")
		return dto.ChatMessageView{}, fmt.Errorf("persist chat message: %w", err)
	}

	confirmed := dto.NewChatMessageView(record)
	if displayed {
		if idx := s.messageIndexLocked(pending.ID); idx >= 0 {
			s.messages[idx] = confirmed
		}
	}
	if idx := s.indexLocked(sessionID); idx >= 0 {
		s.sessions[idx].Messages = append(s.sessions[idx].Messages, record)
	}
	s.publishLocked()

	observability.ChatMessages().WithLabelValues(string(role), string(dto.SyncConfirmed)).Inc()
	return confirmed, nil
}

// Subscribers reports how many snapshot streams are attached.
func (s *ChatSessionStore) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// DeleteSession removes a loaded session and its messages. When it was active the
// next most recent session becomes active, or the greeting is shown.
func (s *ChatSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	loaded := s.indexLocked(sessionID) >= 0
	s.mu.Unlock()
	if !loaded {
		return ErrChatSessionNotLoaded
	}

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(sessionID); idx >= 0 {
		s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	}
	if s.activeID == sessionID {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
			s.messages = displayMessages(s.sessions[0])
		} else {
			s.activeID = ""
			s.messages = greetingMessages()
		}
	}
	s.publishLocked()
	return nil
}

// RenameSession applies the new name immediately and restores the previous one if
// storage rejects it.
func (s *ChatSessionStore) RenameSession(ctx context.Context, sessionID, name string) error {
	name = strings.TrimSpace(name)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	idx := s.indexLocked(sessionID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrChatSessionNotLoaded
	}
	previous := s.sessions[idx].Name
	s.sessions[idx].Name = name
	s.publishLocked()
	s.mu.Unlock()

	err := s.repo.RenameSession(ctx, sessionID, name)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(sessionID); idx >= 0 {
		s.sessions[idx].Name = previous
		s.publishLocked()
	}
	return fmt.Errorf("rename chat session: %w", err)
}

// SetSessionMetadata records a metadata value on a loaded session.
func (s *ChatSessionStore) SetSessionMetadata(ctx context.Context, sessionID, key string, value interface{}) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	idx := s.indexLocked(sessionID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrChatSessionNotLoaded
	}
	metadata := datatypes.JSONMap{}
	for k, v := range s.sessions[idx].Metadata {
		metadata[k] = v
	}
	s.mu.Unlock()

	metadata[key] = value
	if err := s.repo.UpdateMetadata(ctx, sessionID, metadata); err != nil {
		return fmt.Errorf("update chat session metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(sessionID); idx >= 0 {
		s.sessions[idx].Metadata = metadata
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *ChatSessionStore) Snapshot() dto.ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams a snapshot after every state change until ctx ends. The current
// state is delivered first. Slow readers lose the oldest queued snapshots, never the latest.
func (s *ChatSessionStore) Subscribe(ctx context.Context) <-chan dto.ChatState {
	ch := make(chan dto.ChatState, chatStateSubscriberCh)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	observability.RealtimeSubscribers().WithLabelValues("chat:*").Inc()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
		observability.RealtimeSubscribers().WithLabelValues("chat:*").Dec()
	}()

	return ch
}

func (s *ChatSessionStore) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	state := s.snapshotLocked()
	for ch := range s.subs {
		for {
			select {
			case ch <- state:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (s *ChatSessionStore) snapshotLocked() dto.ChatState {
	sessions := make([]dto.ChatSessionSummary, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, dto.ChatSessionSummary{
			ID:           session.ID,
			Title:        SessionTitle(session),
			Name:         session.Name,
			MessageCount: len(session.Messages),
			CreatedAt:    session.CreatedAt,
		})
	}

	return dto.ChatState{
		Sessions:        sessions,
		ActiveSessionID: s.activeID,
		Messages:        append([]dto.ChatMessageView(nil), s.messages...),
	}
}

func (s *ChatSessionStore) indexLocked(sessionID string) int {
	for i, session := range s.sessions {
		if session.ID == sessionID {
			return i
		}
	}
	return -1
}

func (s *ChatSessionStore) messageIndexLocked(id string) int {
	for i, message := range s.messages {
		if message.ID == id {
			return i
		}
	}
	return -1
}

// ChatStoreRegistry hands out one loaded store per signed-in user. Stores that
// have not been used for a while and have no live snapshot streams are dropped by
// Sweep; the next request reloads them from storage.
type ChatStoreRegistry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	repo    repository.ChatRepository
	logger  zerolog.Logger
	now     func() time.Time
}

type registryEntry struct {
	store    *ChatSessionStore
	lastUsed time.Time
}

// NewChatStoreRegistry constructs an empty registry.
func NewChatStoreRegistry(repo repository.ChatRepository, logger zerolog.Logger) *ChatStoreRegistry {
	return &ChatStoreRegistry{
		entries: make(map[string]*registryEntry),
		repo:    repo,
		logger:  logger.With().Str("component", "chat_store_registry").Logger(),
		now:     time.Now,
	}
}

// Store returns the user's store, loading it on first use.
func (r *ChatStoreRegistry) Store(ctx context.Context, userID string) (*ChatSessionStore, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok {
		entry = &registryEntry{store: NewChatSessionStore(userID, r.repo, r.logger)}
		r.entries[userID] = entry
	}
	entry.lastUsed = r.now()
	store := entry.store
	r.mu.Unlock()

	if !store.Loaded() {
		if err := store.LoadSessions(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Evict drops the user's store on sign-out. A store with open snapshot streams,
// such as another device's websocket, is kept so those streams stay current.
func (r *ChatStoreRegistry) Evict(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok {
		return false
	}
	if entry.store.Subscribers() > 0 {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Len reports how many stores are held.
func (r *ChatStoreRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops stores idle for longer than idle that have no snapshot streams.
func (r *ChatStoreRegistry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for userID, entry := range r.entries {
		if entry.lastUsed.After(cutoff) || entry.store.Subscribers() > 0 {
			continue
		}
		delete(r.entries, userID)
		removed++
	}
	return removed
}

// StartSweeper runs Sweep every idle/2 until ctx is cancelled.
func (r *ChatStoreRegistry) StartSweeper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(idle / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.Sweep(idle); removed > 0 {
					r.logger.Debug().Int("removed", removed).Int("remaining", r.Len()).Msg("idle chat stores dropped")
				}
			}
		}
	}()
}
