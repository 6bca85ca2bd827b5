package handler_test

import (
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/handler"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
	"github.com/noah-isme/mindful-youth-api/internal/service"
)

func newChatApp(t *testing.T, generator *generatorStub) *fiber.App {
	t.Helper()
	repo := repository.NewChatRepository(setupHandlerDB(t))
	registry := service.NewChatStoreRegistry(repo, testLogger())
	conversation := service.NewConversationService(registry, service.NewSupportChatService(generator, testLogger()), testValidator(), testLogger())

	app := fiber.New()
	handler.NewChatHandler(registry, conversation, testValidator(), testLogger(), time.Second).Register(app.Group("/api/v1/chat", fakeAuth))
	return app
}

func TestChatHandler_StateStartsWithGreeting(t *testing.T) {
	app := newChatApp(t, &generatorStub{reply: "hi"})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/chat/state", "user-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var state envelope[dto.ChatState]
	decodeResponse(t, resp, &state)
	require.Empty(t, state.Data.ActiveSessionID)
	require.Len(t, state.Data.Messages, 1)
	require.Equal(t, service.GreetingMessage, state.Data.Messages[0].Content)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/chat/state", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestChatHandler_SendAndFallback(t *testing.T) {
	generator := &generatorStub{reply: "I'm listening."}
	app := newChatApp(t, generator)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/chat/messages", "user-1", dto.ChatSendRequest{Content: "rough week"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var sent envelope[dto.ChatSendResponse]
	decodeResponse(t, resp, &sent)
	require.False(t, sent.Data.Fallback)
	require.Equal(t, "I'm listening.", sent.Data.Reply.Content)
	require.Len(t, sent.Data.State.Sessions, 1)

	generator.reply, generator.err = "", errors.New("model offline")
	resp = doJSON(t, app, http.MethodPost, "/api/v1/chat/messages", "user-1", dto.ChatSendRequest{Content: "still there?"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeResponse(t, resp, &sent)
	require.True(t, sent.Data.Fallback)
	require.Equal(t, service.ApologyMessage, sent.Data.Reply.Content)
	require.Len(t, sent.Data.State.Messages, 4)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/chat/messages", "user-1", dto.ChatSendRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatHandler_SessionLifecycle(t *testing.T) {
	app := newChatApp(t, &generatorStub{reply: "ok"})

	resp := doJSON(t, app, http.MethodPost, "/api/v1/chat/sessions", "user-1", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var first envelope[dto.ChatState]
	decodeResponse(t, resp, &first)
	firstID := first.Data.ActiveSessionID

	resp = doJSON(t, app, http.MethodPost, "/api/v1/chat/sessions", "user-1", nil)
	var second envelope[dto.ChatState]
	decodeResponse(t, resp, &second)
	require.NotEqual(t, firstID, second.Data.ActiveSessionID)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/chat/sessions/"+firstID+"/select", "user-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var selected envelope[dto.ChatState]
	decodeResponse(t, resp, &selected)
	require.Equal(t, firstID, selected.Data.ActiveSessionID)

	resp = doJSON(t, app, http.MethodPatch, "/api/v1/chat/sessions/"+firstID, "user-1", dto.ChatRenameRequest{Name: "Exams"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/chat/sessions", "user-1", nil)
	var listed envelope[dto.ChatState]
	decodeResponse(t, resp, &listed)
	require.Equal(t, 2, listed.Meta["total"])
	titles := []string{listed.Data.Sessions[0].Title, listed.Data.Sessions[1].Title}
	require.Contains(t, titles, "Exams")
	require.Contains(t, titles, "New Conversation")

	resp = doJSON(t, app, http.MethodPost, "/api/v1/chat/sessions/unknown/select", "user-1", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/chat/sessions/"+firstID, "user-2", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/chat/sessions/"+firstID, "user-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var deleted envelope[dto.ChatState]
	decodeResponse(t, resp, &deleted)
	require.Len(t, deleted.Data.Sessions, 1)
}

func TestChatHandler_WebsocketStreamsSnapshots(t *testing.T) {
	app := newChatApp(t, &generatorStub{reply: "Tell me more."})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	header := http.Header{}
	header.Set(testUserHeader, "user-1")
	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/v1/chat/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	type event struct {
		Type string        `json:"type"`
		Data dto.ChatState `json:"data"`
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var initial event
	require.NoError(t, conn.ReadJSON(&initial))
	require.Equal(t, "state", initial.Type)
	require.Equal(t, service.GreetingMessage, initial.Data.Messages[0].Content)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/chat/messages", "user-1", dto.ChatSendRequest{Content: "hello"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	sawPending := false
	for {
		var update event
		require.NoError(t, conn.ReadJSON(&update))
		for _, message := range update.Data.Messages {
			if message.Status == dto.SyncPending {
				sawPending = true
			}
		}
		if len(update.Data.Messages) == 2 && update.Data.Messages[1].Status == dto.SyncConfirmed {
			require.Equal(t, "Tell me more.", update.Data.Messages[1].Content)
			break
		}
	}
	require.True(t, sawPending)
}

func TestChatHandler_WebsocketRequiresUser(t *testing.T) {
	app := newChatApp(t, &generatorStub{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	_, resp, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/v1/chat/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	plain := doJSON(t, app, http.MethodGet, "/api/v1/chat/ws", "user-1", nil)
	require.Equal(t, fiber.StatusUpgradeRequired, plain.StatusCode)
}
