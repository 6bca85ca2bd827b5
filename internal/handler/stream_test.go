package handler

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStreamSnapshotsWritesEvents(t *testing.T) {
	updates := make(chan []string, 2)
	updates <- []string{"a"}
	updates <- []string{"a", "b"}
	close(updates)

	cancelled := make(chan struct{})
	app := fiber.New()
	app.Get("/stream", func(c *fiber.Ctx) error {
		_, cancel := context.WithCancel(context.Background())
		streamSnapshots(c, zerolog.Nop(), "posts", time.Minute, func() {
			cancel()
			close(cancelled)
		}, updates)
		return nil
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/stream", nil), -1)
	require.NoError(t, err)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "event: posts\ndata: [\"a\"]\n\nevent: posts\ndata: [\"a\",\"b\"]\n\n", string(body))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("stream did not release its context")
	}
}

func TestWriteKeepAlive(t *testing.T) {
	buf := &bytes.Buffer{}
	w := bufio.NewWriter(buf)
	require.NoError(t, writeKeepAlive(w))
	require.True(t, strings.HasPrefix(buf.String(), ": keep-alive "))
	require.True(t, strings.HasSuffix(buf.String(), "\n\n"))
}
