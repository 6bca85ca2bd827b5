package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestNotifyCoalescesSignals(t *testing.T) {
	hub := NewHub(nil, "", nil, zerolog.Nop())
	sub := hub.Subscribe(TopicPosts)
	defer sub.Close()

	hub.Notify(TopicPosts)
	hub.Notify(TopicPosts)
	hub.Notify(PostTopic("other"))

	receive(t, sub.Signals())
	select {
	case <-sub.Signals():
		t.Fatal("expected signals to coalesce")
	default:
	}
}

func TestCloseDetachesSubscription(t *testing.T) {
	hub := NewHub(nil, "", nil, zerolog.Nop())
	sub := hub.Subscribe(MoodTopic("u1"))
	require.Equal(t, 1, hub.Subscribers(MoodTopic("u1")))

	sub.Close()
	sub.Close()
	require.Equal(t, 0, hub.Subscribers(MoodTopic("u1")))
}

func TestWatchEmitsInitialAndOnEveryChange(t *testing.T) {
	hub := NewHub(nil, "", nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	var version atomic.Int64
	stream := Watch(ctx, hub, TopicPosts, func(context.Context) (int64, error) {
		return version.Load(), nil
	})

	require.Equal(t, int64(0), receive(t, stream))

	version.Store(1)
	hub.Publish(ctx, TopicPosts)
	require.Equal(t, int64(1), receive(t, stream))

	version.Store(2)
	hub.Publish(ctx, TopicPosts)
	require.Equal(t, int64(2), receive(t, stream))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hub.Subscribers(TopicPosts) == 0 }, time.Second, 10*time.Millisecond)
}

func TestWatchSkipsFailedLoads(t *testing.T) {
	hub := NewHub(nil, "", nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	stream := Watch(ctx, hub, MoodTopic("u1"), func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("database unavailable")
		}
		return "ok", nil
	})

	require.Eventually(t, func() bool { return hub.Subscribers(MoodTopic("u1")) == 1 }, time.Second, 10*time.Millisecond)
	hub.Notify(MoodTopic("u1"))
	require.Equal(t, "ok", receive(t, stream))
}

func TestPublishReachesOtherNodesThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	origin := NewHub(client, "mindful", nil, zerolog.Nop())
	remote := NewHub(client, "mindful", nil, zerolog.Nop())
	origin.Start(ctx)
	remote.Start(ctx)

	own := origin.Subscribe(TopicPosts)
	defer own.Close()
	sub := remote.Subscribe(TopicPosts)
	defer sub.Close()

	require.Eventually(t, func() bool {
		origin.Publish(ctx, TopicPosts)
		select {
		case <-sub.Signals():
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleEventIgnoresOwnNode(t *testing.T) {
	hub := NewHub(nil, "", nil, zerolog.Nop())
	sub := hub.Subscribe(TopicPosts)
	defer sub.Close()

	hub.handleEvent([]byte(`{"source":"` + hub.nodeID + `","topic":"posts"}`))
	select {
	case <-sub.Signals():
		t.Fatal("own events must be ignored")
	default:
	}

	hub.handleEvent([]byte(`{"source":"elsewhere","topic":"posts"}`))
	receive(t, sub.Signals())

	hub.handleEvent([]byte(`not-json`))
}

func TestTopicKind(t *testing.T) {
	require.Equal(t, "posts", topicKind(TopicPosts))
	require.Equal(t, "posts:*", topicKind(PostTopic("abc")))
	require.Equal(t, "moods:*", topicKind(MoodTopic("u")))
}

func runNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	ns, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestPublishReachesOtherNodesThroughNATS(t *testing.T) {
	ns := runNATSServer(t)

	originConn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer originConn.Close()
	remoteConn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer remoteConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	origin := NewHub(nil, "mindful", originConn, zerolog.Nop())
	remote := NewHub(nil, "mindful", remoteConn, zerolog.Nop())
	require.Equal(t, "mindful.realtime", remote.natsSubject)
	origin.Start(ctx)
	remote.Start(ctx)

	own := origin.Subscribe(PostTopic("p1"))
	defer own.Close()
	sub := remote.Subscribe(PostTopic("p1"))
	defer sub.Close()

	require.Eventually(t, func() bool {
		origin.Publish(ctx, PostTopic("p1"))
		select {
		case <-sub.Signals():
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	// Local delivery happened on the origin; its own echo from NATS is ignored.
	receive(t, own.Signals())
}
