package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mindful-youth-api/internal/observability"
)

// Hub fans change signals out to local subscribers and, when configured, to the
// other API nodes over Redis pub/sub and NATS. Signals carry no payload; a
// subscriber reloads whatever state the topic names.
type Hub struct {
	mu           sync.RWMutex
	topics       map[string]map[*Subscription]struct{}
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// Subscription receives coalesced change signals for one topic.
type Subscription struct {
	topic   string
	signals chan struct{}
	hub     *Hub
	once    sync.Once
}

type hubEvent struct {
	Source string    `json:"source"`
	Topic  string    `json:"topic"`
	SentAt time.Time `json:"sent_at"`
}

// NewHub constructs a hub. Redis and NATS are optional; with neither the hub only
// reaches subscribers on this node.
func NewHub(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *Hub {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":realtime"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".realtime"
	}

	return &Hub{
		topics:       make(map[string]map[*Subscription]struct{}),
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// Start consumes remote signals until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	if h.redis != nil && h.redisChannel != "" {
		go h.consumeRedis(ctx)
	}
	if h.nats != nil && h.natsSubject != "" {
		go h.consumeNATS(ctx)
	}
}

// Subscribe registers interest in a topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic:   topic,
		signals: make(chan struct{}, 1),
		hub:     h,
	}

	h.mu.Lock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	h.mu.Unlock()

	observability.RealtimeSubscribers().WithLabelValues(topicKind(topic)).Inc()
	return sub
}

// Signals yields one value per burst of changes; pending signals coalesce.
func (s *Subscription) Signals() <-chan struct{} {
	return s.signals
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.topic)
			}
		}
		s.hub.mu.Unlock()
		observability.RealtimeSubscribers().WithLabelValues(topicKind(s.topic)).Dec()
	})
}

// Subscribers reports the number of local subscriptions for topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Notify signals local subscribers only.
func (h *Hub) Notify(topics ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, topic := range topics {
		for sub := range h.topics[topic] {
			select {
			case sub.signals <- struct{}{}:
			default:
			}
		}
	}
}

// Publish signals local subscribers and forwards the topics to the other nodes.
// Broker failures are logged; local delivery has already happened by then.
func (h *Hub) Publish(ctx context.Context, topics ...string) {
	h.Notify(topics...)

	for _, topic := range topics {
		if err := h.forward(ctx, topic); err != nil {
			h.logger.Warn().Err(err).Str("topic", topic).Msg("failed to forward realtime signal")
		}
	}
}

func (h *Hub) forward(ctx context.Context, topic string) error {
	if (h.redis == nil || h.redisChannel == "") && (h.nats == nil || h.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(hubEvent{
		Source: h.nodeID,
		Topic:  topic,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if h.redis != nil && h.redisChannel != "" {
		if err := h.redis.Publish(ctx, h.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (h *Hub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			h.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		h.handleEvent([]byte(msg.Payload))
	}
}

func (h *Hub) consumeNATS(ctx context.Context) {
	// Every node must see every signal, so this is a plain subscription rather than a queue group.
	sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
		h.handleEvent(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to nats realtime subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
		}
	}()
}

func (h *Hub) handleEvent(payload []byte) {
	var event hubEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Warn().Err(err).Msg("invalid realtime event payload")
		return
	}

	if event.Source == h.nodeID || event.Topic == "" {
		return
	}

	h.Notify(event.Topic)
}
