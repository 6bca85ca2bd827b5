package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	chatMessagesTotal   *prometheus.CounterVec
	chatFallbacksTotal  prometheus.Counter
	forumActionsTotal   *prometheus.CounterVec
	moodEntriesTotal    *prometheus.CounterVec
	realtimeSubscribers *prometheus.GaugeVec
	avatarUploadsTotal  *prometheus.CounterVec
	authEventsTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages appended to sessions, by role and sync outcome.",
		}, []string{"role", "status"})

		chatFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_generation_fallbacks_total",
			Help: "Assistant replies replaced by the apology message after a generation failure.",
		})

		forumActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_actions_total",
			Help: "Forum mutations by action.",
		}, []string{"action"})

		moodEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mood_entries_total",
			Help: "Mood check-ins recorded, by mood.",
		}, []string{"mood"})

		realtimeSubscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Open realtime snapshot subscriptions by topic kind.",
		}, []string{"topic"})

		avatarUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avatar_uploads_total",
			Help: "Profile picture uploads by result.",
		}, []string{"result"})

		authEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication events by kind and result.",
		}, []string{"event", "result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			chatMessagesTotal,
			chatFallbacksTotal,
			forumActionsTotal,
			moodEntriesTotal,
			realtimeSubscribers,
			avatarUploadsTotal,
			authEventsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ChatMessages exposes the chat message counter.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// ChatFallbacks exposes the apology substitution counter.
func ChatFallbacks() prometheus.Counter {
	RegisterMetrics()
	return chatFallbacksTotal
}

// ForumActions exposes the forum mutation counter.
func ForumActions() *prometheus.CounterVec {
	RegisterMetrics()
	return forumActionsTotal
}

// MoodEntries exposes the mood check-in counter.
func MoodEntries() *prometheus.CounterVec {
	RegisterMetrics()
	return moodEntriesTotal
}

// RealtimeSubscribers exposes the open subscription gauge.
func RealtimeSubscribers() *prometheus.GaugeVec {
	RegisterMetrics()
	return realtimeSubscribers
}

// AvatarUploads exposes the profile picture upload counter.
func AvatarUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return avatarUploadsTotal
}

// AuthEvents exposes the authentication event counter.
func AuthEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return authEventsTotal
}
