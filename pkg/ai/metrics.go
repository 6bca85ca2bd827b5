package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mindful",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of support chat generation requests",
	}, []string{"provider", "model"})

	generationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindful",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of failed support chat generation requests",
	}, []string{"provider", "model"})
)
