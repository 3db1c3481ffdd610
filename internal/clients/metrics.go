package clients

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapguess_provider_requests_total",
			Help: "Total number of requests to embedding/LLM providers.",
		},
		[]string{"provider", "operation", "status"},
	)
	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapguess_provider_request_duration_seconds",
			Help:    "Histogram of provider request durations, retries included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)
	providerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapguess_provider_retries_total",
			Help: "Total number of retried provider calls.",
		},
		[]string{"provider", "operation"},
	)
	llmPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapguess_llm_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(50, 50, 20),
		},
		[]string{"model", "operation"},
	)
	llmCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapguess_llm_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(25, 25, 20),
		},
		[]string{"model", "operation"},
	)
)

func observeStatus(provider, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	providerRequestsTotal.WithLabelValues(provider, operation, status).Inc()
}
