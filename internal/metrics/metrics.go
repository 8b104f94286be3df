package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Learner
	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_recommendations_served_total",
			Help: "Total number of repositories returned by /recommend",
		},
	)

	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_feedback_total",
			Help: "Feedback events by label and outcome",
		},
		[]string{"label", "outcome"},
	)

	ExplorationRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_exploration_rate",
			Help: "Current epsilon of the epsilon-greedy selector",
		},
	)

	FeatureCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_feature_cache_entries",
			Help: "Number of repositories with a cached feature vector",
		},
	)

	ModelPersistence = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_model_persistence_total",
			Help: "Model save/load operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// GitHub
	GitHubRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_search_requests_total",
			Help: "GitHub repository search requests by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "rejected"
	)

	GitHubRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "github_search_duration_seconds",
			Help:    "Latency of GitHub repository search requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
)
