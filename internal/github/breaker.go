package github

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/metrics"
	"github.com/ahmednasr/repo-recommender/server/internal/models"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// Searcher is anything that can run a repository search.
type Searcher interface {
	SearchRepositories(ctx context.Context, q SearchQuery) ([]models.Repository, error)
}

var _ Searcher = (*Client)(nil)
var _ Searcher = (*BreakerClient)(nil)

// BreakerSettings tune the circuit breaker around the search client.
type BreakerSettings struct {
	// MinRequests before the failure ratio is considered. Default: 5.
	MinRequests uint32
	// FailureRatio at or above which the circuit opens. Default: 0.6.
	FailureRatio float64
	// OpenTimeout is how long the circuit stays open. Default: 30s.
	OpenTimeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.6
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return s
}

// BreakerClient wraps a Searcher with a circuit breaker so an unavailable
// GitHub fails fast instead of stalling every /recommend call.
type BreakerClient struct {
	next Searcher
	cb   *gobreaker.CircuitBreaker[[]models.Repository]
	name string
}

// NewBreakerClient protects next with a circuit breaker.
func NewBreakerClient(next Searcher, settings BreakerSettings) *BreakerClient {
	settings = settings.withDefaults()
	name := "github-search"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.Repository](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= settings.FailureRatio {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_ratio", ratio).Msg("opening github circuit")
				return true
			}
			return false
		},
		// A caller giving up is not GitHub's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerClient{next: next, cb: cb, name: name}
}

// SearchRepositories runs the search through the breaker. A rejected call is
// reported as recommender.ErrUpstreamUnavailable like any other failure.
func (b *BreakerClient) SearchRepositories(ctx context.Context, q SearchQuery) ([]models.Repository, error) {
	start := time.Now()
	repos, err := b.cb.Execute(func() ([]models.Repository, error) {
		repos, err := b.next.SearchRepositories(ctx, q)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil, goerr.Wrap(ctx.Err(), "github search canceled")
		}
		return repos, err
	})
	metrics.GitHubRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.GitHubRequests.WithLabelValues("rejected").Inc()
			return nil, goerr.Wrap(recommender.ErrUpstreamUnavailable, "github circuit open", goerr.V("breaker", b.name))
		}
		metrics.GitHubRequests.WithLabelValues("failure").Inc()
		logging.Warn().Err(err).Str("query", q.String()).Msg("github search failed")
		if !errors.Is(err, recommender.ErrUpstreamUnavailable) {
			err = goerr.Wrap(recommender.ErrUpstreamUnavailable, "github search", goerr.V("cause", err.Error()))
		}
		return nil, err
	}

	metrics.GitHubRequests.WithLabelValues("success").Inc()
	return repos, nil
}

// State reports the breaker state as "closed", "half-open" or "open".
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
