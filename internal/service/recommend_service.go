package service

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/github"
	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/metrics"
	"github.com/ahmednasr/repo-recommender/server/internal/models"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// ---- Collaborator contracts ------------------------------------------------

// ModelStore persists a single learner snapshot.
type ModelStore interface {
	Name() string
	Save(ctx context.Context, kind string, blob []byte) error
	// Load returns recommender.ErrNotFound when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
}

// ---- Request / result DTOs ---------------------------------------------------

// RecommendParams select the candidate pool and the number of results.
// A nil MinStars falls back to the configured default; N of zero means TopN.
type RecommendParams struct {
	Tags     []string
	MinStars *int
	MaxStars int
	N        int
}

// FeedbackParams identify the rated repository. Tags, when present, make the
// service re-run the search and match the URL against those results only.
type FeedbackParams struct {
	ProjectURL string
	Label      string
	Tags       []string
	MinStars   *int
	MaxStars   int
}

// Options carry the request defaults.
type Options struct {
	TopN            int
	DefaultMinStars int
}

// ---- Service interface + implementation ------------------------------------

// RecommendService combines GitHub search with the online learner.
type RecommendService interface {
	Recommend(ctx context.Context, p RecommendParams) ([]models.Repository, error)
	Feedback(ctx context.Context, p FeedbackParams) (models.FeedbackResponse, error)
	SaveModel(ctx context.Context) error
	LoadModel(ctx context.Context) error
	ResetModel()
	Summary() recommender.Summary
	StoreStatus(ctx context.Context) (name string, err error)
}

type recommendService struct {
	search  github.Searcher
	learner *recommender.Learner
	store   ModelStore
	opts    Options
	seen    *candidateRegistry
}

// NewRecommendService wires the searcher, learner and model store.
func NewRecommendService(search github.Searcher, learner *recommender.Learner, store ModelStore, opts Options) RecommendService {
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	if opts.DefaultMinStars < 0 {
		opts.DefaultMinStars = 0
	}
	s := &recommendService{
		search:  search,
		learner: learner,
		store:   store,
		opts:    opts,
		seen:    newCandidateRegistry(),
	}
	s.observe()
	return s
}

func (s *recommendService) query(tags []string, minStars *int, maxStars int) (github.SearchQuery, error) {
	q := github.SearchQuery{Tags: tags, MinStars: s.opts.DefaultMinStars, MaxStars: maxStars}
	if minStars != nil {
		q.MinStars = *minStars
	}
	if q.MinStars < 0 || q.MaxStars < 0 {
		return q, goerr.Wrap(recommender.ErrInvalidArgument, "star bounds must be non-negative",
			goerr.V("min_stars", q.MinStars), goerr.V("max_stars", q.MaxStars))
	}
	if q.MaxStars > 0 && q.MaxStars < q.MinStars {
		return q, goerr.Wrap(recommender.ErrInvalidArgument, "max_stars is below min_stars",
			goerr.V("min_stars", q.MinStars), goerr.V("max_stars", q.MaxStars))
	}
	return q, nil
}

// Recommend searches GitHub and ranks the results with the learner.
func (s *recommendService) Recommend(ctx context.Context, p RecommendParams) ([]models.Repository, error) {
	if len(p.Tags) == 0 {
		return nil, goerr.Wrap(recommender.ErrInvalidArgument, "at least one tag is required")
	}
	n := p.N
	if n == 0 {
		n = s.opts.TopN
	}
	if n < 0 {
		return nil, goerr.Wrap(recommender.ErrInvalidArgument, "n must be positive", goerr.V(recommender.CandidateKey, n))
	}
	q, err := s.query(p.Tags, p.MinStars, p.MaxStars)
	if err != nil {
		return nil, err
	}

	candidates, err := s.search.SearchRepositories(ctx, q)
	if err != nil {
		return nil, err
	}
	s.seen.replace(candidates)

	picked, err := s.learner.Select(candidates, n)
	if err != nil {
		return nil, goerr.Wrap(err, "rank candidates", goerr.V("query", q.String()))
	}

	metrics.RecommendationsServed.Add(float64(len(picked)))
	s.observe()
	logging.Info().
		Str("query", q.String()).
		Int("candidates", len(candidates)).
		Int("returned", len(picked)).
		Msg("recommendations served")
	return picked, nil
}

// Feedback applies a like/maybe/dislike label to a repository returned by the
// last search.
func (s *recommendService) Feedback(ctx context.Context, p FeedbackParams) (models.FeedbackResponse, error) {
	fb, err := recommender.ParseFeedback(p.Label)
	if err != nil {
		metrics.FeedbackEvents.WithLabelValues("invalid", "rejected").Inc()
		return models.FeedbackResponse{}, err
	}
	url := strings.TrimSpace(p.ProjectURL)
	if url == "" {
		return models.FeedbackResponse{}, goerr.Wrap(recommender.ErrInvalidArgument, "project_url is required")
	}

	repo, err := s.lookup(ctx, url, p)
	if err != nil {
		metrics.FeedbackEvents.WithLabelValues(fb.String(), "rejected").Inc()
		return models.FeedbackResponse{}, err
	}

	res, err := s.learner.Feedback(repo, fb.String())
	if err != nil {
		metrics.FeedbackEvents.WithLabelValues(fb.String(), "error").Inc()
		return models.FeedbackResponse{}, err
	}
	metrics.FeedbackEvents.WithLabelValues(fb.String(), "applied").Inc()
	s.observe()

	logging.Info().
		Str(recommender.RepoURLKey, url).
		Str(recommender.LabelKey, fb.String()).
		Float64("score_before", res.ScoreBefore).
		Float64("score_after", res.ScoreAfter).
		Float64("exploration_rate", res.ExplorationRate).
		Msg("feedback applied")

	return models.FeedbackResponse{
		Message:         "Feedback received and model updated",
		Feedback:        res.Feedback.String(),
		Reward:          res.Reward,
		ScoreBefore:     res.ScoreBefore,
		ScoreAfter:      res.ScoreAfter,
		ExplorationRate: res.ExplorationRate,
	}, nil
}

// lookup resolves url against the current candidate set. With tags the search
// runs again first and only its results are considered.
func (s *recommendService) lookup(ctx context.Context, url string, p FeedbackParams) (models.Repository, error) {
	if len(p.Tags) > 0 {
		q, err := s.query(p.Tags, p.MinStars, p.MaxStars)
		if err != nil {
			return models.Repository{}, err
		}
		candidates, err := s.search.SearchRepositories(ctx, q)
		if err != nil {
			return models.Repository{}, err
		}
		s.seen.replace(candidates)
	}
	if repo, ok := s.seen.get(url); ok {
		return repo, nil
	}
	return models.Repository{}, goerr.Wrap(recommender.ErrNotFound, "project not found in the last search results",
		goerr.V(recommender.RepoURLKey, url))
}

// SaveModel snapshots the learner into the store.
func (s *recommendService) SaveModel(ctx context.Context) error {
	var buf bytes.Buffer
	if err := s.learner.Save(&buf); err != nil {
		metrics.ModelPersistence.WithLabelValues("save", "error").Inc()
		return err
	}
	kind := string(s.learner.Summary().Kind)
	if err := s.store.Save(ctx, kind, buf.Bytes()); err != nil {
		metrics.ModelPersistence.WithLabelValues("save", "error").Inc()
		return goerr.Wrap(err, "save model", goerr.V("store", s.store.Name()))
	}
	metrics.ModelPersistence.WithLabelValues("save", "ok").Inc()
	logging.Info().Str("store", s.store.Name()).Str(recommender.KindKey, kind).Int("bytes", buf.Len()).Msg("model saved")
	return nil
}

// LoadModel replaces the learner with the stored snapshot. A missing snapshot
// yields recommender.ErrNotFound and an unreadable one recommender.ErrCorrupt.
func (s *recommendService) LoadModel(ctx context.Context) error {
	blob, err := s.store.Load(ctx)
	if err != nil {
		outcome := "error"
		if errors.Is(err, recommender.ErrNotFound) {
			outcome = "missing"
		}
		metrics.ModelPersistence.WithLabelValues("load", outcome).Inc()
		return err
	}
	if err := s.learner.Restore(bytes.NewReader(blob)); err != nil {
		metrics.ModelPersistence.WithLabelValues("load", "corrupt").Inc()
		return goerr.Wrap(err, "restore model", goerr.V("store", s.store.Name()))
	}
	metrics.ModelPersistence.WithLabelValues("load", "ok").Inc()
	s.observe()

	sum := s.learner.Summary()
	logging.Info().
		Str("store", s.store.Name()).
		Str(recommender.KindKey, string(sum.Kind)).
		Int("cached_features", sum.CachedFeatures).
		Msg("model loaded")
	return nil
}

// ResetModel forgets everything learned and every remembered candidate.
func (s *recommendService) ResetModel() {
	s.learner.Reset()
	s.seen.reset()
	s.observe()
	logging.Info().Msg("model reset")
}

func (s *recommendService) Summary() recommender.Summary {
	return s.learner.Summary()
}

// StoreStatus names the configured store and pings it.
func (s *recommendService) StoreStatus(ctx context.Context) (string, error) {
	return s.store.Name(), s.store.Ping(ctx)
}

func (s *recommendService) observe() {
	sum := s.learner.Summary()
	metrics.ExplorationRate.Set(sum.ExplorationRate)
	metrics.FeatureCacheEntries.Set(float64(sum.CachedFeatures))
}
