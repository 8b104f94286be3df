// Package recommender implements the online learner behind the API: a TF-IDF
// feature extractor, a value model (linear or neural), epsilon-greedy
// selection and single-event feedback updates.
//
// A Learner is safe for concurrent use; every operation is serialised through
// one mutex.
package recommender

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/models"
)

// Config fixes the learner's hyper-parameters at construction.
type Config struct {
	Kind             ModelKind
	LearningRate     float64
	FeatureDim       int
	// ExplorationRate is kept as given, so zero selects greedily. Start from
	// DefaultConfig for the 0.1 default.
	ExplorationRate  float64
	ExplorationDecay float64
	Network          NetworkConfig
	// Seed for the learner's random source; zero means time based.
	Seed uint64
}

// DefaultConfig returns the reference hyper-parameters for the linear model.
func DefaultConfig() Config {
	return Config{
		Kind:             KindLinear,
		LearningRate:     0.01,
		FeatureDim:       100,
		ExplorationRate:  0.1,
		ExplorationDecay: 0.995,
		Network:          DefaultNetworkConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Kind == "" {
		c.Kind = d.Kind
	}
	if c.FeatureDim <= 0 {
		c.FeatureDim = d.FeatureDim
	}
	if c.ExplorationRate < 0 || c.ExplorationRate > 1 {
		c.ExplorationRate = d.ExplorationRate
	}
	if c.ExplorationDecay <= 0 || c.ExplorationDecay > 1 {
		c.ExplorationDecay = d.ExplorationDecay
	}
	if c.LearningRate <= 0 {
		if c.Kind == KindNetwork {
			c.LearningRate = DefaultNetworkConfig().LearningRate
		} else {
			c.LearningRate = d.LearningRate
		}
	}
	c.Network.LearningRate = c.LearningRate
	c.Network = c.Network.withDefaults()
	return c
}

// Learner owns the whole recommender state: vectorizer, feature cache, value
// model and exploration rate.
type Learner struct {
	mu sync.Mutex

	cfg        Config
	rng        *rand.Rand
	vectorizer *Vectorizer
	model      ValueModel
	features   map[string][]float64
	epsilon    float64
	feedbacks  int
}

// New builds a fresh learner. Missing or out-of-range settings fall back to
// DefaultConfig; an exploration rate of zero is a valid setting and is kept.
func New(cfg Config) *Learner {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	l := &Learner{cfg: cfg, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	l.resetLocked()
	return l
}

func (l *Learner) newModel(kind ModelKind) ValueModel {
	if kind == KindNetwork {
		return NewNetwork(l.cfg.Network, l.rng)
	}
	return NewLinear(l.cfg.LearningRate)
}

// Reset discards everything learned and returns to the constructed state.
func (l *Learner) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

func (l *Learner) resetLocked() {
	l.vectorizer = NewVectorizer(l.cfg.FeatureDim)
	l.model = l.newModel(l.cfg.Kind)
	l.features = make(map[string][]float64)
	l.epsilon = l.cfg.ExplorationRate
	l.feedbacks = 0
}

// AddRepository makes sure repo has a cached feature vector. The first
// repository seen by an unfitted learner fixes the vocabulary.
func (l *Learner) AddRepository(repo models.Repository) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.ensureLocked(repo)
	return err
}

// Fit fits the vocabulary over repos if it is not fitted yet and reports
// whether a fit happened.
func (l *Learner) Fit(repos []models.Repository) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fitLocked(repos)
}

func (l *Learner) fitLocked(repos []models.Repository) (bool, error) {
	if l.vectorizer.Fitted() {
		return false, nil
	}
	seen := make(map[string]struct{}, len(repos))
	docs := make([]string, 0, len(repos))
	for _, r := range repos {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		docs = append(docs, Document(r))
	}
	if err := l.vectorizer.Fit(docs); err != nil {
		return false, err
	}
	l.model.Init(l.vectorizer.Dim())
	return true, nil
}

func (l *Learner) ensureLocked(repo models.Repository) ([]float64, error) {
	if repo.URL == "" {
		return nil, goerr.Wrap(ErrInvalidArgument, "repository url is required")
	}
	if vec, ok := l.features[repo.URL]; ok {
		return vec, nil
	}
	if _, err := l.fitLocked([]models.Repository{repo}); err != nil {
		return nil, err
	}
	vec, err := l.vectorizer.Transform(Document(repo))
	if err != nil {
		return nil, err
	}
	if l.model.Dim() == 0 {
		l.model.Init(len(vec))
	}
	l.features[repo.URL] = vec
	return vec, nil
}

// Score returns the model's estimate for a previously cached repository.
func (l *Learner) Score(url string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vec, ok := l.features[url]
	if !ok {
		return 0, goerr.Wrap(ErrNotFound, "no cached features for repository", goerr.V(RepoURLKey, url))
	}
	return l.model.Score(vec)
}

// Select ranks candidates and returns at most n of them, best first. Each
// candidate independently gets a uniform random score with probability equal
// to the exploration rate. Ties keep input order.
func (l *Learner) Select(candidates []models.Repository, n int) ([]models.Repository, error) {
	if n <= 0 {
		return nil, goerr.Wrap(ErrInvalidArgument, "n must be positive", goerr.V(CandidateKey, n))
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(candidates) == 0 {
		return []models.Repository{}, nil
	}

	var unseen []models.Repository
	for _, c := range candidates {
		if _, ok := l.features[c.URL]; !ok {
			unseen = append(unseen, c)
		}
	}
	if len(unseen) > 0 {
		if _, err := l.fitLocked(unseen); err != nil {
			return nil, err
		}
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		vec, err := l.ensureLocked(c)
		if err != nil {
			return nil, err
		}
		if l.rng.Float64() < l.epsilon {
			scores[i] = l.rng.Float64()
			continue
		}
		if scores[i], err = l.model.Score(vec); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	if n > len(order) {
		n = len(order)
	}
	out := make([]models.Repository, n)
	for i := range out {
		out[i] = candidates[order[i]]
	}
	return out, nil
}

// FeedbackResult describes the effect of one feedback event.
type FeedbackResult struct {
	Feedback        Feedback
	Reward          float64
	ScoreBefore     float64
	ScoreAfter      float64
	ExplorationRate float64
}

// Feedback trains the model on a label for repo. An invalid label is rejected
// before any state is touched.
func (l *Learner) Feedback(repo models.Repository, label string) (FeedbackResult, error) {
	fb, err := ParseFeedback(label)
	if err != nil {
		return FeedbackResult{}, err
	}
	reward, err := fb.Reward()
	if err != nil {
		return FeedbackResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	vec, err := l.ensureLocked(repo)
	if err != nil {
		return FeedbackResult{}, err
	}
	before, err := l.model.Score(vec)
	if err != nil {
		return FeedbackResult{}, err
	}
	if err := l.model.Update(vec, reward); err != nil {
		return FeedbackResult{}, goerr.Wrap(err, "apply feedback", goerr.V(RepoURLKey, repo.URL), goerr.V(LabelKey, fb.String()))
	}
	after, err := l.model.Score(vec)
	if err != nil {
		return FeedbackResult{}, err
	}

	prev := l.epsilon
	l.epsilon *= l.cfg.ExplorationDecay
	if l.epsilon == 0 && prev > 0 {
		l.epsilon = math.SmallestNonzeroFloat64
	}
	l.feedbacks++

	return FeedbackResult{
		Feedback:        fb,
		Reward:          reward,
		ScoreBefore:     before,
		ScoreAfter:      after,
		ExplorationRate: l.epsilon,
	}, nil
}

// ExplorationRate returns the current epsilon.
func (l *Learner) ExplorationRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epsilon
}

// SetExplorationRate overrides epsilon; it must lie in [0, 1].
func (l *Learner) SetExplorationRate(eps float64) error {
	if math.IsNaN(eps) || eps < 0 || eps > 1 {
		return goerr.Wrap(ErrInvalidArgument, "exploration rate must be within [0, 1]", goerr.V("exploration_rate", eps))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epsilon = eps
	return nil
}

// Features returns a copy of the cached vector for url.
func (l *Learner) Features(url string) ([]float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vec, ok := l.features[url]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), vec...), true
}

// Summary is a read-only view of the learner.
type Summary struct {
	Kind            ModelKind `json:"kind"`
	Dimension       int       `json:"dimension"`
	VocabularySize  int       `json:"vocabulary_size"`
	CachedFeatures  int       `json:"cached_features"`
	ExplorationRate float64   `json:"exploration_rate"`
	LearningRate    float64   `json:"learning_rate"`
	FeedbackCount   int       `json:"feedback_count"`
}

func (l *Learner) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Summary{
		Kind:            l.model.Kind(),
		Dimension:       l.model.Dim(),
		VocabularySize:  l.vectorizer.Dim(),
		CachedFeatures:  len(l.features),
		ExplorationRate: l.epsilon,
		LearningRate:    l.cfg.LearningRate,
		FeedbackCount:   l.feedbacks,
	}
}
