package recommender

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// SnapshotVersion is the envelope version written by Save.
const SnapshotVersion = 1

// Snapshot is the persisted form of a Learner. The replay buffer and
// optimizer moments are not part of it.
type Snapshot struct {
	Version         int                  `json:"version"`
	ID              string               `json:"id"`
	SavedAt         time.Time            `json:"saved_at"`
	Kind            ModelKind            `json:"kind"`
	LearningRate    float64              `json:"learning_rate"`
	ExplorationRate float64              `json:"exploration_rate"`
	FeedbackCount   int                  `json:"feedback_count"`
	Vectorizer      vectorizerState      `json:"vectorizer"`
	Features        map[string][]float64 `json:"features"`
	Linear          *linearState         `json:"linear,omitempty"`
	Network         *networkState        `json:"network,omitempty"`
}

type vectorizerState struct {
	MaxFeatures int       `json:"max_features"`
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
}

type linearState struct {
	Weights []float64 `json:"weights"`
}

type layerState struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`
}

type networkState struct {
	Gamma          float64      `json:"gamma"`
	BatchSize      int          `json:"batch_size"`
	ReplayCapacity int          `json:"replay_capacity"`
	TargetSyncProb float64      `json:"target_sync_prob"`
	Live           []layerState `json:"live,omitempty"`
	Target         []layerState `json:"target,omitempty"`
}

// Snapshot captures a deep copy of the learner state.
func (l *Learner) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Snapshot{
		Version:         SnapshotVersion,
		ID:              uuid.NewString(),
		SavedAt:         time.Now().UTC(),
		Kind:            l.model.Kind(),
		LearningRate:    l.cfg.LearningRate,
		ExplorationRate: l.epsilon,
		FeedbackCount:   l.feedbacks,
		Vectorizer:      l.vectorizer.state(),
		Features:        make(map[string][]float64, len(l.features)),
	}
	for url, vec := range l.features {
		s.Features[url] = append([]float64(nil), vec...)
	}
	switch m := l.model.(type) {
	case *Linear:
		s.Linear = &linearState{Weights: m.Weights()}
	case *Network:
		s.Network = m.state()
	}
	return s
}

// Save writes the learner as a JSON snapshot envelope.
func (l *Learner) Save(w io.Writer) error {
	s := l.Snapshot()
	if err := json.NewEncoder(w).Encode(s); err != nil {
		return goerr.Wrap(err, "encode model snapshot")
	}
	return nil
}

// Restore replaces the learner state wholesale with the snapshot read from r.
// On error the current state is untouched.
func (l *Learner) Restore(r io.Reader) error {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return goerr.Wrap(ErrCorrupt, "decode model snapshot", goerr.V("cause", err.Error()))
	}
	return l.RestoreSnapshot(s)
}

// RestoreSnapshot validates s and installs it.
func (l *Learner) RestoreSnapshot(s Snapshot) error {
	if s.Version != SnapshotVersion {
		return goerr.Wrap(ErrCorrupt, "unsupported snapshot version", goerr.V(VersionKey, s.Version))
	}
	kind, err := ParseModelKind(string(s.Kind))
	if err != nil || s.Kind == "" {
		return goerr.Wrap(ErrCorrupt, "unknown model kind in snapshot", goerr.V(KindKey, s.Kind))
	}
	if !finite(s.ExplorationRate) || s.ExplorationRate < 0 || s.ExplorationRate > 1 {
		return goerr.Wrap(ErrCorrupt, "exploration rate out of range", goerr.V("exploration_rate", s.ExplorationRate))
	}

	vectorizer := NewVectorizer(s.Vectorizer.MaxFeatures)
	if err := vectorizer.restore(s.Vectorizer); err != nil {
		return err
	}

	dim := vectorizer.Dim()
	features := make(map[string][]float64, len(s.Features))
	for url, vec := range s.Features {
		if len(vec) != dim {
			return goerr.Wrap(ErrInternalModel, "cached feature vector does not match vocabulary",
				goerr.V(RepoURLKey, url), goerr.V(DimKey, len(vec)), goerr.V(WantDimKey, dim))
		}
		if !finite(vec...) {
			return goerr.Wrap(ErrCorrupt, "non-finite cached feature vector", goerr.V(RepoURLKey, url))
		}
		features[url] = append([]float64(nil), vec...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.cfg
	cfg.Kind = kind
	if s.LearningRate > 0 {
		cfg.LearningRate = s.LearningRate
		cfg.Network.LearningRate = s.LearningRate
	}

	var model ValueModel
	switch kind {
	case KindLinear:
		model, err = restoreLinear(s.Linear, cfg.LearningRate, dim)
	case KindNetwork:
		model, err = restoreNetwork(s.Network, cfg.Network, l.rng, features)
	}
	if err != nil {
		return err
	}

	l.cfg = cfg
	l.vectorizer = vectorizer
	l.model = model
	l.features = features
	l.epsilon = s.ExplorationRate
	l.feedbacks = s.FeedbackCount
	return nil
}

func restoreLinear(s *linearState, lr float64, dim int) (*Linear, error) {
	m := NewLinear(lr)
	if s == nil || len(s.Weights) == 0 {
		if dim > 0 {
			m.Init(dim)
		}
		return m, nil
	}
	if len(s.Weights) != dim {
		return nil, goerr.Wrap(ErrInternalModel, "linear weights do not match vocabulary",
			goerr.V(DimKey, len(s.Weights)), goerr.V(WantDimKey, dim))
	}
	if !finite(s.Weights...) {
		return nil, goerr.Wrap(ErrCorrupt, "non-finite linear weights")
	}
	m.weights = append([]float64(nil), s.Weights...)
	return m, nil
}

// restoreNetwork rebuilds the topology from the cached vectors' length. With
// an empty cache the network stays uninitialised until the next extraction.
func restoreNetwork(s *networkState, cfg NetworkConfig, rng *rand.Rand, features map[string][]float64) (*Network, error) {
	if s != nil {
		cfg.Gamma = s.Gamma
		cfg.BatchSize = s.BatchSize
		cfg.ReplayCapacity = s.ReplayCapacity
		cfg.TargetSyncProb = s.TargetSyncProb
	}
	n := NewNetwork(cfg, rng)

	dim := 0
	for _, vec := range features {
		dim = len(vec)
		break
	}
	if dim == 0 {
		return n, nil
	}
	if s == nil || len(s.Live) == 0 {
		n.Init(dim)
		return n, nil
	}

	sizes, ok := shapeOf(s.Live)
	if !ok || sizes[len(sizes)-1] != 1 {
		return nil, goerr.Wrap(ErrCorrupt, "malformed network parameters")
	}
	if sizes[0] != dim {
		return nil, goerr.Wrap(ErrInternalModel, "network input does not match cached features",
			goerr.V(DimKey, sizes[0]), goerr.V(WantDimKey, dim))
	}
	live := mlpFromState(s.Live)
	if !live.finite() {
		return nil, goerr.Wrap(ErrCorrupt, "non-finite network parameters")
	}
	target := live.clone()
	if tSizes, ok := shapeOf(s.Target); ok && equalInts(tSizes, sizes) {
		target = mlpFromState(s.Target)
	}
	if !target.finite() {
		return nil, goerr.Wrap(ErrCorrupt, "non-finite target network parameters")
	}

	n.cfg.Hidden = sizes[1 : len(sizes)-1]
	n.live = live
	n.target = target
	n.opt = newAdam(live, n.cfg.LearningRate)
	return n, nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
