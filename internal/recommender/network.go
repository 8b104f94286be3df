package recommender

import (
	"math/rand/v2"

	"github.com/m-mizutani/goerr/v2"
)

// NetworkConfig tunes the neural value model.
type NetworkConfig struct {
	LearningRate   float64
	Gamma          float64
	BatchSize      int
	ReplayCapacity int
	TargetSyncProb float64
	Hidden         []int
}

// DefaultNetworkConfig mirrors the reference topology: input→128→64→1.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		LearningRate:   0.001,
		Gamma:          0.99,
		BatchSize:      32,
		ReplayCapacity: 1000,
		TargetSyncProb: 0.1,
		Hidden:         []int{128, 64},
	}
}

func (c NetworkConfig) withDefaults() NetworkConfig {
	d := DefaultNetworkConfig()
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		c.Gamma = d.Gamma
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.ReplayCapacity <= 0 {
		c.ReplayCapacity = d.ReplayCapacity
	}
	if c.TargetSyncProb <= 0 || c.TargetSyncProb > 1 {
		c.TargetSyncProb = d.TargetSyncProb
	}
	if len(c.Hidden) == 0 {
		c.Hidden = d.Hidden
	}
	return c
}

// Network is a feed-forward value estimator trained from an experience
// replay buffer against a periodically synchronised target network.
type Network struct {
	cfg    NetworkConfig
	rng    *rand.Rand
	live   *mlp
	target *mlp
	opt    *adam
	replay *replayBuffer
}

// NewNetwork returns an uninitialised network model. rng drives parameter
// initialisation, minibatch sampling and target synchronisation.
func NewNetwork(cfg NetworkConfig, rng *rand.Rand) *Network {
	cfg = cfg.withDefaults()
	return &Network{cfg: cfg, rng: rng, replay: newReplayBuffer(cfg.ReplayCapacity)}
}

func (n *Network) Kind() ModelKind { return KindNetwork }

func (n *Network) Init(dim int) {
	if n.live != nil {
		return
	}
	sizes := append([]int{dim}, n.cfg.Hidden...)
	sizes = append(sizes, 1)
	n.live = newMLP(sizes, n.rng)
	n.target = n.live.clone()
	n.opt = newAdam(n.live, n.cfg.LearningRate)
}

func (n *Network) Dim() int {
	if n.live == nil {
		return 0
	}
	return n.live.inputDim()
}

// ReplayLen reports how many observations are buffered.
func (n *Network) ReplayLen() int { return n.replay.Len() }

func (n *Network) Score(x []float64) (float64, error) {
	if err := checkDim(x, n.Dim()); err != nil {
		return 0, err
	}
	s := n.live.forward(x)
	if !finite(s) {
		return 0, goerr.Wrap(ErrInternalModel, "non-finite score")
	}
	return s, nil
}

// Update buffers the observation and, once the buffer holds a full batch,
// takes one optimizer step towards reward + gamma × target(x).
func (n *Network) Update(x []float64, reward float64) error {
	if err := checkDim(x, n.Dim()); err != nil {
		return err
	}
	undo := n.replay.push(transition{features: append([]float64(nil), x...), reward: reward})
	if n.replay.Len() < n.cfg.BatchSize {
		return nil
	}

	batch := n.replay.sample(n.rng, n.cfg.BatchSize)
	xs := make([][]float64, len(batch))
	ys := make([]float64, len(batch))
	for i, t := range batch {
		xs[i] = t.features
		ys[i] = t.reward + n.cfg.Gamma*n.target.forward(t.features)
	}

	grad, loss := n.live.gradients(xs, ys)
	live, opt := n.opt.step(n.live, grad)
	if !finite(loss) || !live.finite() {
		undo()
		return goerr.Wrap(ErrInternalModel, "non-finite network parameters after update")
	}
	n.live, n.opt = live, opt

	if n.rng.Float64() < n.cfg.TargetSyncProb {
		n.target = n.live.clone()
	}
	return nil
}

func (n *Network) state() *networkState {
	s := &networkState{
		Gamma:          n.cfg.Gamma,
		BatchSize:      n.cfg.BatchSize,
		ReplayCapacity: n.cfg.ReplayCapacity,
		TargetSyncProb: n.cfg.TargetSyncProb,
	}
	if n.live != nil {
		s.Live = n.live.state()
		s.Target = n.target.state()
	}
	return s
}
