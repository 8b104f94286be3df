package recommender

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/repo-recommender/server/internal/models"
)

func trainedLearner(t *testing.T, cfg Config) *Learner {
	t.Helper()
	l := New(cfg)
	_, err := l.Select([]models.Repository{repoA, repoB, repoC}, 3)
	require.NoError(t, err)
	for _, step := range []struct {
		repo  models.Repository
		label string
	}{
		{repoA, "like"}, {repoB, "dislike"}, {repoC, "maybe"}, {repoA, "like"}, {repoC, "like"},
	} {
		_, err := l.Feedback(step.repo, step.label)
		require.NoError(t, err)
	}
	return l
}

func assertSameScores(t *testing.T, want, got *Learner, urls ...string) {
	t.Helper()
	for _, url := range urls {
		w, err := want.Score(url)
		require.NoError(t, err)
		g, err := got.Score(url)
		require.NoError(t, err)
		assert.InDelta(t, w, g, 1e-9, url)
	}
}

func TestSnapshot_RoundTripLinear(t *testing.T) {
	src := trainedLearner(t, Config{Kind: KindLinear, ExplorationRate: 0.1, Seed: 1})

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst := New(Config{Kind: KindLinear, ExplorationRate: 0.3, Seed: 2})
	require.NoError(t, dst.Restore(&buf))

	assertSameScores(t, src, dst, repoA.URL, repoB.URL, repoC.URL)
	assert.Equal(t, src.ExplorationRate(), dst.ExplorationRate())
	assert.Equal(t, src.Summary(), dst.Summary())

	a, _ := src.Features(repoA.URL)
	b, _ := dst.Features(repoA.URL)
	assert.Equal(t, a, b)
}

func TestSnapshot_RoundTripNetwork(t *testing.T) {
	cfg := Config{Kind: KindNetwork, ExplorationRate: 0.1, Network: NetworkConfig{BatchSize: 2}, Seed: 1}
	src := trainedLearner(t, cfg)

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst := New(Config{Kind: KindNetwork, Seed: 9})
	require.NoError(t, dst.Restore(&buf))

	assertSameScores(t, src, dst, repoA.URL, repoB.URL, repoC.URL)
	assert.Equal(t, src.ExplorationRate(), dst.ExplorationRate())
}

func TestSnapshot_NetworkWithEmptyCacheStaysUninitialised(t *testing.T) {
	src := New(Config{Kind: KindNetwork, ExplorationRate: 0.05, Seed: 1})

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst := New(Config{Kind: KindNetwork, Seed: 2})
	require.NoError(t, dst.Restore(&buf))
	assert.Zero(t, dst.Summary().Dimension)
	assert.Equal(t, 0.05, dst.ExplorationRate())

	require.NoError(t, dst.AddRepository(repoA))
	assert.Positive(t, dst.Summary().Dimension)
}

func TestSnapshot_KindFollowsBlob(t *testing.T) {
	src := trainedLearner(t, Config{Kind: KindLinear, Seed: 1})
	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst := New(Config{Kind: KindNetwork, Seed: 2})
	require.NoError(t, dst.Restore(&buf))
	assert.Equal(t, KindLinear, dst.Summary().Kind)
	assertSameScores(t, src, dst, repoA.URL)
}

func TestSnapshot_RestoreErrors(t *testing.T) {
	base := trainedLearner(t, Config{Kind: KindLinear, Seed: 1})

	tests := []struct {
		name    string
		mutate  func(s *Snapshot)
		wantErr error
	}{
		{
			name:    "unknown version",
			mutate:  func(s *Snapshot) { s.Version = 99 },
			wantErr: ErrCorrupt,
		},
		{
			name:    "unknown kind",
			mutate:  func(s *Snapshot) { s.Kind = "forest" },
			wantErr: ErrCorrupt,
		},
		{
			name:    "exploration rate out of range",
			mutate:  func(s *Snapshot) { s.ExplorationRate = 2 },
			wantErr: ErrCorrupt,
		},
		{
			name:    "cached vector has wrong dimensionality",
			mutate:  func(s *Snapshot) { s.Features["https://github.com/test/odd"] = []float64{1} },
			wantErr: ErrInternalModel,
		},
		{
			name:    "weights have wrong dimensionality",
			mutate:  func(s *Snapshot) { s.Linear.Weights = append(s.Linear.Weights, 0) },
			wantErr: ErrInternalModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base.Snapshot()
			tt.mutate(&s)

			dst := newTestLearner(t, 0.1)
			require.NoError(t, dst.AddRepository(repoB))
			before := dst.Summary()

			err := dst.RestoreSnapshot(s)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, dst.Summary(), "failed restore leaves state untouched")
		})
	}
}

func TestSnapshot_RestoreRejectsNonFiniteTarget(t *testing.T) {
	src := trainedLearner(t, Config{Kind: KindNetwork, Network: NetworkConfig{BatchSize: 2}, Seed: 1})
	s := src.Snapshot()
	require.NotNil(t, s.Network)
	require.NotEmpty(t, s.Network.Target)
	s.Network.Target[0].B[0] = math.NaN()

	dst := newTestLearner(t, 0.1)
	require.NoError(t, dst.AddRepository(repoB))
	before := dst.Summary()

	require.ErrorIs(t, dst.RestoreSnapshot(s), ErrCorrupt)
	assert.Equal(t, before, dst.Summary())
}

func TestSnapshot_RestoreUndecodable(t *testing.T) {
	l := newTestLearner(t, 0.1)
	assert.ErrorIs(t, l.Restore(strings.NewReader("not json")), ErrCorrupt)
	assert.ErrorIs(t, l.Restore(strings.NewReader("")), ErrCorrupt)
}

func TestSnapshot_Envelope(t *testing.T) {
	l := trainedLearner(t, Config{Kind: KindLinear, Seed: 1})
	s := l.Snapshot()
	assert.Equal(t, SnapshotVersion, s.Version)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.SavedAt.IsZero())
	assert.Len(t, s.Features, 3)
	require.NotNil(t, s.Linear)
	assert.Nil(t, s.Network)
}
