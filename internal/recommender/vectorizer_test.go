package recommender

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/repo-recommender/server/internal/models"
)

func TestVectorizer_Fit(t *testing.T) {
	v := NewVectorizer(100)
	require.NoError(t, v.Fit([]string{"alpha beta beta", "beta gamma"}))

	assert.True(t, v.Fitted())
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, v.Terms())
	assert.Equal(t, 3, v.Dim())
	assert.InDelta(t, math.Log(1.5)+1, v.idf[0], 1e-12)
	assert.InDelta(t, 1.0, v.idf[1], 1e-12)
}

func TestVectorizer_MaxFeatures(t *testing.T) {
	tests := []struct {
		name   string
		corpus []string
		max    int
		want   []string
	}{
		{
			name:   "keeps most frequent terms",
			corpus: []string{"go go go rust rust python"},
			max:    2,
			want:   []string{"go", "rust"},
		},
		{
			name:   "breaks frequency ties lexically",
			corpus: []string{"zeta alpha mid"},
			max:    2,
			want:   []string{"alpha", "mid"},
		},
		{
			name:   "ignores single character tokens",
			corpus: []string{"a b cc"},
			max:    10,
			want:   []string{"cc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVectorizer(tt.max)
			require.NoError(t, v.Fit(tt.corpus))
			assert.Equal(t, tt.want, v.Terms())
		})
	}
}

func TestVectorizer_FitErrors(t *testing.T) {
	v := NewVectorizer(10)
	assert.ErrorIs(t, v.Fit(nil), ErrInvalidArgument)
	assert.ErrorIs(t, v.Fit([]string{"a b c"}), ErrInvalidArgument)
	assert.False(t, v.Fitted())
}

func TestVectorizer_Transform(t *testing.T) {
	v := NewVectorizer(100)
	_, err := v.Transform("anything")
	require.ErrorIs(t, err, ErrInternalModel)

	require.NoError(t, v.Fit([]string{"alpha beta beta", "beta gamma"}))

	vec, err := v.Transform("Beta BETA")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, vec, 1e-12)

	vec, err = v.Transform("zeta omega")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, vec)

	vec, err = v.Transform("alpha gamma unknown")
	require.NoError(t, err)
	var norm float64
	for _, x := range vec {
		assert.GreaterOrEqual(t, x, 0.0)
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-12)

	again, err := v.Transform("alpha gamma unknown")
	require.NoError(t, err)
	assert.Equal(t, vec, again)
}

func TestDocument(t *testing.T) {
	repo := models.Repository{Name: "fastapi", Description: "web framework", Topics: []string{"python", "api"}}
	assert.Equal(t, "fastapi web framework python api", Document(repo))
}
