package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		label  string
		want   Feedback
		reward float64
	}{
		{"like", FeedbackLike, 1.0},
		{"Like", FeedbackLike, 1.0},
		{" LIKE ", FeedbackLike, 1.0},
		{"maybe", FeedbackMaybe, 0.5},
		{"dislike", FeedbackDislike, 0.0},
		{"DisLike", FeedbackDislike, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseFeedback(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			reward, err := got.Reward()
			require.NoError(t, err)
			assert.Equal(t, tt.reward, reward)
		})
	}
}

func TestParseFeedback_Invalid(t *testing.T) {
	for _, label := range []string{"love", "", "likes", "hate"} {
		_, err := ParseFeedback(label)
		assert.ErrorIs(t, err, ErrInvalidArgument, "label %q", label)
	}
}

func TestFeedback_String(t *testing.T) {
	assert.Equal(t, "like", FeedbackLike.String())
	assert.Equal(t, "maybe", FeedbackMaybe.String())
	assert.Equal(t, "dislike", FeedbackDislike.String())
}

func TestFeedback_RewardRejectsUnknownValue(t *testing.T) {
	_, err := Feedback(99).Reward()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "unknown", Feedback(99).String())
}
