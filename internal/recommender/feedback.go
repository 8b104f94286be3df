package recommender

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Feedback is the closed set of labels a user can attach to a recommendation.
type Feedback int

const (
	FeedbackDislike Feedback = iota
	FeedbackMaybe
	FeedbackLike
)

// ParseFeedback maps a case-insensitive label onto a Feedback value.
func ParseFeedback(label string) (Feedback, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "like":
		return FeedbackLike, nil
	case "maybe":
		return FeedbackMaybe, nil
	case "dislike":
		return FeedbackDislike, nil
	default:
		return 0, goerr.Wrap(ErrInvalidArgument, "feedback must be one of: like, dislike, maybe",
			goerr.V(LabelKey, label))
	}
}

// Reward returns the scalar training signal for the label. Values outside the
// declared constants are rejected with ErrInvalidArgument.
func (f Feedback) Reward() (float64, error) {
	switch f {
	case FeedbackLike:
		return 1.0, nil
	case FeedbackMaybe:
		return 0.5, nil
	case FeedbackDislike:
		return 0.0, nil
	default:
		return 0, goerr.Wrap(ErrInvalidArgument, "unknown feedback value", goerr.V(LabelKey, int(f)))
	}
}

func (f Feedback) String() string {
	switch f {
	case FeedbackLike:
		return "like"
	case FeedbackMaybe:
		return "maybe"
	case FeedbackDislike:
		return "dislike"
	default:
		return "unknown"
	}
}
