package models

import "time"

// RecommendRequest holds the query parameters of GET /recommend.
type RecommendRequest struct {
	Tags     string `query:"tags"      validate:"required"`
	MinStars int    `query:"min_stars" validate:"gte=0"`
	MaxStars int    `query:"max_stars" validate:"gte=0"`
	N        int    `query:"n"         validate:"gte=0,lte=100"`
}

// FeedbackRequest is the payload for POST /feedback.
type FeedbackRequest struct {
	ProjectURL string `json:"project_url" validate:"required"`
	Feedback   string `json:"feedback"    validate:"required"`
}

// FeedbackQuery holds the optional re-search parameters of POST /feedback.
type FeedbackQuery struct {
	Tags     string `query:"tags"`
	MinStars int    `query:"min_stars" validate:"gte=0"`
	MaxStars int    `query:"max_stars" validate:"gte=0"`
}

// FeedbackResponse reports what a feedback event did to the model.
type FeedbackResponse struct {
	Message         string  `json:"message"`
	Feedback        string  `json:"feedback"`
	Reward          float64 `json:"reward"`
	ScoreBefore     float64 `json:"score_before"`
	ScoreAfter      float64 `json:"score_after"`
	ExplorationRate float64 `json:"exploration_rate"`
}

// ModelRecord is the persisted form of the learner in MongoDB.
type ModelRecord struct {
	ID      string    `bson:"_id"`
	Kind    string    `bson:"kind"`
	Blob    []byte    `bson:"blob"`
	SavedAt time.Time `bson:"saved_at"`
}
