package recommender

import "github.com/m-mizutani/goerr/v2"

// Error classes surfaced by the learner and its collaborators. Callers match
// them with errors.Is; the HTTP layer maps each one to its own status code.
var (
	ErrInvalidArgument     = goerr.New("invalid argument")
	ErrNotFound            = goerr.New("not found")
	ErrCorrupt             = goerr.New("corrupt model snapshot")
	ErrUpstreamUnavailable = goerr.New("upstream unavailable")
	ErrInternalModel       = goerr.New("internal model error")
)

// Context keys attached to wrapped errors.
const (
	LabelKey     = "label"
	RepoURLKey   = "repo_url"
	DimKey       = "dim"
	WantDimKey   = "want_dim"
	KindKey      = "kind"
	VersionKey   = "version"
	CandidateKey = "n"
)
