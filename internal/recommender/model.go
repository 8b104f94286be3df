package recommender

import (
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ModelKind selects the value model strategy.
type ModelKind string

const (
	KindLinear  ModelKind = "linear"
	KindNetwork ModelKind = "network"
)

// ParseModelKind accepts "linear" or "network" (case-insensitive).
func ParseModelKind(s string) (ModelKind, error) {
	switch ModelKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLinear, "":
		return KindLinear, nil
	case KindNetwork:
		return KindNetwork, nil
	default:
		return "", goerr.Wrap(ErrInvalidArgument, "unknown model kind", goerr.V(KindKey, s))
	}
}

// ValueModel maps a feature vector to a desirability score and learns from
// single (features, reward) observations.
type ValueModel interface {
	Kind() ModelKind
	// Init sizes the model for dim-length vectors. Calling it again is a no-op.
	Init(dim int)
	// Dim is zero until Init has run.
	Dim() int
	Score(x []float64) (float64, error)
	// Update applies one learning step. On error the model is left unchanged.
	Update(x []float64, reward float64) error
}

func checkDim(x []float64, dim int) error {
	if dim == 0 {
		return goerr.Wrap(ErrInternalModel, "value model is not initialised")
	}
	if len(x) != dim {
		return goerr.Wrap(ErrInternalModel, "feature vector dimensionality mismatch",
			goerr.V(DimKey, len(x)), goerr.V(WantDimKey, dim))
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
