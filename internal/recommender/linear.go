package recommender

import "github.com/m-mizutani/goerr/v2"

// Linear scores with a dot product and learns with one squared-error
// gradient step per observation.
type Linear struct {
	learningRate float64
	weights      []float64
}

// NewLinear returns an uninitialised linear model.
func NewLinear(learningRate float64) *Linear {
	return &Linear{learningRate: learningRate}
}

func (l *Linear) Kind() ModelKind { return KindLinear }

func (l *Linear) Init(dim int) {
	if l.weights != nil {
		return
	}
	l.weights = make([]float64, dim)
}

func (l *Linear) Dim() int { return len(l.weights) }

// Weights returns a copy of the weight vector.
func (l *Linear) Weights() []float64 {
	return append([]float64(nil), l.weights...)
}

func (l *Linear) Score(x []float64) (float64, error) {
	if err := checkDim(x, len(l.weights)); err != nil {
		return 0, err
	}
	s := dot(l.weights, x)
	if !finite(s) {
		return 0, goerr.Wrap(ErrInternalModel, "non-finite score")
	}
	return s, nil
}

func (l *Linear) Update(x []float64, reward float64) error {
	predicted, err := l.Score(x)
	if err != nil {
		return err
	}
	step := l.learningRate * (reward - predicted)

	next := make([]float64, len(l.weights))
	for i, w := range l.weights {
		next[i] = w + step*x[i]
		if !finite(next[i]) {
			return goerr.Wrap(ErrInternalModel, "non-finite weight after update")
		}
	}
	l.weights = next
	return nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
