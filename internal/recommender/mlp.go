package recommender

import (
	"math"
	"math/rand/v2"
)

// dense is one fully connected layer; W is indexed [out][in].
type dense struct {
	W [][]float64
	B []float64
}

// mlp is a feed-forward network with ReLU on every layer but the last.
type mlp struct {
	layers []dense
}

func newMLP(sizes []int, rng *rand.Rand) *mlp {
	m := &mlp{layers: make([]dense, len(sizes)-1)}
	for l := range m.layers {
		in, out := sizes[l], sizes[l+1]
		bound := 1 / math.Sqrt(float64(in))
		d := dense{W: make([][]float64, out), B: make([]float64, out)}
		for o := range d.W {
			d.W[o] = make([]float64, in)
			for i := range d.W[o] {
				d.W[o][i] = (rng.Float64()*2 - 1) * bound
			}
			d.B[o] = (rng.Float64()*2 - 1) * bound
		}
		m.layers[l] = d
	}
	return m
}

// zerosLike returns a network of the same shape with every parameter zero.
func zerosLike(m *mlp) *mlp {
	z := &mlp{layers: make([]dense, len(m.layers))}
	for l, d := range m.layers {
		z.layers[l] = dense{W: make([][]float64, len(d.W)), B: make([]float64, len(d.B))}
		for o := range d.W {
			z.layers[l].W[o] = make([]float64, len(d.W[o]))
		}
	}
	return z
}

func (m *mlp) clone() *mlp {
	c := zerosLike(m)
	for l, d := range m.layers {
		for o := range d.W {
			copy(c.layers[l].W[o], d.W[o])
		}
		copy(c.layers[l].B, d.B)
	}
	return c
}

func (m *mlp) inputDim() int {
	if len(m.layers) == 0 || len(m.layers[0].W) == 0 {
		return 0
	}
	return len(m.layers[0].W[0])
}

func (m *mlp) forward(x []float64) float64 {
	acts, _ := m.trace(x)
	return acts[len(acts)-1][0]
}

// trace runs a forward pass keeping every activation (acts[0] is the input)
// and every pre-activation.
func (m *mlp) trace(x []float64) (acts, pre [][]float64) {
	acts = make([][]float64, len(m.layers)+1)
	pre = make([][]float64, len(m.layers))
	acts[0] = x
	last := len(m.layers) - 1
	for l, d := range m.layers {
		z := make([]float64, len(d.W))
		a := make([]float64, len(d.W))
		for o, row := range d.W {
			z[o] = dot(row, acts[l]) + d.B[o]
			a[o] = z[o]
			if l != last && a[o] < 0 {
				a[o] = 0
			}
		}
		pre[l] = z
		acts[l+1] = a
	}
	return acts, pre
}

// gradients returns d(MSE)/d(params) over the batch, and the loss.
func (m *mlp) gradients(xs [][]float64, ys []float64) (*mlp, float64) {
	grad := zerosLike(m)
	n := float64(len(xs))
	var loss float64

	for s, x := range xs {
		acts, pre := m.trace(x)
		out := acts[len(acts)-1][0]
		diff := out - ys[s]
		loss += diff * diff / n

		delta := []float64{2 * diff / n}
		for l := len(m.layers) - 1; l >= 0; l-- {
			d := m.layers[l]
			g := grad.layers[l]
			for o := range d.W {
				for i := range d.W[o] {
					g.W[o][i] += delta[o] * acts[l][i]
				}
				g.B[o] += delta[o]
			}
			if l == 0 {
				break
			}
			prev := make([]float64, len(d.W[0]))
			for i := range prev {
				if pre[l-1][i] <= 0 {
					continue
				}
				for o := range d.W {
					prev[i] += d.W[o][i] * delta[o]
				}
			}
			delta = prev
		}
	}
	return grad, loss
}

func (m *mlp) finite() bool {
	for _, d := range m.layers {
		for _, row := range d.W {
			if !finite(row...) {
				return false
			}
		}
		if !finite(d.B...) {
			return false
		}
	}
	return true
}

func (m *mlp) state() []layerState {
	out := make([]layerState, len(m.layers))
	c := m.clone()
	for l, d := range c.layers {
		out[l] = layerState{W: d.W, B: d.B}
	}
	return out
}

func mlpFromState(layers []layerState) *mlp {
	m := &mlp{layers: make([]dense, len(layers))}
	for l, s := range layers {
		m.layers[l] = dense{W: s.W, B: s.B}
	}
	return m.clone()
}

// shapeOf returns the layer sizes described by layers, or false when they do
// not form a well-formed network.
func shapeOf(layers []layerState) ([]int, bool) {
	if len(layers) == 0 {
		return nil, false
	}
	sizes := make([]int, 0, len(layers)+1)
	for l, s := range layers {
		if len(s.W) == 0 || len(s.W) != len(s.B) {
			return nil, false
		}
		in := len(s.W[0])
		for _, row := range s.W {
			if len(row) != in {
				return nil, false
			}
		}
		if l == 0 {
			sizes = append(sizes, in)
		} else if in != sizes[len(sizes)-1] {
			return nil, false
		}
		sizes = append(sizes, len(s.W))
	}
	return sizes, true
}

// adam holds first and second moment estimates shaped like the network.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  *mlp
}

func newAdam(params *mlp, lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, m: zerosLike(params), v: zerosLike(params)}
}

// step returns updated copies of params and of the optimizer; neither input
// is modified.
func (a *adam) step(params, grad *mlp) (*mlp, *adam) {
	next := &adam{lr: a.lr, beta1: a.beta1, beta2: a.beta2, eps: a.eps, t: a.t + 1, m: a.m.clone(), v: a.v.clone()}
	p := params.clone()
	c1 := 1 - math.Pow(a.beta1, float64(next.t))
	c2 := 1 - math.Pow(a.beta2, float64(next.t))

	update := func(w, g, m, v *float64) {
		*m = a.beta1*(*m) + (1-a.beta1)*(*g)
		*v = a.beta2*(*v) + (1-a.beta2)*(*g)*(*g)
		*w -= a.lr * (*m / c1) / (math.Sqrt(*v/c2) + a.eps)
	}
	for l := range p.layers {
		for o := range p.layers[l].W {
			for i := range p.layers[l].W[o] {
				update(&p.layers[l].W[o][i], &grad.layers[l].W[o][i], &next.m.layers[l].W[o][i], &next.v.layers[l].W[o][i])
			}
			update(&p.layers[l].B[o], &grad.layers[l].B[o], &next.m.layers[l].B[o], &next.v.layers[l].B[o])
		}
	}
	return p, next
}
