package recommender

import "math/rand/v2"

type transition struct {
	features []float64
	reward   float64
}

// replayBuffer is a bounded FIFO of observations; the oldest entry is
// overwritten once the buffer is full.
type replayBuffer struct {
	items []transition
	next  int
	size  int
}

func newReplayBuffer(capacity int) *replayBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &replayBuffer{items: make([]transition, capacity)}
}

func (r *replayBuffer) Len() int { return r.size }

func (r *replayBuffer) Cap() int { return len(r.items) }

// push appends t and returns a func that undoes the push.
func (r *replayBuffer) push(t transition) (undo func()) {
	slot, prevNext, prevSize, prev := r.next, r.next, r.size, r.items[r.next]
	r.items[slot] = t
	r.next = (r.next + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
	return func() {
		r.items[slot] = prev
		r.next = prevNext
		r.size = prevSize
	}
}

// sample draws n distinct entries uniformly at random.
func (r *replayBuffer) sample(rng *rand.Rand, n int) []transition {
	if n > r.size {
		n = r.size
	}
	out := make([]transition, n)
	for i, idx := range rng.Perm(r.size)[:n] {
		out[i] = r.items[idx]
	}
	return out
}
