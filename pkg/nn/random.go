package nn

import (
	"math/rand"
	"sync"
)

// RandomNet is a stand-in dual net for tests and demos: a near-uniform
// policy with a little jitter and a small random value. It is safe for
// concurrent callers.
type RandomNet struct {
	model string
	mu    sync.Mutex
	rnd   *rand.Rand

	// batches counts RunMany calls, evals the total positions served.
	batches int
	evals   int
}

func NewRandomNet(model string, seed int64) *RandomNet {
	return &RandomNet{
		model: model,
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

func (n *RandomNet) RunMany(features [][]float32) ([]Output, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches++
	n.evals += len(features)

	outputs := make([]Output, len(features))
	for i := range outputs {
		out := &outputs[i]
		var sum float32
		for j := range out.Policy {
			v := 1 + 0.2*float32(n.rnd.Float64()-0.5)
			out.Policy[j] = v
			sum += v
		}
		for j := range out.Policy {
			out.Policy[j] /= sum
		}
		out.Value = 0.1 * float32(n.rnd.Float64()*2-1)
	}
	return outputs, n.model
}

// Batches reports how many RunMany calls were served.
func (n *RandomNet) Batches() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.batches
}

// Evals reports the total number of positions evaluated.
func (n *RandomNet) Evals() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.evals
}

func (n *RandomNet) Close() error { return nil }
