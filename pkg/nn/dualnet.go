// Package nn defines the dual-headed network contract used by tree search:
// a batched evaluation that maps encoded positions to (policy, value) pairs,
// the feature encoding itself, and a concurrent inference cache.
package nn

import "github.com/sente-dev/sente/pkg/game"

// Output is one network evaluation: a probability over all moves (including
// pass) and a scalar value in [-1, 1] from black's perspective.
type Output struct {
	Policy [game.NumMoves]float32
	Value  float32
}

// DualNet evaluates batches of encoded positions. RunMany returns one Output
// per input feature buffer together with the identity of the model that
// served the batch. Implementations may batch across callers internally, but
// all outputs for a call must be complete when RunMany returns.
type DualNet interface {
	RunMany(features [][]float32) ([]Output, string)
	Close() error
}
