package mcts

import (
	"time"

	"github.com/sente-dev/sente/pkg/game"
)

// Exploration parameter of the PUCT child score, higher values weigh the
// prior more heavily while lower values favor the observed action value.
// Default is tuned for 9x9.
var PuctParam float64 = 2.0

// Set the exploration parameter used in the PUCT child score
func SetPuctParam(c float64) {
	PuctParam = max(0.0, c)
}

// Dirichlet concentration of the root noise, scaled so smaller boards get
// proportionally flatter noise than 19x19's 0.03
var DirichletAlpha = 0.03 * 361 / float64(game.N*game.N)

type SeedGeneratorFnType func() int64

var SeedGeneratorFn SeedGeneratorFnType = func() int64 {
	return time.Now().UnixNano()
}

// Set custom seed generator function for players constructed without an
// explicit random seed, by default uses current time in nanoseconds
func SetSeedGeneratorFn(f SeedGeneratorFnType) {
	if f != nil {
		SeedGeneratorFn = f
	}
}
