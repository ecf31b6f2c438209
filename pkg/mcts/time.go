package mcts

import (
	"math"
	"time"
)

// TimeRecommendation converts a global per-game time budget into a per-move
// allocation for one side. Play proceeds at secondsPerMove for as long as the
// remaining budget allows, then decays geometrically; the geometric tail sums
// to secondsPerMove/(1-decayFactor), so the total never exceeds timeLimit in
// expectation.
func TimeRecommendation(moveNum int, secondsPerMove, timeLimit, decayFactor float64) float64 {
	// Only the moves made by this side consume its budget.
	playerMoveNum := moveNum / 2

	endgameTime := secondsPerMove / (1.0 - decayFactor)

	var baseTime float64
	var coreMoves int
	if endgameTime > timeLimit {
		// There is so little time that the game is already in its endgame.
		baseTime = timeLimit * (1.0 - decayFactor)
		coreMoves = 0
	} else {
		baseTime = secondsPerMove
		coreMoves = int((timeLimit - endgameTime) / secondsPerMove)
	}

	return baseTime * math.Pow(decayFactor, float64(max(playerMoveNum-coreMoves, 0)))
}

// timer tracks the wall-clock budget of one search. The search loop checks
// it between rounds only; a round in flight always finishes.
type timer struct {
	start    time.Time
	duration time.Duration
}

func newTimer(seconds float64) *timer {
	return &timer{
		start:    time.Now(),
		duration: time.Duration(seconds * float64(time.Second)),
	}
}

// Check if this timer has ended
func (t *timer) expired() bool {
	return time.Since(t.start) >= t.duration
}
