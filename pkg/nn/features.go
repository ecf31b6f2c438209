package nn

import "github.com/sente-dev/sente/pkg/game"

// Feature encoding: a window of recent positions plus the side to move.
const (
	// MoveHistory is the number of recent positions encoded per input.
	MoveHistory = 8

	// NumFeatures is the number of planes per board point: two stone planes
	// per history step and one to-play plane.
	NumFeatures = MoveHistory*2 + 1

	// FeatureLen is the length of one encoded input buffer.
	FeatureLen = game.N * game.N * NumFeatures
)

// Features encodes the position history into out, which must have length at
// least FeatureLen. history[0] is the current position and history must have
// MoveHistory entries (pad by repeating the oldest position).
//
// Layout is point-major: for each board point, planes
// [own stones t0, opponent stones t0, own t1, opponent t1, ..., to-play],
// where "own" is relative to toPlay and the to-play plane is all ones when
// black is to move.
func Features(history []*game.Position, toPlay game.Color, out []float32) {
	if len(history) < MoveHistory {
		panic("nn: short position history")
	}
	if len(out) < FeatureLen {
		panic("nn: feature buffer too small")
	}
	opp := toPlay.Other()
	var blackToPlay float32
	if toPlay == game.Black {
		blackToPlay = 1
	}
	for p := 0; p < game.N*game.N; p++ {
		base := p * NumFeatures
		for t := 0; t < MoveHistory; t++ {
			stone := history[t].Stone(game.Coord(p))
			var own, other float32
			if stone == toPlay {
				own = 1
			} else if stone == opp {
				other = 1
			}
			out[base+2*t] = own
			out[base+2*t+1] = other
		}
		out[base+NumFeatures-1] = blackToPlay
	}
}
