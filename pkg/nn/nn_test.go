package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sente-dev/sente/pkg/game"
)

func fullHistory(pos *game.Position) []*game.Position {
	history := make([]*game.Position, MoveHistory)
	for i := range history {
		history[i] = pos
	}
	return history
}

func TestFeaturesEncodesStones(t *testing.T) {
	c := game.CoordFromRowCol(4, 4)
	pos := game.NewPosition().Play(c) // black stone, white to play

	out := make([]float32, FeatureLen)
	Features(fullHistory(pos), pos.ToPlay(), out)

	base := int(c) * NumFeatures
	assert.Equal(t, float32(0), out[base], "own plane: white has no stone here")
	assert.Equal(t, float32(1), out[base+1], "opponent plane: black stone")
	assert.Equal(t, float32(0), out[base+NumFeatures-1], "white to play")

	// Re-encode from black's perspective: planes swap and the to-play plane
	// lights up.
	Features(fullHistory(pos), game.Black, out)
	assert.Equal(t, float32(1), out[base])
	assert.Equal(t, float32(0), out[base+1])
	assert.Equal(t, float32(1), out[base+NumFeatures-1])
}

func TestFeaturesHistoryPlanes(t *testing.T) {
	c := game.CoordFromRowCol(0, 0)
	before := game.NewPosition()
	after := before.Play(c)

	history := fullHistory(before)
	history[0] = after
	out := make([]float32, FeatureLen)
	Features(history, game.Black, out)

	base := int(c) * NumFeatures
	assert.Equal(t, float32(1), out[base], "own stone present at t0")
	assert.Equal(t, float32(0), out[base+1])
	assert.Equal(t, float32(0), out[base+2], "own plane empty at t1")
	assert.Equal(t, float32(0), out[base+3], "opponent plane empty at t1")
}

func TestFeaturesShortHistoryPanics(t *testing.T) {
	assert.Panics(t, func() {
		Features(make([]*game.Position, 2), game.Black, make([]float32, FeatureLen))
	})
}

func TestKeyDistinguishesMoveAndPosition(t *testing.T) {
	a := game.NewPosition()
	b := a.Play(game.CoordFromRowCol(0, 0))

	assert.NotEqual(t, NewKey(game.Invalid, a), NewKey(game.CoordFromRowCol(0, 0), b))
	assert.NotEqual(t, NewKey(game.Pass, a), NewKey(game.Invalid, a))
	assert.Equal(t, NewKey(game.Invalid, a), NewKey(game.Invalid, game.NewPosition()))
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(1024)
	require.NoError(t, err)
	defer cache.Close()

	pos := game.NewPosition()
	key := NewKey(game.Invalid, pos)

	_, ok := cache.TryGet(key)
	assert.False(t, ok)

	var out Output
	out.Value = 0.25
	out.Policy[0] = 1
	cache.Add(key, out)
	cache.Wait()

	got, ok := cache.TryGet(key)
	require.True(t, ok)
	assert.Equal(t, out, got)
}

func TestRandomNetPolicyNormalized(t *testing.T) {
	net := NewRandomNet("rand", 1)
	outputs, model := net.RunMany(make([][]float32, 3))

	assert.Equal(t, "rand", model)
	require.Len(t, outputs, 3)
	for _, out := range outputs {
		var sum float32
		for _, v := range out.Policy {
			require.GreaterOrEqual(t, v, float32(0))
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-4)
		assert.LessOrEqual(t, out.Value, float32(0.1))
		assert.GreaterOrEqual(t, out.Value, float32(-0.1))
	}
	assert.Equal(t, 1, net.Batches())
	assert.Equal(t, 3, net.Evals())
}
