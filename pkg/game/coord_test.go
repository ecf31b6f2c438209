package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoord(t *testing.T) {
	tests := []struct {
		in   string
		want Coord
	}{
		{"A1", CoordFromRowCol(8, 0)},
		{"D4", CoordFromRowCol(5, 3)},
		{"E5", CoordFromRowCol(4, 4)},
		{"J9", CoordFromRowCol(0, 8)}, // column letters skip I
		{"pass", Pass},
		{"PASS", Pass},
		{"resign", Resign},
	}
	for _, tt := range tests {
		got, err := ParseCoord(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCoordInvalid(t *testing.T) {
	for _, in := range []string{"", "A", "I5", "A0", "A10", "Z3", "99"} {
		_, err := ParseCoord(in)
		assert.Error(t, err, in)
	}
}

func TestCoordStringRoundTrip(t *testing.T) {
	for i := 0; i < N*N; i++ {
		c := Coord(i)
		got, err := ParseCoord(c.String())
		require.NoError(t, err, c.String())
		assert.Equal(t, c, got)
	}
	assert.Equal(t, "pass", Pass.String())
	assert.Equal(t, "resign", Resign.String())
	assert.Equal(t, "invalid", Invalid.String())
}

func TestColorOther(t *testing.T) {
	assert.Equal(t, White, Black.Other())
	assert.Equal(t, Black, White.Other())
	assert.Equal(t, Empty, Empty.Other())
}
