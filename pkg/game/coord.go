package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Board geometry. The engine is compiled for a single board size; change N and
// rebuild for other sizes.
const (
	N        = 9
	NumMoves = N*N + 1 // board points plus pass

	// MaxSearchDepth caps the length of a game. Positions at this depth are
	// treated as terminal and scored as they stand.
	MaxSearchDepth = N * N * 7 / 5
)

// Coord identifies a point on the board in row-major order, or one of the
// special moves Pass and Resign.
type Coord int16

const (
	Pass    Coord = N * N
	Resign  Coord = N*N + 1
	Invalid Coord = -1
)

// GTP column letters skip 'I'.
const columnLetters = "ABCDEFGHJKLMNOPQRST"

func CoordFromRowCol(row, col int) Coord {
	return Coord(row*N + col)
}

func (c Coord) Row() int { return int(c) / N }
func (c Coord) Col() int { return int(c) % N }

// OnBoard reports whether the coordinate names an actual board point
// (as opposed to Pass, Resign or Invalid).
func (c Coord) OnBoard() bool {
	return c >= 0 && c < N*N
}

func (c Coord) String() string {
	switch {
	case c == Pass:
		return "pass"
	case c == Resign:
		return "resign"
	case !c.OnBoard():
		return "invalid"
	}
	// Rows are printed top-down, so row 0 is the top line of the board.
	return fmt.Sprintf("%c%d", columnLetters[c.Col()], N-c.Row())
}

// ParseCoord parses a GTP-style coordinate ("D4", "pass", "resign").
func ParseCoord(s string) (Coord, error) {
	switch strings.ToLower(s) {
	case "pass":
		return Pass, nil
	case "resign":
		return Resign, nil
	}
	if len(s) < 2 {
		return Invalid, fmt.Errorf("game: invalid coordinate %q", s)
	}
	col := strings.IndexByte(columnLetters, byte(strings.ToUpper(s)[0]))
	if col < 0 || col >= N {
		return Invalid, fmt.Errorf("game: invalid column in %q", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil || row < 1 || row > N {
		return Invalid, fmt.Errorf("game: invalid row in %q", s)
	}
	return CoordFromRowCol(N-row, col), nil
}

// Color of a point or player.
type Color int8

const (
	Empty Color = iota
	Black
	White
)

func (c Color) Other() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

func (c Color) String() string {
	switch c {
	case Black:
		return "B"
	case White:
		return "W"
	}
	return "."
}
