package game

import (
	"fmt"
	"strings"
)

// Position is a board state. Play returns a new Position and never mutates
// the receiver, so nodes of a search tree can safely share history.
type Position struct {
	stones   [N * N]Color
	toPlay   Color
	ko       Coord // illegal recapture point, or Invalid
	n        int   // number of moves played to reach this position
	lastMove Coord
	prevMove Coord
	hash     uint64
}

// NewPosition returns an empty board with black to play.
func NewPosition() *Position {
	return &Position{
		toPlay:   Black,
		ko:       Invalid,
		lastMove: Invalid,
		prevMove: Invalid,
		hash:     koKey(Invalid),
	}
}

func (p *Position) ToPlay() Color   { return p.toPlay }
func (p *Position) MoveNum() int    { return p.n }
func (p *Position) Ko() Coord       { return p.ko }
func (p *Position) LastMove() Coord { return p.lastMove }

// Hash is a zobrist hash over the stones, the ko point and the side to move.
func (p *Position) Hash() uint64 { return p.hash }

func (p *Position) Stone(c Coord) Color { return p.stones[c] }

// Stones returns a copy of the board contents.
func (p *Position) Stones() []Color {
	out := make([]Color, N*N)
	copy(out, p.stones[:])
	return out
}

// IsGameOver reports whether the game ended with two consecutive passes.
func (p *Position) IsGameOver() bool {
	return p.lastMove == Pass && p.prevMove == Pass
}

func (p *Position) AtMoveLimit() bool {
	return p.n >= MaxSearchDepth
}

func neighbors(c Coord, buf *[4]Coord) []Coord {
	n := 0
	r, col := c.Row(), c.Col()
	if r > 0 {
		buf[n] = c - N
		n++
	}
	if r < N-1 {
		buf[n] = c + N
		n++
	}
	if col > 0 {
		buf[n] = c - 1
		n++
	}
	if col < N-1 {
		buf[n] = c + 1
		n++
	}
	return buf[:n]
}

// group flood-fills the chain containing c and reports its points and the
// number of distinct liberties.
func (p *Position) group(c Coord) (points []Coord, liberties int) {
	color := p.stones[c]
	var seen [N * N]bool
	var libSeen [N * N]bool
	stack := []Coord{c}
	seen[c] = true
	var buf [4]Coord
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		points = append(points, cur)
		for _, nb := range neighbors(cur, &buf) {
			switch p.stones[nb] {
			case Empty:
				if !libSeen[nb] {
					libSeen[nb] = true
					liberties++
				}
			case color:
				if !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
	return points, liberties
}

// Legal reports whether the side to move may play c. Pass is always legal.
// A board move must be an empty point, must not retake the ko, and must not
// be suicide.
func (p *Position) Legal(c Coord) bool {
	if c == Pass {
		return true
	}
	if !c.OnBoard() || p.stones[c] != Empty || c == p.ko {
		return false
	}
	var buf [4]Coord
	opp := p.toPlay.Other()
	for _, nb := range neighbors(c, &buf) {
		switch p.stones[nb] {
		case Empty:
			return true
		case p.toPlay:
			if _, libs := p.group(nb); libs >= 2 {
				return true
			}
		case opp:
			if _, libs := p.group(nb); libs == 1 {
				return true // captures
			}
		}
	}
	return false
}

// Play returns the position after the side to move plays c. The move must be
// legal; playing an illegal move is a broken calling contract and panics.
func (p *Position) Play(c Coord) *Position {
	if !p.Legal(c) {
		panic(fmt.Sprintf("game: illegal move %v played on\n%v", c, p))
	}

	next := *p
	next.n = p.n + 1
	next.prevMove = p.lastMove
	next.lastMove = c
	next.hash ^= toPlayKey
	next.hash ^= koKey(next.ko)
	next.ko = Invalid
	next.toPlay = p.toPlay.Other()

	if c == Pass {
		next.hash ^= koKey(Invalid)
		return &next
	}

	next.stones[c] = p.toPlay
	next.hash ^= stoneKey(p.toPlay, c)

	// Remove opponent chains left without liberties.
	var buf [4]Coord
	captured := 0
	var lastCaptured Coord
	opp := p.toPlay.Other()
	for _, nb := range neighbors(c, &buf) {
		if next.stones[nb] != opp {
			continue
		}
		points, libs := next.group(nb)
		if libs > 0 {
			continue
		}
		for _, pt := range points {
			next.stones[pt] = Empty
			next.hash ^= stoneKey(opp, pt)
			captured++
			lastCaptured = pt
		}
	}

	// Single-stone capture by a lone stone sets a simple ko.
	if captured == 1 {
		if points, libs := next.group(c); len(points) == 1 && libs == 1 {
			next.ko = lastCaptured
		}
	}
	next.hash ^= koKey(next.ko)
	return &next
}

// Score returns the Tromp-Taylor area score from black's perspective:
// positive means black is ahead after komi.
func (p *Position) Score(komi float32) float32 {
	var seen [N * N]bool
	var buf [4]Coord

	score := -komi
	for i := range p.stones {
		c := Coord(i)
		switch p.stones[i] {
		case Black:
			score++
		case White:
			score--
		case Empty:
			if seen[i] {
				continue
			}
			// Flood-fill the empty region and note which colors border it.
			region := []Coord{c}
			seen[i] = true
			touchesBlack, touchesWhite := false, false
			stack := []Coord{c}
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, nb := range neighbors(cur, &buf) {
					switch p.stones[nb] {
					case Black:
						touchesBlack = true
					case White:
						touchesWhite = true
					case Empty:
						if !seen[nb] {
							seen[nb] = true
							region = append(region, nb)
							stack = append(stack, nb)
						}
					}
				}
			}
			switch {
			case touchesBlack && !touchesWhite:
				score += float32(len(region))
			case touchesWhite && !touchesBlack:
				score -= float32(len(region))
			}
		}
	}
	return score
}

func (p *Position) String() string {
	var b strings.Builder
	for r := 0; r < N; r++ {
		fmt.Fprintf(&b, "%2d ", N-r)
		for c := 0; c < N; c++ {
			b.WriteString(p.stones[r*N+c].String())
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	b.WriteString("   ")
	for c := 0; c < N; c++ {
		b.WriteByte(columnLetters[c])
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "\nto play: %v move: %d", p.toPlay, p.n)
	return b.String()
}
