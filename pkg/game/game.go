package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Rules are the scoring and resignation settings of a game.
type Rules struct {
	Komi            float32 `yaml:"komi" json:"komi"`
	ResignEnabled   bool    `yaml:"resign_enabled" json:"resign_enabled"`
	ResignThreshold float32 `yaml:"resign_threshold" json:"resign_threshold"`
}

func DefaultRules() Rules {
	return Rules{
		Komi:            7.5,
		ResignEnabled:   true,
		ResignThreshold: -0.95,
	}
}

func (r Rules) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(r)
	return builder.String()
}

// Move is one committed ledger entry.
type Move struct {
	Color    Color
	Coord    Coord
	Stones   []Color // board contents before the move was played
	Comment  string
	Q        float32
	SearchPi []float32 // per-move visit distribution produced by the search
	Models   []string  // models that served inference for this move
}

// Game is the append-only move ledger for a single game, plus its outcome.
type Game struct {
	id     string
	rules  Rules
	moves  []Move
	over   bool
	result string
}

func NewGame(rules Rules) *Game {
	g := &Game{rules: rules}
	g.NewGame()
	return g
}

// NewGame clears the ledger and assigns a fresh game ID.
func (g *Game) NewGame() {
	g.id = uuid.NewString()
	g.moves = g.moves[:0]
	g.over = false
	g.result = ""
}

func (g *Game) ID() string    { return g.id }
func (g *Game) Rules() Rules  { return g.rules }
func (g *Game) NumMoves() int { return len(g.moves) }
func (g *Game) Over() bool    { return g.over }

// Result is empty until the game is marked over.
func (g *Game) Result() string { return g.result }

func (g *Game) GetMove(i int) *Move {
	return &g.moves[i]
}

func (g *Game) AddMove(color Color, c Coord, stones []Color, comment string,
	q float32, searchPi []float32, models []string) {
	g.moves = append(g.moves, Move{
		Color:    color,
		Coord:    c,
		Stones:   stones,
		Comment:  comment,
		Q:        q,
		SearchPi: searchPi,
		Models:   models,
	})
}

// UndoMove pops the most recent ledger entry.
func (g *Game) UndoMove() error {
	if len(g.moves) == 0 {
		return errors.New("game: no moves to undo")
	}
	g.moves = g.moves[:len(g.moves)-1]
	g.over = false
	g.result = ""
	return nil
}

// MarkResigned ends the game with a win for the given side.
func (g *Game) MarkResigned(winner Color) {
	g.over = true
	g.result = fmt.Sprintf("%v+R", winner)
}

// MarkEndedByPasses ends the game after consecutive passes with the given
// score (positive favors black).
func (g *Game) MarkEndedByPasses(score float32) {
	g.over = true
	g.result = scoreResult(score)
}

// MarkEndedByMoveLimit ends the game at the move limit with the given score.
func (g *Game) MarkEndedByMoveLimit(score float32) {
	g.over = true
	g.result = scoreResult(score)
}

func scoreResult(score float32) string {
	switch {
	case score > 0:
		return fmt.Sprintf("B+%.1f", score)
	case score < 0:
		return fmt.Sprintf("W+%.1f", -score)
	}
	return "draw"
}
