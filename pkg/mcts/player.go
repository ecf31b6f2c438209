package mcts

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"github.com/sente-dev/sente/pkg/game"
	"github.com/sente-dev/sente/pkg/nn"
	"github.com/sente-dev/sente/pkg/symmetry"
)

// ModelUsageRecord tracks which model served inference for a stretch of
// moves. Consecutive batches from the same model extend the last record
// instead of appending a new one.
type ModelUsageRecord struct {
	Model      string
	FirstMove  int
	LastMove   int
	TotalCount int
}

// SearchObserver is called once per processed round with the round's leaf
// set, after all tree updates for that round are complete. At most one
// observer is supported.
type SearchObserver func(leaves []*Node)

// Player owns a search tree over one game and picks moves for it. It is
// single-threaded: one select-then-process round always completes before
// the next begins. The inference cache may be shared with other players.
type Player struct {
	network nn.DualNet
	cache   *nn.Cache
	game    *game.Game
	options Options
	rnd     *rand.Rand

	gameRoot *Node
	root     *Node

	// Move number at which move selection switches from sampled to
	// deterministic; -1 disables sampling entirely.
	temperatureCutoff int

	modelUsage []ModelUsageRecord
	observer   SearchObserver

	// Per-round scratch, reused across rounds.
	leaves     []*Node
	symmetries []symmetry.Symmetry
	features   [][]float32
	raw        []float32
}

// NewPlayer creates a player over the given collaborators. cache may be nil
// to search without an inference cache.
func NewPlayer(network nn.DualNet, cache *nn.Cache, g *game.Game, options Options) *Player {
	seed := options.RandomSeed
	if seed == 0 {
		seed = SeedGeneratorFn()
	}

	// Deterministic selection after 6 moves on 9x9, 30 on 19x19; rounded
	// down to an even number so both sides get equal sampled phases.
	temperatureCutoff := -1
	if options.SoftPick {
		temperatureCutoff = ((game.N * game.N / 12) / 2) * 2
	}

	p := &Player{
		network:           network,
		cache:             cache,
		game:              g,
		options:           options,
		rnd:               rand.New(rand.NewSource(seed)),
		temperatureCutoff: temperatureCutoff,
	}
	p.NewGame()
	return p
}

func (p *Player) Options() Options { return p.options }
func (p *Player) Root() *Node      { return p.root }
func (p *Player) GameRoot() *Node  { return p.gameRoot }
func (p *Player) Game() *game.Game { return p.game }

// SetSearchObserver registers the per-round observer; nil unregisters it.
func (p *Player) SetSearchObserver(cb SearchObserver) {
	p.observer = cb
}

// InitializeGame resets the tree to a fresh root over the given position
// and starts a new ledger game.
func (p *Player) InitializeGame(pos *game.Position) {
	p.gameRoot = NewRootNode(pos)
	p.root = p.gameRoot
	p.game.NewGame()
	p.modelUsage = p.modelUsage[:0]
}

// NewGame resets to an empty board.
func (p *Player) NewGame() {
	p.InitializeGame(game.NewPosition())
}

// UndoMove steps the root back to its parent and pops the ledger. It fails
// without mutating anything if the root is already the game root.
func (p *Player) UndoMove() error {
	if p.root == p.gameRoot {
		return fmt.Errorf("mcts: no move to undo")
	}
	p.root = p.root.Parent
	if err := p.game.UndoMove(); err != nil {
		return err
	}
	if !p.options.TreeReuse {
		// Replace the node so the undone exploration cannot be reused.
		fresh := &Node{
			Parent:   p.root.Parent,
			Move:     p.root.Move,
			Position: p.root.Position,
		}
		if fresh.Parent != nil {
			fresh.Parent.children[fresh.Move] = fresh
		} else {
			p.gameRoot = fresh
		}
		p.root = fresh
	}
	return nil
}

// PlayMove commits a move: ledger first, then the root advance. On an
// illegal move or a finished game it fails without mutating anything,
// logging enough context to debug the caller offline.
func (p *Player) PlayMove(c game.Coord) error {
	if p.root.Terminal() {
		slog.Error("can't play move, game is over", "move", c.String())
		return fmt.Errorf("mcts: can't play %v, game is over", c)
	}

	if c == game.Resign {
		p.game.MarkResigned(p.root.Position.ToPlay().Other())
		return nil
	}

	if !p.root.Position.Legal(c) {
		slog.Error("illegal move requested",
			"move", c.String(),
			"player_options", p.options.String(),
			"game_rules", p.game.Rules().String(),
		)
		for i := 0; i < p.game.NumMoves(); i++ {
			move := p.game.GetMove(i)
			slog.Error("move history", "n", i, "color", move.Color.String(), "move", move.Coord.String())
		}
		return fmt.Errorf("mcts: illegal move %v", c)
	}

	p.updateGame(c)

	if p.options.TreeReuse {
		p.root = p.root.MaybeAddChild(c)
		if p.options.PruneOrphanedNodes {
			// The siblings will never be revisited during normal play.
			p.root.Parent.PruneChildren(c)
		}
	} else {
		p.root.clearChildren()
		p.root = p.root.MaybeAddChild(c)
	}

	komi := p.game.Rules().Komi
	if p.root.Position.AtMoveLimit() {
		p.game.MarkEndedByMoveLimit(p.root.Position.Score(komi))
	} else if p.root.Position.IsGameOver() {
		p.game.MarkEndedByPasses(p.root.Position.Score(komi))
	}
	return nil
}

// updateGame appends the pending move to the ledger, together with the
// models that contributed to its search and the visit distribution.
func (p *Player) updateGame(c game.Coord) {
	// Models whose usage overlaps the current move, oldest first.
	var models []string
	for i := len(p.modelUsage) - 1; i >= 0; i-- {
		if p.modelUsage[i].LastMove < p.root.Position.MoveNum() {
			break
		}
		models = append(models, p.modelUsage[i].Model)
	}
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}

	comment := p.root.Describe()
	if len(models) > 0 {
		comment = "models:" + strings.Join(models, ",") + "\n" + comment
	}

	// Convert child visit counts to a probability distribution. Before the
	// temperature cutoff the counts are squashed with the same exponent the
	// soft pick uses. The root was just searched, so the visit total is
	// assumed non-zero.
	searchPi := make([]float32, game.NumMoves)
	var sum float32
	if p.root.Position.MoveNum() < p.temperatureCutoff {
		for i := range searchPi {
			searchPi[i] = float32(math.Pow(float64(p.root.childN[i]), float64(p.options.PolicySoftmaxTemp)))
			sum += searchPi[i]
		}
	} else {
		for i := range searchPi {
			searchPi[i] = p.root.childN[i]
			sum += searchPi[i]
		}
	}
	for i := range searchPi {
		searchPi[i] /= sum
	}

	p.game.AddMove(p.root.Position.ToPlay(), c, p.root.Position.Stones(),
		comment, p.root.Q(), searchPi, models)
}

// ModelsUsed renders the model usage ledger, e.g. "m1(0,24), m2(25,31)".
func (p *Player) ModelsUsed() string {
	parts := make([]string, 0, len(p.modelUsage))
	for _, rec := range p.modelUsage {
		parts = append(parts, fmt.Sprintf("%s(%d,%d)", rec.Model, rec.FirstMove, rec.LastMove))
	}
	return strings.Join(parts, ", ")
}

// ModelUsage returns a copy of the model usage records.
func (p *Player) ModelUsage() []ModelUsageRecord {
	out := make([]ModelUsageRecord, len(p.modelUsage))
	copy(out, p.modelUsage)
	return out
}

// ShouldResign reports whether the side to move should resign: resignation
// is enabled in the rules and the root value from the mover's perspective
// is below the threshold.
func (p *Player) ShouldResign() bool {
	rules := p.game.Rules()
	return rules.ResignEnabled && p.root.QPerspective() < rules.ResignThreshold
}

// SuggestMove searches until the wall-clock or readout budget is exhausted,
// then picks a move. It returns Resign when resignation is warranted.
func (p *Player) SuggestMove(newReadouts int, injectNoise bool) game.Coord {
	var deadline *timer
	if p.options.SecondsPerMove > 0 {
		secondsPerMove := p.options.SecondsPerMove
		if p.options.TimeLimit > 0 {
			secondsPerMove = TimeRecommendation(p.root.Position.MoveNum(),
				secondsPerMove, p.options.TimeLimit, p.options.DecayFactor)
		}
		deadline = newTimer(secondsPerMove)
	}

	// The root must be expanded before counting readouts against its visit
	// total; a fresh game or a PlayMove without a prior search leaves it
	// unexpanded.
	if !p.root.Expanded() {
		p.leaves = p.SelectLeaves(p.root, 1, p.leaves[:0])
		p.ProcessLeaves(p.leaves, p.options.RandomSymmetry)
	}

	if injectNoise {
		noise := make([]float32, game.NumMoves)
		dirichlet(p.rnd, DirichletAlpha, noise)
		p.root.InjectNoise(noise, p.options.NoiseMix)
	}

	if deadline != nil {
		for !deadline.expired() {
			p.TreeSearch()
		}
	} else {
		target := p.root.N() + float32(newReadouts)
		for p.root.N() < target {
			p.TreeSearch()
		}
	}

	if p.ShouldResign() {
		return game.Resign
	}
	return p.PickMove()
}

// SuggestSelfplayMove runs either a full search with noise or, with
// probability FastplayFrequency, a fast noiseless search. The second return
// reports whether the fast path was taken.
func (p *Player) SuggestSelfplayMove() (game.Coord, bool) {
	fast := p.options.FastplayFrequency > 0 &&
		p.rnd.Float32() < p.options.FastplayFrequency
	if fast {
		return p.SuggestMove(p.options.FastplayReadouts, false), true
	}
	return p.SuggestMove(p.options.NumReadouts, p.options.InjectNoise), false
}

// PickMove picks a move from the root's visit statistics: the most visited
// move after the temperature cutoff, otherwise a draw from the squashed
// visit distribution over board moves. Only the deterministic phase can
// choose pass.
func (p *Player) PickMove() game.Coord {
	if p.root.Position.MoveNum() >= p.temperatureCutoff {
		return p.root.MostVisitedMove()
	}

	cdf := make([]float64, game.N*game.N)
	cdf[0] = math.Pow(float64(p.root.childN[0]), float64(p.options.PolicySoftmaxTemp))
	for i := 1; i < len(cdf); i++ {
		cdf[i] = cdf[i-1] + math.Pow(float64(p.root.childN[i]), float64(p.options.PolicySoftmaxTemp))
	}

	total := cdf[len(cdf)-1]
	if total == 0 {
		// All reads went into pass; let the model have its way.
		return game.Pass
	}

	e := p.rnd.Float64() * total
	for i, v := range cdf {
		if v > e {
			return game.Coord(i)
		}
	}
	return game.Coord(len(cdf) - 1)
}
