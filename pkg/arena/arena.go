// Package arena plays series of evaluation games between two networks,
// sharing one inference cache across all workers. It is how a freshly
// trained model is measured against the current best.
package arena

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sente-dev/sente/pkg/game"
	"github.com/sente-dev/sente/pkg/mcts"
	"github.com/sente-dev/sente/pkg/nn"
)

type MatchResult int

const (
	Player1Win MatchResult = 1
	Player2Win MatchResult = -1
	Draw       MatchResult = 0
)

type Stats struct {
	p1Wins uint32
	p2Wins uint32
	draws  uint32
}

func (s *Stats) P1Wins() int { return int(atomic.LoadUint32(&s.p1Wins)) }
func (s *Stats) P2Wins() int { return int(atomic.LoadUint32(&s.p2Wins)) }
func (s *Stats) Draws() int  { return int(atomic.LoadUint32(&s.draws)) }

func (s *Stats) Total() int {
	return s.P1Wins() + s.P2Wins() + s.Draws()
}

type Config struct {
	Games   int
	Workers int
	Rules   game.Rules
	// Search options for each side. Seeds of 0 are replaced per worker so
	// parallel games do not repeat each other.
	Options1 mcts.Options
	Options2 mcts.Options
}

func DefaultConfig() Config {
	opts := mcts.DefaultOptions()
	opts.SoftPick = false
	return Config{
		Games:    16,
		Workers:  runtime.NumCPU(),
		Rules:    game.DefaultRules(),
		Options1: opts,
		Options2: opts,
	}
}

// Arena pits net1 against net2. Colors are swapped every other game so
// first-move advantage cancels out.
type Arena struct {
	Stats
	net1, net2 nn.DualNet
	cache      *nn.Cache
	cfg        Config
}

func New(net1, net2 nn.DualNet, cache *nn.Cache, cfg Config) *Arena {
	if cfg.Games <= 0 {
		cfg.Games = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Arena{net1: net1, net2: net2, cache: cache, cfg: cfg}
}

// Run plays all configured games, distributing them over the workers, and
// blocks until every game finished or ctx is canceled.
func (a *Arena) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// Distribute the work equally between the workers.
	games := a.cfg.Games / a.cfg.Workers
	rest := a.cfg.Games % a.cfg.Workers
	for id := 0; id < a.cfg.Workers; id++ {
		id := id
		n := games
		if id < rest {
			n++
		}
		if n == 0 {
			continue
		}
		g.Go(func() error {
			return a.worker(ctx, id, n)
		})
	}
	return g.Wait()
}

func (a *Arena) worker(ctx context.Context, id, nGames int) error {
	for i := 0; i < nGames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		swapped := (id+i)%2 == 1
		result, moves, err := a.playGame(id, i, swapped)
		if err != nil {
			return err
		}
		if swapped {
			result = -result
		}

		switch result {
		case Player1Win:
			atomic.AddUint32(&a.p1Wins, 1)
		case Player2Win:
			atomic.AddUint32(&a.p2Wins, 1)
		default:
			atomic.AddUint32(&a.draws, 1)
		}
		slog.Info("arena game finished",
			"worker", id, "game", i, "moves", moves,
			"p1", a.P1Wins(), "p2", a.P2Wins(), "draws", a.Draws())
	}
	return nil
}

// playGame plays one game with net1 as black unless swapped, and returns
// the result from black's point of view together with the move count.
func (a *Arena) playGame(workerID, gameIdx int, swapped bool) (MatchResult, int, error) {
	blackNet, whiteNet := a.net1, a.net2
	blackOpts, whiteOpts := a.cfg.Options1, a.cfg.Options2
	if swapped {
		blackNet, whiteNet = whiteNet, blackNet
		blackOpts, whiteOpts = whiteOpts, blackOpts
	}
	if blackOpts.RandomSeed == 0 {
		blackOpts.RandomSeed = mcts.SeedGeneratorFn() + int64(workerID*1000+gameIdx)
	}
	if whiteOpts.RandomSeed == 0 {
		whiteOpts.RandomSeed = mcts.SeedGeneratorFn() + int64(workerID*1000+gameIdx) + 1
	}

	black := mcts.NewPlayer(blackNet, a.cache, game.NewGame(a.cfg.Rules), blackOpts)
	white := mcts.NewPlayer(whiteNet, a.cache, game.NewGame(a.cfg.Rules), whiteOpts)

	moves := 0
	for !black.Root().Terminal() {
		current, opts := black, blackOpts
		if black.Root().Position.ToPlay() == game.White {
			current, opts = white, whiteOpts
		}

		c := current.SuggestMove(opts.NumReadouts, opts.InjectNoise)
		if c == game.Resign {
			if current == black {
				return Player2Win, moves, nil
			}
			return Player1Win, moves, nil
		}
		if err := black.PlayMove(c); err != nil {
			return Draw, moves, fmt.Errorf("arena: black player rejected %v: %w", c, err)
		}
		if err := white.PlayMove(c); err != nil {
			return Draw, moves, fmt.Errorf("arena: white player rejected %v: %w", c, err)
		}
		moves++
	}

	score := black.Root().Position.Score(a.cfg.Rules.Komi)
	switch {
	case score > 0:
		return Player1Win, moves, nil
	case score < 0:
		return Player2Win, moves, nil
	}
	return Draw, moves, nil
}
