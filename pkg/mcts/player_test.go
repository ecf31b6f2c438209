package mcts

import (
	"fmt"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/sente-dev/sente/pkg/game"
	"github.com/sente-dev/sente/pkg/nn"
)

func TestMain(m *testing.M) {
	SetSeedGeneratorFn(func() int64 {
		return 42
	})
	fmt.Printf("Using seed %d\n", SeedGeneratorFn())

	os.Exit(m.Run())
}

// A dummy dual net for testing: uniform policy, zero value, counts the
// evaluations it serves. The model name can be swapped mid-game to test
// provenance tracking.
type dummyNet struct {
	mu      sync.Mutex
	model   string
	batches int
	evals   int
}

func newDummyNet(model string) *dummyNet {
	return &dummyNet{model: model}
}

func (d *dummyNet) SetModel(model string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.model = model
}

func (d *dummyNet) RunMany(features [][]float32) ([]nn.Output, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches++
	d.evals += len(features)
	outputs := make([]nn.Output, len(features))
	for i := range outputs {
		for j := range outputs[i].Policy {
			outputs[i].Policy[j] = 1.0 / float32(game.NumMoves)
		}
	}
	return outputs, d.model
}

func (d *dummyNet) Evals() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.evals
}

func (d *dummyNet) Close() error { return nil }

func testOptions() Options {
	opts := DefaultOptions()
	opts.SoftPick = false
	opts.RandomSymmetry = false
	opts.NumReadouts = 32
	opts.RandomSeed = 1
	return opts
}

func newTestPlayer(net nn.DualNet, cache *nn.Cache, opts Options) *Player {
	return NewPlayer(net, cache, game.NewGame(game.DefaultRules()), opts)
}

// Walk the whole tree and collect every node with a non-zero virtual loss
// count.
func collectVirtualLosses(node *Node, out *[]*Node) {
	if node.virtualLosses != 0 {
		*out = append(*out, node)
	}
	for _, child := range node.children {
		collectVirtualLosses(child, out)
	}
}

func TestSuggestMoveReadouts(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())
	c := player.SuggestMove(100, false)

	if n := player.Root().N(); n < 100 {
		t.Fatalf("root visit count %v after 100 readouts", n)
	}
	if want := player.Root().MostVisitedMove(); c != want {
		t.Fatalf("suggested %v, most visited is %v", c, want)
	}
	if player.Root().ChildN(c) == 0 {
		t.Fatalf("suggested move %v has zero visits", c)
	}
}

func TestVirtualLossBalance(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())

	// Expand the root first so a full batch can spread out.
	player.leaves = player.SelectLeaves(player.Root(), 1, player.leaves[:0])
	player.ProcessLeaves(player.leaves, false)

	leaves := player.SelectLeaves(player.Root(), 8, nil)
	if len(leaves) == 0 {
		t.Fatal("no leaves selected")
	}
	for _, leaf := range leaves {
		if leaf.VirtualLosses() <= 0 {
			t.Fatalf("selected leaf %v has no virtual loss", leaf.Move)
		}
	}

	player.ProcessLeaves(leaves, false)

	var dirty []*Node
	collectVirtualLosses(player.GameRoot(), &dirty)
	if len(dirty) != 0 {
		t.Fatalf("%d nodes still carry virtual losses after processing", len(dirty))
	}
}

func TestProcessLeavesWithoutVirtualLossPanics(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for leaf without virtual loss")
		}
	}()
	player.ProcessLeaves([]*Node{player.Root()}, false)
}

func TestCacheHitResolvesImmediately(t *testing.T) {
	cache, err := nn.NewCache(1024)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	player := newTestPlayer(newDummyNet("m0"), cache, testOptions())
	player.SuggestMove(8, false)

	// Prime the cache with the leaf the next selection will reach.
	leaf := player.Root().SelectLeaf()
	var out nn.Output
	for i := range out.Policy {
		out.Policy[i] = 1.0 / float32(game.NumMoves)
	}
	cache.Add(nn.NewKey(leaf.Move, leaf.Position), out)
	cache.Wait()

	before := player.Root().N()
	leaves := player.SelectLeaves(player.Root(), 1, nil)
	if len(leaves) != 1 {
		t.Fatalf("selected %d leaves, want 1", len(leaves))
	}
	if leaves[0] == leaf {
		t.Fatal("cache hit was not resolved during selection")
	}
	if n := player.Root().N(); n != before+1 {
		t.Fatalf("root N = %v after cache hit, want %v", n, before+1)
	}

	player.ProcessLeaves(leaves, false)
}

func TestPlayMoveIllegalLeavesStateUnchanged(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())
	player.SuggestMove(8, false)

	c := game.CoordFromRowCol(4, 4)
	if err := player.PlayMove(c); err != nil {
		t.Fatal(err)
	}

	root := player.Root()
	ledgerLen := player.Game().NumMoves()

	// The same point is now occupied.
	if err := player.PlayMove(c); err == nil {
		t.Fatal("expected error for illegal move")
	}
	if player.Root() != root {
		t.Fatal("root changed after rejected move")
	}
	if player.Game().NumMoves() != ledgerLen {
		t.Fatalf("ledger length changed: %d -> %d", ledgerLen, player.Game().NumMoves())
	}
}

func TestUndoMove(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())

	if err := player.UndoMove(); err == nil {
		t.Fatal("undo at the game root should fail")
	}

	player.SuggestMove(8, false)
	before := player.Root()
	if err := player.PlayMove(game.CoordFromRowCol(2, 2)); err != nil {
		t.Fatal(err)
	}
	ledgerLen := player.Game().NumMoves()

	if err := player.UndoMove(); err != nil {
		t.Fatal(err)
	}
	if player.Root() != before {
		t.Fatal("undo did not restore the previous root")
	}
	if player.Game().NumMoves() != ledgerLen-1 {
		t.Fatalf("ledger length %d after undo, want %d", player.Game().NumMoves(), ledgerLen-1)
	}
}

func TestUndoMoveWithoutTreeReuseDiscardsStatistics(t *testing.T) {
	opts := testOptions()
	opts.TreeReuse = false
	player := newTestPlayer(newDummyNet("m0"), nil, opts)

	player.SuggestMove(8, false)
	if err := player.PlayMove(game.CoordFromRowCol(2, 2)); err != nil {
		t.Fatal(err)
	}
	player.SuggestMove(8, false)

	if err := player.UndoMove(); err != nil {
		t.Fatal(err)
	}
	if player.Root().Expanded() {
		t.Fatal("undone root kept its expansion with tree reuse disabled")
	}
}

func TestSearchDistributionNormalized(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())
	player.SuggestMove(32, false)
	if err := player.PlayMove(player.Root().MostVisitedMove()); err != nil {
		t.Fatal(err)
	}

	move := player.Game().GetMove(0)
	var sum float64
	for _, v := range move.SearchPi {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Fatalf("search distribution sums to %v, want 1", sum)
	}
}

func TestModelUsageRecords(t *testing.T) {
	net := newDummyNet("m0")
	player := newTestPlayer(net, nil, testOptions())

	player.SuggestMove(16, false)
	player.SuggestMove(16, false)
	if records := player.ModelUsage(); len(records) != 1 {
		t.Fatalf("consecutive batches of one model produced %d records", len(records))
	}

	net.SetModel("m1")
	player.SuggestMove(16, false)
	records := player.ModelUsage()
	if len(records) != 2 {
		t.Fatalf("model switch produced %d records, want 2", len(records))
	}
	if records[0].Model != "m0" || records[1].Model != "m1" {
		t.Fatalf("unexpected records %v", records)
	}
	if s := player.ModelsUsed(); s != "m0(0,0), m1(0,0)" {
		t.Fatalf("ModelsUsed() = %q", s)
	}

	if err := player.PlayMove(player.Root().MostVisitedMove()); err != nil {
		t.Fatal(err)
	}
	move := player.Game().GetMove(0)
	if len(move.Models) != 2 {
		t.Fatalf("committed move credits %d models, want 2", len(move.Models))
	}
}

func TestShouldResignDisabled(t *testing.T) {
	rules := game.DefaultRules()
	rules.ResignEnabled = false
	player := NewPlayer(newDummyNet("m0"), nil, game.NewGame(rules), testOptions())

	player.SuggestMove(8, false)
	if player.ShouldResign() {
		t.Fatal("resignation suggested with resignation disabled")
	}
}

func TestPlayMoveResign(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())
	root := player.Root()
	if err := player.PlayMove(game.Resign); err != nil {
		t.Fatal(err)
	}
	if !player.Game().Over() {
		t.Fatal("game not over after resignation")
	}
	if player.Game().Result() != "W+R" {
		t.Fatalf("result %q after black resigns", player.Game().Result())
	}
	if player.Root() != root {
		t.Fatal("resignation mutated the tree")
	}
}

func TestSearchObserverCalledOncePerRound(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())

	calls := 0
	player.SetSearchObserver(func(leaves []*Node) {
		calls++
		for _, leaf := range leaves {
			if leaf.VirtualLosses() != 0 {
				t.Fatal("observer saw a leaf with pending virtual loss")
			}
		}
	})
	player.leaves = player.SelectLeaves(player.Root(), 1, player.leaves[:0])
	player.ProcessLeaves(player.leaves, false)
	player.TreeSearch()

	if calls != 2 {
		t.Fatalf("observer called %d times, want 2", calls)
	}
}

func TestSelectLeavesResolvesTerminalByScoreSign(t *testing.T) {
	player := newTestPlayer(newDummyNet("m0"), nil, testOptions())

	// One pass already played: the root's pass child ends the game, and on an
	// empty board with komi 7.5 white is ahead.
	player.InitializeGame(game.NewPosition().Play(game.Pass))
	player.leaves = player.SelectLeaves(player.Root(), 1, player.leaves[:0])
	player.ProcessLeaves(player.leaves, false)

	// Steer every selection into the terminal pass child.
	root := player.Root()
	for i := range root.childPrior {
		root.childPrior[i] = 0
	}
	root.childPrior[game.Pass] = 1

	nBefore, wBefore := root.N(), root.W()
	leaves := player.SelectLeaves(root, 2, nil)

	// Terminal leaves are resolved in place, never batched; each resolution
	// consumes one miss, so 2x the target count were resolved in total.
	if len(leaves) != 0 {
		t.Fatalf("terminal leaves ended up in the batch: %d", len(leaves))
	}
	if n := root.N(); n != nBefore+4 {
		t.Fatalf("root N = %v, want %v", n, nBefore+4)
	}
	// The outcome is the sign of the final score from black's perspective,
	// not re-expressed for the side to move at the leaf: white leads, so each
	// resolution contributes exactly -1.
	if w := root.W(); w != wBefore-4 {
		t.Fatalf("root W = %v, want %v", w, wBefore-4)
	}
	if n := root.ChildN(game.Pass); n != 4 {
		t.Fatalf("pass child N = %v, want 4", n)
	}

	var dirty []*Node
	collectVirtualLosses(player.GameRoot(), &dirty)
	if len(dirty) != 0 {
		t.Fatalf("%d nodes carry virtual losses after terminal resolutions", len(dirty))
	}
}

func TestSuggestSelfplayMoveFastplay(t *testing.T) {
	opts := testOptions()
	opts.InjectNoise = true
	opts.NumReadouts = 64
	opts.FastplayFrequency = 1
	opts.FastplayReadouts = 16
	player := newTestPlayer(newDummyNet("m0"), nil, opts)

	c, fast := player.SuggestSelfplayMove()
	if !fast {
		t.Fatal("fastplay frequency 1 did not take the fast path")
	}
	if c == game.Invalid {
		t.Fatalf("fast search suggested %v", c)
	}
	if n := player.Root().N(); n < 16 || n >= 64 {
		t.Fatalf("root N = %v, want a fast search of roughly 16 readouts", n)
	}
	// The fast path searches without noise, so the root prior is untouched.
	root := player.Root()
	for i := range root.childPrior {
		if root.childPrior[i] != root.originalPrior[i] {
			t.Fatalf("noise injected at %d during a fast search", i)
		}
	}

	opts.FastplayFrequency = 0
	player = newTestPlayer(newDummyNet("m0"), nil, opts)
	if _, fast := player.SuggestSelfplayMove(); fast {
		t.Fatal("fastplay frequency 0 took the fast path")
	}
}

func TestSoftPickBeforeCutoff(t *testing.T) {
	opts := testOptions()
	opts.SoftPick = true
	player := newTestPlayer(newDummyNet("m0"), nil, opts)

	player.SuggestMove(64, false)
	c := player.PickMove()
	if !c.OnBoard() {
		t.Fatalf("soft pick chose %v before the cutoff", c)
	}
	if player.Root().ChildN(c) == 0 {
		t.Fatalf("soft pick chose unvisited move %v", c)
	}
}
