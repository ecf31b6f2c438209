package mcts

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sente-dev/sente/pkg/game"
)

// Node is one position in the search tree. A parent exclusively owns its
// children; the Parent pointer exists for walking back up to the root and is
// never used to free anything.
//
// Statistics live in the parent's per-child arrays, so a node reads its own
// visit count through its parent. The root of the whole game keeps its
// totals in selfN/selfW.
type Node struct {
	Parent   *Node
	Move     game.Coord
	Position *game.Position

	children map[game.Coord]*Node
	expanded bool

	// Count of virtual losses currently applied to this node. Must return
	// to zero after every search round.
	virtualLosses int32

	childN        [game.NumMoves]float32
	childW        [game.NumMoves]float32
	childPrior    [game.NumMoves]float32
	originalPrior [game.NumMoves]float32

	selfN, selfW float32 // totals when Parent == nil
}

// NewRootNode creates a tree root over the given position.
func NewRootNode(pos *game.Position) *Node {
	return &Node{Move: game.Invalid, Position: pos}
}

func (n *Node) Expanded() bool { return n.expanded }

// Terminal reports whether no further search below this node is possible:
// the game ended by consecutive passes or hit the move limit.
func (n *Node) Terminal() bool {
	return n.Position.IsGameOver() || n.Position.AtMoveLimit()
}

func (n *Node) VirtualLosses() int32 { return n.virtualLosses }

// N is the visit count of this node.
func (n *Node) N() float32 {
	if n.Parent != nil {
		return n.Parent.childN[n.Move]
	}
	return n.selfN
}

// W is the accumulated value of this node.
func (n *Node) W() float32 {
	if n.Parent != nil {
		return n.Parent.childW[n.Move]
	}
	return n.selfW
}

// Q is the average value of this node from black's perspective.
func (n *Node) Q() float32 {
	return n.W() / (1 + n.N())
}

// QPerspective is Q from the point of view of the side to move.
func (n *Node) QPerspective() float32 {
	if n.Position.ToPlay() == game.Black {
		return n.Q()
	}
	return -n.Q()
}

func (n *Node) ChildN(c game.Coord) float32 { return n.childN[c] }

func (n *Node) childQ(i int) float32 {
	return n.childW[i] / (1 + n.childN[i])
}

func (n *Node) addN(delta float32) {
	if n.Parent != nil {
		n.Parent.childN[n.Move] += delta
	} else {
		n.selfN += delta
	}
}

func (n *Node) addW(delta float32) {
	if n.Parent != nil {
		n.Parent.childW[n.Move] += delta
	} else {
		n.selfW += delta
	}
}

// Child returns the child for a move, or nil if it was never created.
func (n *Node) Child(c game.Coord) *Node {
	return n.children[c]
}

// MaybeAddChild returns the child for move c, creating it if needed.
func (n *Node) MaybeAddChild(c game.Coord) *Node {
	child, ok := n.children[c]
	if !ok {
		child = &Node{
			Parent:   n,
			Move:     c,
			Position: n.Position.Play(c),
		}
		if n.children == nil {
			n.children = make(map[game.Coord]*Node)
		}
		n.children[c] = child
	}
	return child
}

// PruneChildren drops every child subtree except the one for c.
func (n *Node) PruneChildren(c game.Coord) {
	for move := range n.children {
		if move != c {
			delete(n.children, move)
		}
	}
}

func (n *Node) clearChildren() {
	n.children = nil
}

// SelectLeaf walks down the tree choosing the child with the best PUCT
// score until it reaches an unexpanded node, creating it on the way. May
// return the receiver itself if it is unexpanded or terminal.
func (n *Node) SelectLeaf() *Node {
	node := n
	for node.expanded {
		node = node.MaybeAddChild(node.bestChild())
	}
	return node
}

func (n *Node) bestChild() game.Coord {
	perspective := float32(1)
	if n.Position.ToPlay() == game.White {
		perspective = -1
	}
	explore := float32(PuctParam) * float32(math.Sqrt(math.Max(1, float64(n.N()-1))))

	best := game.Invalid
	bestScore := float32(math.Inf(-1))
	for i := 0; i < game.NumMoves; i++ {
		c := game.Coord(i)
		if !n.Position.Legal(c) {
			continue
		}
		score := n.childQ(i)*perspective + explore*n.childPrior[i]/(1+n.childN[i])
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// IncorporateResults expands the node with a network evaluation and
// back-propagates the value up to upTo. The policy is renormalized over
// legal moves; illegal moves get zero prior. If the node was already
// expanded by an earlier leaf of the same round, only the value is applied.
func (n *Node) IncorporateResults(valueInitPenalty float32, policy []float32, value float32, upTo *Node) {
	if n.Terminal() {
		panic("mcts: incorporating a network result into a terminal node")
	}
	if n.expanded {
		n.backupValue(value, upTo)
		return
	}
	n.expanded = true

	var scalar float32
	for i := 0; i < game.NumMoves; i++ {
		if n.Position.Legal(game.Coord(i)) {
			scalar += policy[i]
		}
	}
	if scalar > 1e-30 {
		scalar = 1 / scalar
	}

	// Initialize every child's value estimate to this node's evaluation,
	// shifted toward a loss for the side to play so unvisited moves are not
	// artificially attractive.
	var initValue float32
	if n.Position.ToPlay() == game.Black {
		initValue = float32(math.Max(-1, float64(value-valueInitPenalty)))
	} else {
		initValue = float32(math.Min(1, float64(value+valueInitPenalty)))
	}

	for i := 0; i < game.NumMoves; i++ {
		var prior float32
		if n.Position.Legal(game.Coord(i)) {
			prior = policy[i] * scalar
		}
		n.childPrior[i] = prior
		n.originalPrior[i] = prior
		n.childW[i] = initValue
	}
	n.backupValue(value, upTo)
}

// IncorporateEndGameResult back-propagates a terminal outcome.
func (n *Node) IncorporateEndGameResult(value float32, upTo *Node) {
	if !n.Terminal() {
		panic("mcts: incorporating an end-game result into a non-terminal node")
	}
	if n.expanded {
		panic("mcts: terminal node is expanded")
	}
	n.backupValue(value, upTo)
}

func (n *Node) backupValue(value float32, upTo *Node) {
	for node := n; ; node = node.Parent {
		node.addW(value)
		node.addN(1)
		if node == upTo || node.Parent == nil {
			return
		}
	}
}

// AddVirtualLoss nudges every node on the path to upTo toward a loss for
// the side that just moved, so subsequent selections within the same round
// spread across siblings. Must be balanced by exactly one RevertVirtualLoss.
func (n *Node) AddVirtualLoss(upTo *Node) {
	for node := n; ; node = node.Parent {
		node.virtualLosses++
		loss := float32(1)
		if node.Position.ToPlay() == game.White {
			loss = -1
		}
		node.addW(loss)
		if node == upTo || node.Parent == nil {
			return
		}
	}
}

// RevertVirtualLoss undoes one AddVirtualLoss along the same path.
func (n *Node) RevertVirtualLoss(upTo *Node) {
	for node := n; ; node = node.Parent {
		node.virtualLosses--
		loss := float32(1)
		if node.Position.ToPlay() == game.White {
			loss = -1
		}
		node.addW(-loss)
		if node == upTo || node.Parent == nil {
			return
		}
	}
}

// InjectNoise mixes normalized Dirichlet noise into the prior. Applied at
// the root only, once per decision.
func (n *Node) InjectNoise(noise []float32, mix float32) {
	if !n.expanded {
		panic("mcts: injecting noise into an unexpanded node")
	}
	var scalar float32
	for i := 0; i < game.NumMoves; i++ {
		if n.Position.Legal(game.Coord(i)) {
			scalar += noise[i]
		}
	}
	if scalar > 1e-30 {
		scalar = 1 / scalar
	}
	for i := 0; i < game.NumMoves; i++ {
		var v float32
		if n.Position.Legal(game.Coord(i)) {
			v = noise[i] * scalar
		}
		n.childPrior[i] = (1-mix)*n.childPrior[i] + mix*v
	}
}

// MostVisitedMove returns the legal move with the highest visit count, ties
// broken by coordinate order.
func (n *Node) MostVisitedMove() game.Coord {
	best := game.Pass
	bestN := float32(-1)
	for i := 0; i < game.NumMoves; i++ {
		c := game.Coord(i)
		if !n.Position.Legal(c) {
			continue
		}
		if n.childN[i] > bestN {
			bestN = n.childN[i]
			best = c
		}
	}
	return best
}

// MoveHistory returns the k most recent positions, current first, padding
// with the oldest position when the game is shorter than k moves.
func (n *Node) MoveHistory(k int) []*game.Position {
	history := make([]*game.Position, k)
	node := n
	for i := 0; i < k; i++ {
		history[i] = node.Position
		if node.Parent != nil {
			node = node.Parent
		}
	}
	return history
}

// Describe renders a human-readable summary of the node and its most
// visited children.
func (n *Node) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%0.4f Q, %.0f N\n", n.Q(), n.N())

	type entry struct {
		move game.Coord
		n    float32
	}
	entries := make([]entry, 0, len(n.children))
	for move := range n.children {
		entries = append(entries, entry{move, n.childN[move]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].move < entries[j].move
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}
	b.WriteString("move : N, Q, prior, original prior\n")
	for _, e := range entries {
		i := int(e.move)
		fmt.Fprintf(&b, "%-4s : %.0f, %0.4f, %0.4f, %0.4f\n",
			e.move, e.n, n.childQ(i), n.childPrior[i], n.originalPrior[i])
	}
	return b.String()
}
