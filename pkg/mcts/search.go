package mcts

import (
	"fmt"

	"github.com/sente-dev/sente/pkg/game"
	"github.com/sente-dev/sente/pkg/nn"
	"github.com/sente-dev/sente/pkg/symmetry"
)

// TreeSearch runs one search round: select a batch of leaves, then
// incorporate their evaluations. The root pointer must not change while a
// round is in flight.
func (p *Player) TreeSearch() {
	p.leaves = p.SelectLeaves(p.root, p.options.VirtualLosses, p.leaves[:0])
	p.ProcessLeaves(p.leaves, p.options.RandomSymmetry)
}

// SelectLeaves gathers up to targetCount non-terminal, cache-miss leaves.
// Terminal leaves and cache hits are resolved immediately; terminals and
// true misses consume a miss budget of 2x targetCount that bounds the work
// of a round even under a high cache hit rate. Every returned leaf carries
// exactly one freshly applied virtual loss.
func (p *Player) SelectLeaves(root *Node, targetCount int, leaves []*Node) []*Node {
	maxMisses := 2 * targetCount
	misses := 0
	for misses < maxMisses {
		leaf := root.SelectLeaf()

		if leaf.Terminal() {
			// Terminal outcome depends only on the sign of the final score.
			value := float32(-1)
			if leaf.Position.Score(p.game.Rules().Komi) > 0 {
				value = 1
			}
			leaf.IncorporateEndGameResult(value, root)
			misses++
			continue
		}

		if p.cache != nil {
			key := nn.NewKey(leaf.Move, leaf.Position)
			if out, ok := p.cache.TryGet(key); ok {
				leaf.IncorporateResults(p.options.ValueInitPenalty, out.Policy[:], out.Value, root)
				continue
			}
		}

		misses++
		leaf.AddVirtualLoss(root)
		leaves = append(leaves, leaf)
		if len(leaves) == targetCount {
			break
		}
		if leaf == root {
			// If the root is a leaf, no other leaf is selectable.
			break
		}
	}
	return leaves
}

// ProcessLeaves evaluates a batch of leaves with one network call and
// incorporates the results into the tree: encode each leaf under a chosen
// symmetry, run inference, undo the symmetry on each policy, back-propagate
// to the current root, update the cache and revert the virtual losses.
func (p *Player) ProcessLeaves(leaves []*Node, randomSymmetry bool) {
	if len(leaves) == 0 {
		return
	}

	p.symmetries = p.symmetries[:0]
	for range leaves {
		sym := symmetry.Identity
		if randomSymmetry {
			sym = symmetry.Symmetry(p.rnd.Intn(symmetry.NumSymmetries))
		}
		p.symmetries = append(p.symmetries, sym)
	}

	if p.raw == nil {
		p.raw = make([]float32, nn.FeatureLen)
	}
	for len(p.features) < len(leaves) {
		p.features = append(p.features, make([]float32, nn.FeatureLen))
	}
	for i, leaf := range leaves {
		if leaf.VirtualLosses() <= 0 {
			panic(fmt.Sprintf(
				"mcts: leaf %v has no virtual loss applied; add one before processing", leaf.Move))
		}
		nn.Features(leaf.MoveHistory(nn.MoveHistory), leaf.Position.ToPlay(), p.raw)
		symmetry.Apply(p.symmetries[i], game.N, nn.NumFeatures, p.raw, p.features[i])
	}

	outputs, model := p.network.RunMany(p.features[:len(leaves)])

	if model != "" {
		moveNum := p.root.Position.MoveNum()
		if len(p.modelUsage) == 0 || p.modelUsage[len(p.modelUsage)-1].Model != model {
			p.modelUsage = append(p.modelUsage, ModelUsageRecord{
				Model:     model,
				FirstMove: moveNum,
			})
		}
		last := &p.modelUsage[len(p.modelUsage)-1]
		last.LastMove = moveNum
		last.TotalCount += len(leaves)
	}

	var normalized nn.Output
	for i, leaf := range leaves {
		out := &outputs[i]

		// Undo the applied symmetry; the pass probability is invariant and
		// copied unchanged by ApplyPolicy.
		symmetry.ApplyPolicy(symmetry.Inverse(p.symmetries[i]), game.N,
			out.Policy[:], normalized.Policy[:])
		normalized.Value = out.Value

		leaf.IncorporateResults(p.options.ValueInitPenalty,
			normalized.Policy[:], normalized.Value, p.root)

		if p.cache != nil {
			p.cache.Add(nn.NewKey(leaf.Move, leaf.Position), normalized)
		}

		leaf.RevertVirtualLoss(p.root)
	}

	if p.observer != nil {
		p.observer(leaves)
	}
}
