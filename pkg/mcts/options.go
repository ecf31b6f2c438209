package mcts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options is the immutable per-player search configuration.
type Options struct {
	// Mix Dirichlet noise into the root prior on full searches.
	InjectNoise bool `yaml:"inject_noise" json:"inject_noise"`

	// Sample early moves from the visit distribution instead of always
	// playing the most visited move.
	SoftPick bool `yaml:"soft_pick" json:"soft_pick"`

	// Apply a random board symmetry to each network input.
	RandomSymmetry bool `yaml:"random_symmetry" json:"random_symmetry"`

	// Penalty subtracted from a fresh node's value when initializing its
	// children, pushing unvisited moves toward a losing first impression.
	ValueInitPenalty float32 `yaml:"value_init_penalty" json:"value_init_penalty"`

	// Exponent applied to visit counts when soft-picking; slightly above 1
	// encourages diversity in early play.
	PolicySoftmaxTemp float32 `yaml:"policy_softmax_temp" json:"policy_softmax_temp"`

	// Number of leaves gathered per search round. Virtual loss makes the
	// round behave like that many parallel searches.
	VirtualLosses int `yaml:"virtual_losses" json:"virtual_losses"`

	// Readouts per full search when no time budget is set.
	NumReadouts int `yaml:"num_readouts" json:"num_readouts"`

	// Wall-clock budget per move; 0 means search by readouts.
	SecondsPerMove float64 `yaml:"seconds_per_move" json:"seconds_per_move"`

	// Total per-game time budget; with SecondsPerMove > 0 the planner tapers
	// per-move time so the budget is never exceeded in expectation.
	TimeLimit float64 `yaml:"time_limit" json:"time_limit"`

	// Geometric decay of the per-move budget once the endgame begins.
	DecayFactor float64 `yaml:"decay_factor" json:"decay_factor"`

	// Fraction of self-play moves played with a fast, noiseless search.
	FastplayFrequency float32 `yaml:"fastplay_frequency" json:"fastplay_frequency"`

	// Readouts used for fast self-play moves.
	FastplayReadouts int `yaml:"fastplay_readouts" json:"fastplay_readouts"`

	// Seed for the player's random generator; 0 draws from SeedGeneratorFn.
	RandomSeed int64 `yaml:"random_seed" json:"random_seed"`

	// Keep the subtree of the played move between moves.
	TreeReuse bool `yaml:"tree_reuse" json:"tree_reuse"`

	// Drop the rest of the old root's children after a move. Disabling this
	// is a compatibility mode that trades memory for stable node pointers.
	PruneOrphanedNodes bool `yaml:"prune_orphaned_nodes" json:"prune_orphaned_nodes"`

	// Weight of the Dirichlet noise mixed into the root prior.
	NoiseMix float32 `yaml:"noise_mix" json:"noise_mix"`
}

func DefaultOptions() Options {
	return Options{
		InjectNoise:        false,
		SoftPick:           true,
		RandomSymmetry:     true,
		ValueInitPenalty:   2.0,
		PolicySoftmaxTemp:  1.05,
		VirtualLosses:      8,
		NumReadouts:        400,
		SecondsPerMove:     0,
		TimeLimit:          0,
		DecayFactor:        0.98,
		FastplayFrequency:  0,
		FastplayReadouts:   40,
		RandomSeed:         0,
		TreeReuse:          true,
		PruneOrphanedNodes: true,
		NoiseMix:           0.25,
	}
}

// LoadOptions reads a YAML options file, filling unset fields with defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("mcts: reading options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("mcts: parsing options %s: %w", path, err)
	}
	return opts, nil
}

func (o Options) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(o)
	return builder.String()
}
