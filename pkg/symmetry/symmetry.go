// Package symmetry implements the dihedral group of the square board: the
// eight rotations and reflections that preserve game semantics. Inputs to
// the network are transformed by a randomly chosen element and the resulting
// policy is mapped back through the inverse.
package symmetry

import "fmt"

type Symmetry int

const (
	Identity Symmetry = iota
	Rot90
	Rot180
	Rot270
	Flip
	FlipRot90
	FlipRot180
	FlipRot270

	NumSymmetries = 8
)

var names = [NumSymmetries]string{
	"identity", "rot90", "rot180", "rot270",
	"flip", "flip-rot90", "flip-rot180", "flip-rot270",
}

func (s Symmetry) String() string {
	if s < 0 || s >= NumSymmetries {
		return fmt.Sprintf("symmetry(%d)", int(s))
	}
	return names[s]
}

var inverses = [NumSymmetries]Symmetry{
	Identity, Rot270, Rot180, Rot90,
	Flip, FlipRot90, FlipRot180, FlipRot270,
}

// Inverse returns the element that undoes s.
func Inverse(s Symmetry) Symmetry {
	return inverses[s]
}

// transform maps a source point (r, c) to its destination under s on an
// n x n board.
func transform(s Symmetry, n, r, c int) (int, int) {
	switch s {
	case Rot90:
		return c, n - 1 - r
	case Rot180:
		return n - 1 - r, n - 1 - c
	case Rot270:
		return n - 1 - c, r
	case Flip:
		return r, n - 1 - c
	case FlipRot90:
		return n - 1 - c, n - 1 - r
	case FlipRot180:
		return n - 1 - r, c
	case FlipRot270:
		return c, r
	}
	return r, c
}

// Apply writes into dst the symmetry s applied to src, where src holds
// n*n points with `channels` consecutive values per point. src and dst must
// not alias.
func Apply(s Symmetry, n, channels int, src, dst []float32) {
	if len(src) < n*n*channels || len(dst) < n*n*channels {
		panic("symmetry: buffer too small")
	}
	if s == Identity {
		copy(dst[:n*n*channels], src[:n*n*channels])
		return
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			dr, dc := transform(s, n, r, c)
			copy(dst[(dr*n+dc)*channels:(dr*n+dc+1)*channels],
				src[(r*n+c)*channels:(r*n+c+1)*channels])
		}
	}
}

// ApplyPolicy transforms a policy vector of n*n board slots plus a trailing
// pass slot. The pass probability is invariant under every symmetry and is
// copied unchanged.
func ApplyPolicy(s Symmetry, n int, src, dst []float32) {
	if len(src) < n*n+1 || len(dst) < n*n+1 {
		panic("symmetry: policy buffer too small")
	}
	Apply(s, n, 1, src, dst)
	dst[n*n] = src[n*n]
}
