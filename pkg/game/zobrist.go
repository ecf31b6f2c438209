package game

// Zobrist keys for incremental position hashing. The tables are generated
// from a fixed seed so hashes are stable across processes, which lets an
// inference cache be shared between runs of the same build.

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

var (
	// stoneKeys[color-1][point]
	stoneKeys [2][N * N]uint64
	// koKeys[point]; koKeys has one extra slot for "no ko" (indexed by Pass)
	koKeys    [N*N + 1]uint64
	toPlayKey uint64
)

func init() {
	rng := splitmix64{state: 0x6b61746167697573}
	for c := range stoneKeys {
		for i := range stoneKeys[c] {
			stoneKeys[c][i] = rng.next()
		}
	}
	for i := range koKeys {
		koKeys[i] = rng.next()
	}
	toPlayKey = rng.next()
}

func stoneKey(color Color, c Coord) uint64 {
	return stoneKeys[color-1][c]
}

func koKey(ko Coord) uint64 {
	if !ko.OnBoard() {
		return koKeys[N*N]
	}
	return koKeys[ko]
}
