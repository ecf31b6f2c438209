package nn

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/sente-dev/sente/pkg/game"
)

// Key identifies a canonical, already-evaluated position independent of the
// path that reached it: the position's zobrist hash mixed with the move that
// produced it.
type Key uint64

// NewKey derives the cache key for a position reached by playing move.
// move may be Invalid for the initial position.
func NewKey(move game.Coord, pos *game.Position) Key {
	return Key(pos.Hash() ^ (uint64(int64(move)+2) * 0x9e3779b97f4a7c15))
}

// Cache is a concurrent inference cache shared between searches, and
// potentially between games evaluated by the same network. Lookups and
// insertions are safe without external locking; insertion is best-effort
// (the admission policy may drop an entry), which is fine because a miss
// simply costs one network evaluation.
type Cache struct {
	c *ristretto.Cache[uint64, Output]
}

// NewCache creates a cache holding roughly maxEntries evaluations.
func NewCache(maxEntries int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, Output]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (c *Cache) TryGet(k Key) (Output, bool) {
	return c.c.Get(uint64(k))
}

// Add inserts an evaluation. Re-inserting an equal key is harmless; on a
// collision the last write wins.
func (c *Cache) Add(k Key, out Output) {
	c.c.Set(uint64(k), out, 1)
}

// Wait blocks until buffered insertions have been applied. Mostly useful in
// tests; searches never need to wait.
func (c *Cache) Wait() {
	c.c.Wait()
}

func (c *Cache) Close() {
	c.c.Close()
}
