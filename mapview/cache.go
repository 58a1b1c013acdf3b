package mapview

import (
	"cmp"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/eak1mov/go-tilekit/tile"
)

const (
	DefaultCacheCapacity = 256
	// DefaultMemoryBudget is the default heap budget in bytes.
	DefaultMemoryBudget = 512 << 20
)

// Cache holds the tiles of a data source keyed by tile.Key. Invisible tiles are
// evicted oldest first when the cache grows over its capacity or memory budget;
// visible tiles are never evicted.
//
// Like Tile, Cache is owned by the frame thread.
type Cache struct {
	logger       *slog.Logger
	capacity     int
	memoryBudget int64
	tiles        map[tile.Key]*Tile

	hits      uint64
	misses    uint64
	evictions uint64
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Len          int
	MemoryUsage  int64
	Capacity     int
	MemoryBudget int64
	Hits         uint64
	Misses       uint64
	Evictions    uint64
}

func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cacheConfig struct {
	Capacity     int
	MemoryBudget int64
	Logger       *slog.Logger
}

type CacheOption func(*cacheConfig)

// WithCapacity sets the maximum number of tiles kept after eviction.
func WithCapacity(n int) CacheOption {
	return func(c *cacheConfig) { c.Capacity = n }
}

// WithMemoryBudget sets the maximum total MemoryUsage of tiles kept after eviction.
func WithMemoryBudget(bytes int64) CacheOption {
	return func(c *cacheConfig) { c.MemoryBudget = bytes }
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *cacheConfig) { c.Logger = logger }
}

func NewCache(opts ...CacheOption) *Cache {
	config := cacheConfig{
		Capacity:     DefaultCacheCapacity,
		MemoryBudget: DefaultMemoryBudget,
		Logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Cache{
		logger:       config.Logger,
		capacity:     config.Capacity,
		memoryBudget: config.MemoryBudget,
		tiles:        make(map[tile.Key]*Tile),
	}
}

// Get returns the tile stored under key.
func (c *Cache) Get(key tile.Key) (*Tile, bool) {
	t, ok := c.tiles[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return t, ok
}

// Set stores t under its key. A different tile stored under the same key is disposed.
func (c *Cache) Set(t *Tile) {
	key := t.Key()
	if old, ok := c.tiles[key]; ok && old != t {
		old.Dispose()
	}
	c.tiles[key] = t
}

// Delete removes and disposes the tile stored under key.
func (c *Cache) Delete(key tile.Key) bool {
	t, ok := c.tiles[key]
	if !ok {
		return false
	}
	delete(c.tiles, key)
	t.Dispose()
	return true
}

func (c *Cache) Len() int { return len(c.tiles) }

// MemoryUsage returns the sum of MemoryUsage of all tiles.
func (c *Cache) MemoryUsage() int64 {
	var total int64
	for _, t := range c.tiles {
		total += t.MemoryUsage()
	}
	return total
}

// Tiles iterates over cached tiles ordered by key.
func (c *Cache) Tiles() iter.Seq[*Tile] {
	return func(yield func(*Tile) bool) {
		keys := slices.SortedFunc(maps.Keys(c.tiles), func(a, b tile.Key) int {
			return cmp.Compare(a.Code(), b.Code())
		})
		for _, key := range keys {
			if t, ok := c.tiles[key]; ok && !yield(t) {
				return
			}
		}
	}
}

// Evict disposes invisible tiles, least recently requested first, until the cache
// fits its capacity and memory budget. With force it evicts all invisible tiles.
// Tiles disposed elsewhere are always dropped. It returns the number of evicted tiles.
func (c *Cache) Evict(force bool) int {
	var candidates []*Tile
	evicted := 0
	for key, t := range c.tiles {
		switch {
		case t.Disposed():
			delete(c.tiles, key)
			evicted++
		case !t.IsVisible():
			candidates = append(candidates, t)
		}
	}
	slices.SortFunc(candidates, func(a, b *Tile) int {
		return cmp.Or(
			cmp.Compare(a.FrameNumLastRequested, b.FrameNumLastRequested),
			cmp.Compare(a.UniqueKey(), b.UniqueKey()),
		)
	})

	usage := c.MemoryUsage()
	for _, t := range candidates {
		if !force && len(c.tiles) <= c.capacity && usage <= c.memoryBudget {
			break
		}
		usage -= t.MemoryUsage()
		delete(c.tiles, t.Key())
		t.Dispose()
		evicted++
		c.logger.Debug("tilekit: tile evicted", "tile", t.Key(), "lastRequested", t.FrameNumLastRequested)
	}
	c.evictions += uint64(evicted)
	return evicted
}

// Clear disposes all tiles.
func (c *Cache) Clear() {
	for _, t := range c.tiles {
		t.Dispose()
	}
	clear(c.tiles)
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Len:          len(c.tiles),
		MemoryUsage:  c.MemoryUsage(),
		Capacity:     c.capacity,
		MemoryBudget: c.memoryBudget,
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
	}
}
