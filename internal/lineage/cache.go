package lineage

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leapstack-labs/dbtrace/internal/columns"
)

// DefaultCacheSize bounds the parse cache when the config does not say
// otherwise.
const DefaultCacheSize = 512

// Cache memoizes column extraction per node. Keys include the graph
// generation and a fingerprint of the source text, so entries can never
// serve stale results across reloads; on reload the whole cache is
// replaced anyway.
type Cache struct {
	generation uint64
	entries    *lru.Cache[string, *columns.Result]
}

// NewCache creates a cache for one graph generation.
func NewCache(generation uint64, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *columns.Result](size)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &Cache{generation: generation, entries: entries}, nil
}

func (c *Cache) key(nodeID, sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return fmt.Sprintf("%d:%s:%x", c.generation, nodeID, sum)
}

// Get returns the cached extraction result for a node's source text.
func (c *Cache) Get(nodeID, sql string) (*columns.Result, bool) {
	return c.entries.Get(c.key(nodeID, sql))
}

// Put stores an extraction result.
func (c *Cache) Put(nodeID, sql string, res *columns.Result) {
	c.entries.Add(c.key(nodeID, sql), res)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
