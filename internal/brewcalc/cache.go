package brewcalc

import (
	"sync"

	"github.com/mashnote/mashnote/internal/model"
)

// Cache memoizes metric computations by fingerprint. Because Compute is
// deterministic with no external dependency, cached entries are valid
// forever; there is no expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	metrics *model.RecipeMetrics
	err     error
}

// NewCache creates an empty metrics cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Compute returns the cached result for the input's fingerprint, computing
// and storing it on first sight. Both outcomes are cached, including the
// "insufficient input" nil result.
func (c *Cache) Compute(ings []model.FinalizedIngredient, p model.RecipeParams) (*model.RecipeMetrics, error) {
	key := Fingerprint(ings, p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.metrics, e.err
	}

	m, err := Compute(ings, p)
	c.entries[key] = cacheEntry{metrics: m, err: err}
	return m, err
}

// Len reports the number of cached computations.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
