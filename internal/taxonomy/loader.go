package taxonomy

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "memoria.io/portal/internal/pkg/errors"
)

// Parse decodes a YAML taxonomy document and builds a Taxonomy from it.
func Parse(data []byte) (*Taxonomy, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy document: %w", err)
	}
	return New(doc)
}

// LoadFile reads a taxonomy fixture file. Fixtures are how deployments
// without an upstream taxonomy feed seed their hierarchy.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy fixture %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy fixture %s: %w", path, err)
	}
	return t, nil
}

// Cache holds loaded taxonomies keyed by review period. Taxonomies are
// immutable, so the lock only guards the map itself.
type Cache struct {
	mu       sync.RWMutex
	byPeriod map[string]*Taxonomy
}

func NewCache() *Cache {
	return &Cache{byPeriod: make(map[string]*Taxonomy)}
}

// Put registers a taxonomy, replacing any previous one for its period.
func (c *Cache) Put(t *Taxonomy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPeriod[t.PeriodID()] = t
}

// Get returns the taxonomy for a period, or TAXONOMY_NOT_LOADED.
func (c *Cache) Get(periodID string) (*Taxonomy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byPeriod[periodID]
	if !ok {
		return nil, apperrors.ErrTaxonomyNotLoadedf(periodID)
	}
	return t, nil
}
