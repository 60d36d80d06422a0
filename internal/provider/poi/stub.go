package poi

import (
	"context"
	"sync"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"
)

// StubCatalog is an in-memory Catalog for tests and for environments
// without a configured POI provider. It never calls out over the
// network.
type StubCatalog struct {
	mu    sync.RWMutex
	items map[string]POI
}

func NewStubCatalog(seed ...POI) *StubCatalog {
	c := &StubCatalog{items: map[string]POI{}}
	for _, p := range seed {
		c.items[p.ID] = p
	}
	return c
}

func (c *StubCatalog) Put(p POI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = p
}

func (c *StubCatalog) Get(_ context.Context, id string) (POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[id]
	if !ok {
		return POI{}, apperr.NotFound("poi not found")
	}
	return p, nil
}

func (c *StubCatalog) Search(_ context.Context, filters SearchFilters) (SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []POI
	for _, p := range c.items {
		if len(filters.Tags) > 0 && !hasAnyTag(p, filters.Tags) {
			continue
		}
		if filters.Location != nil && filters.RadiusKm > 0 {
			d := timegeo.HaversineKm(filters.Location.Lat, filters.Location.Lng, p.Location.Lat, p.Location.Lng)
			if d > filters.RadiusKm {
				continue
			}
		}
		matches = append(matches, p)
	}
	return SearchResult{Items: matches, TotalCount: len(matches)}, nil
}

func hasAnyTag(p POI, tags []string) bool {
	for _, t := range tags {
		if p.HasTag(t) {
			return true
		}
	}
	return false
}
