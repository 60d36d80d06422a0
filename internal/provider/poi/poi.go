// Package poi defines the POI catalog as consumed by the core: a
// read-only external collaborator the generator and replan pipeline
// query for location, hours, and price range.
package poi

import (
	"context"

	"github.com/Sakeerin/GoBuddy/internal/planmodel"
)

type Hours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

type POI struct {
	ID                 string            `json:"id"`
	PlaceID            string            `json:"place_id"`
	Name               string            `json:"name"`
	Location           planmodel.Location `json:"location"`
	Hours              map[string]Hours  `json:"hours"` // keyed by lowercase weekday
	Tags               []string          `json:"tags"`
	AvgDurationMinutes int               `json:"avg_duration_minutes"`
	PriceRange         *PriceRange       `json:"price_range,omitempty"`
}

func (p POI) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type SearchFilters struct {
	Query    string
	Tags     []string
	Location *planmodel.Location
	RadiusKm float64
	Page     int
	PageSize int
}

type SearchResult struct {
	Items      []POI `json:"items"`
	TotalCount int   `json:"total_count"`
}

// Catalog is the interface the core depends on; it never mutates the
// catalog, only reads from it.
type Catalog interface {
	Get(ctx context.Context, id string) (POI, error)
	Search(ctx context.Context, filters SearchFilters) (SearchResult, error)
}
