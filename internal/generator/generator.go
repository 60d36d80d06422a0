// Package generator produces a fresh day-by-day itinerary from trip
// preferences and a selected POI set, preserving pinned items across
// regenerations.
package generator

import (
	"context"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	defaultTravelMinutes = 20
	bufferMinutes        = 15
)

type Generator struct {
	store *itinerary.Store
	pois  poi.Catalog
}

func New(store *itinerary.Store, catalog poi.Catalog) *Generator {
	return &Generator{store: store, pois: catalog}
}

type Input struct {
	Trip            planmodel.Trip
	Preferences     planmodel.TripPreferences
	POIIDs          []string
	PreservePinned  bool
	RegenerateMode  string // "full" (change_type=generate) or "incremental" (change_type=edit)
	ChangedBy       string
}

// Generate builds a new itinerary and persists it under one transaction.
func (g *Generator) Generate(ctx context.Context, in Input) ([]planmodel.ItineraryDay, int, error) {
	if len(in.POIIDs) == 0 {
		return nil, 0, apperr.Validation("at least one poi is required")
	}

	days, err := numDays(in.Preferences.Dates)
	if err != nil {
		return nil, 0, err
	}

	var pinnedByDay map[int][]planmodel.ItineraryItem
	if in.PreservePinned {
		existing, err := g.store.Items(ctx, in.Trip.ID)
		if err != nil {
			return nil, 0, err
		}
		pinnedByDay = map[int][]planmodel.ItineraryItem{}
		for _, item := range existing {
			if item.IsPinned {
				pinnedByDay[item.Day] = append(pinnedByDay[item.Day], item)
			}
		}
	}

	buckets := make([][]string, days)
	for i, id := range in.POIIDs {
		buckets[i%days] = append(buckets[i%days], id)
	}

	resolved := make([]planmodel.ItineraryDay, 0, days)
	for day := 1; day <= days; day++ {
		dayItems, err := g.planDay(ctx, day, in.Preferences, pinnedByDay[day], buckets[day-1])
		if err != nil {
			return nil, 0, err
		}
		resolved = append(resolved, planmodel.ItineraryDay{Day: day, Items: dayItems})
	}

	changeType := planmodel.ChangeGenerate
	if in.RegenerateMode == "incremental" {
		changeType = planmodel.ChangeEdit
	}

	var newVersion int
	err = g.store.InTransaction(ctx, in.Trip.ID, func(ctx context.Context, tx pgx.Tx) error {
		if err := itinerary.DeleteNonPinnedTx(ctx, tx, in.Trip.ID); err != nil {
			return err
		}
		for i := range resolved {
			for j, item := range resolved[i].Items {
				if item.IsPinned {
					continue
				}
				saved, err := itinerary.InsertItemTx(ctx, tx, item)
				if err != nil {
					return err
				}
				resolved[i].Items[j] = saved
			}
		}

		current, err := itinerary.CurrentVersionTx(ctx, tx, in.Trip.ID)
		if err != nil {
			return err
		}
		newVersion = current + 1
		if err := itinerary.SetVersionTx(ctx, tx, in.Trip.ID, newVersion); err != nil {
			return err
		}

		_, err = itinerary.InsertVersionTx(ctx, tx, planmodel.ItineraryVersion{
			ID:         uuid.NewString(),
			TripID:     in.Trip.ID,
			Version:    newVersion,
			ChangeType: changeType,
			ChangedBy:  in.ChangedBy,
			Snapshot:   resolved,
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return resolved, newVersion, nil
}

func (g *Generator) planDay(ctx context.Context, day int, prefs planmodel.TripPreferences, pinned []planmodel.ItineraryItem, poiIDs []string) ([]planmodel.ItineraryItem, error) {
	var items []planmodel.ItineraryItem
	cursor := prefs.Window.Start

	items = append(items, pinned...)
	for _, p := range pinned {
		if before, _ := timegeo.Before(cursor, p.EndTime); before {
			cursor = p.EndTime
		}
	}

	weekday := weekdayForDay(prefs.Dates.Start, day)

	var previous *planmodel.ItineraryItem
	if len(pinned) > 0 {
		previous = &pinned[len(pinned)-1]
	}

	for _, poiID := range poiIDs {
		p, err := g.pois.Get(ctx, poiID)
		if err != nil {
			continue
		}
		hours, ok := p.Hours[weekday]
		if !ok || hours.Closed {
			continue
		}

		candidateStart := cursor
		if before, _ := timegeo.Before(candidateStart, hours.Open); before {
			candidateStart = hours.Open
		}

		var segment *planmodel.RouteSegment
		leadMinutes := bufferMinutes
		if previous != nil && previous.Location != nil {
			distance := timegeo.HaversineKm(previous.Location.Lat, previous.Location.Lng, p.Location.Lat, p.Location.Lng)
			segment = &planmodel.RouteSegment{
				FromItemID:  previous.ID,
				Mode:        planmodel.ModeWalking,
				DistanceKm:  distance,
				DurationMin: defaultTravelMinutes,
			}
			leadMinutes += defaultTravelMinutes
		}
		candidateStart, err = timegeo.AddMinutes(candidateStart, leadMinutes)
		if err != nil {
			continue
		}

		candidateEnd, err := timegeo.AddMinutes(candidateStart, p.AvgDurationMinutes)
		if err != nil {
			continue
		}
		closesBeforeEnd, _ := timegeo.Before(hours.Close, candidateEnd)
		windowEndsBeforeEnd, _ := timegeo.Before(prefs.Window.End, candidateEnd)
		if closesBeforeEnd || windowEndsBeforeEnd {
			continue
		}

		item := planmodel.ItineraryItem{
			ID:                uuid.NewString(),
			Day:               day,
			Type:              planmodel.ItemPOI,
			POIID:             p.ID,
			Name:              p.Name,
			Location:          &p.Location,
			StartTime:         candidateStart,
			EndTime:           candidateEnd,
			DurationMinutes:   p.AvgDurationMinutes,
			Order:             len(items),
			RouteFromPrevious: segment,
			CostEstimate:      costEstimate(p),
		}
		items = append(items, item)
		cursor = candidateEnd
		previous = &items[len(items)-1]
	}

	for i := range items {
		items[i].Order = i
	}
	return items, nil
}

func costEstimate(p poi.POI) *planmodel.CostEstimate {
	if p.PriceRange == nil {
		return nil
	}
	mid := (p.PriceRange.Min + p.PriceRange.Max) / 2
	return &planmodel.CostEstimate{Amount: mid, Currency: p.PriceRange.Currency, Confidence: planmodel.CostEstimated}
}

func numDays(dates planmodel.DateRange) (int, error) {
	days, err := timegeo.DaysBetween(dates.Start, dates.End)
	if err != nil {
		return 0, apperr.Validation(err.Error())
	}
	if days < 1 {
		return 0, apperr.Validation("trip must span at least one day")
	}
	return days, nil
}

func weekdayForDay(start string, day int) string {
	d, err := timegeo.AddDate(start, day-1)
	if err != nil {
		return ""
	}
	wd, err := timegeo.DayOfWeek(d)
	if err != nil {
		return ""
	}
	return wd
}
