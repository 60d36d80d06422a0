// Package editor implements the itinerary mutation operations — reorder,
// togglePin, setStartTime, remove, add — and the time re-flow policy that
// every mutation re-applies to its day.
package editor

import (
	"context"
	"sort"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const addBufferMinutes = 15

// PreferencesSource supplies the daily window the re-flow policy's cursor
// starts from. *trip.Service satisfies this without editor importing trip.
type PreferencesSource interface {
	GetPreferences(ctx context.Context, tripID string) (planmodel.TripPreferences, error)
}

type Service struct {
	store *itinerary.Store
	pois  poi.Catalog
	prefs PreferencesSource
}

func NewService(store *itinerary.Store, catalog poi.Catalog, prefs PreferencesSource) *Service {
	return &Service{store: store, pois: catalog, prefs: prefs}
}

func (s *Service) window(ctx context.Context, tripID string) planmodel.DailyWindow {
	p, err := s.prefs.GetPreferences(ctx, tripID)
	if err != nil || p.Window.Start == "" {
		return planmodel.DailyWindow{Start: "09:00", End: "21:00"}
	}
	return p.Window
}

// Reorder sets each item's order to its position in ids and re-flows the
// day. ids must be a permutation of the day's current items.
func (s *Service) Reorder(ctx context.Context, tripID string, day int, ids []string) ([]planmodel.ItineraryItem, error) {
	return s.mutateDay(ctx, tripID, day, "reorder", ids, func(items []planmodel.ItineraryItem) ([]planmodel.ItineraryItem, error) {
		byID := make(map[string]planmodel.ItineraryItem, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}
		if len(ids) != len(items) {
			return nil, apperr.Validation("reorder ids must be a permutation of the day's items")
		}
		ordered := make([]planmodel.ItineraryItem, len(ids))
		for i, id := range ids {
			it, ok := byID[id]
			if !ok {
				return nil, apperr.Validation("reorder id " + id + " does not belong to this day")
			}
			it.Order = i
			ordered[i] = it
		}
		return ordered, nil
	})
}

// TogglePin sets is_pinned on one item, re-flows that item's day and
// records a new itinerary version.
func (s *Service) TogglePin(ctx context.Context, tripID string, itemID string, pinned bool) (planmodel.ItineraryItem, error) {
	var updated planmodel.ItineraryItem
	err := s.store.InTransaction(ctx, tripID, func(ctx context.Context, tx pgx.Tx) error {
		items, err := itinerary.ItemsTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		idx, item, err := findItem(items, itemID)
		if err != nil {
			return err
		}
		item.IsPinned = pinned
		items[idx] = item

		day := reflow(itemsForDay(items, item.Day), s.window(ctx, tripID))
		if err := writeDay(ctx, tx, day); err != nil {
			return err
		}
		updated = mustFind(day, itemID)

		return appendVersion(ctx, tx, tripID, "toggle_pin", []string{itemID}, allDaysAfterUpdate(items, item.Day, day))
	})
	return updated, err
}

// SetStartTime sets an item's start time (end recomputed from duration) and
// re-flows the day.
func (s *Service) SetStartTime(ctx context.Context, tripID, itemID, startTime string) ([]planmodel.ItineraryItem, error) {
	if _, err := timegeo.ParseHHMM(startTime); err != nil {
		return nil, err
	}
	var result []planmodel.ItineraryItem
	err := s.store.InTransaction(ctx, tripID, func(ctx context.Context, tx pgx.Tx) error {
		items, err := itinerary.ItemsTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		idx, item, err := findItem(items, itemID)
		if err != nil {
			return err
		}
		end, err := timegeo.AddMinutes(startTime, item.DurationMinutes)
		if err != nil {
			return err
		}
		item.StartTime = startTime
		item.EndTime = end
		items[idx] = item

		day := reflow(itemsForDay(items, item.Day), s.window(ctx, tripID))
		if err := writeDay(ctx, tx, day); err != nil {
			return err
		}
		result = day

		return appendVersion(ctx, tx, tripID, "set_start_time", []string{itemID}, allDaysAfterUpdate(items, item.Day, day))
	})
	return result, err
}

// Remove deletes an item and re-flows its day. Pinned items must be
// unpinned first.
func (s *Service) Remove(ctx context.Context, tripID, itemID string) ([]planmodel.ItineraryItem, error) {
	var result []planmodel.ItineraryItem
	err := s.store.InTransaction(ctx, tripID, func(ctx context.Context, tx pgx.Tx) error {
		items, err := itinerary.ItemsTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		_, item, err := findItem(items, itemID)
		if err != nil {
			return err
		}
		if item.IsPinned {
			return apperr.Validation("unpin first")
		}
		if err := itinerary.DeleteItemTx(ctx, tx, itemID); err != nil {
			return err
		}

		remaining := itemsForDay(removeItem(items, itemID), item.Day)
		day := reflow(remaining, s.window(ctx, tripID))
		if err := writeDay(ctx, tx, day); err != nil {
			return err
		}
		result = day

		return appendVersion(ctx, tx, tripID, "remove", []string{itemID}, day)
	})
	return result, err
}

// Add appends a POI as a new item on the given day, defaulting start_time
// to the last item's end plus the standard buffer, or the window start if
// the day is empty. It re-flows the day after insertion.
func (s *Service) Add(ctx context.Context, tripID string, day int, poiID string, startTime string) ([]planmodel.ItineraryItem, error) {
	p, err := s.pois.Get(ctx, poiID)
	if err != nil {
		return nil, err
	}

	var result []planmodel.ItineraryItem
	err = s.store.InTransaction(ctx, tripID, func(ctx context.Context, tx pgx.Tx) error {
		items, err := itinerary.ItemsTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		window := s.window(ctx, tripID)
		dayItems := itemsForDay(items, day)

		start := startTime
		if start == "" {
			if len(dayItems) > 0 {
				last := dayItems[len(dayItems)-1]
				start, err = timegeo.AddMinutes(last.EndTime, addBufferMinutes)
				if err != nil {
					return err
				}
			} else {
				start = window.Start
			}
		}
		end, err := timegeo.AddMinutes(start, p.AvgDurationMinutes)
		if err != nil {
			return err
		}

		newItem := planmodel.ItineraryItem{
			ID:              uuid.NewString(),
			TripID:          tripID,
			Day:             day,
			Type:            planmodel.ItemPOI,
			POIID:           p.ID,
			Name:            p.Name,
			Location:        &p.Location,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: p.AvgDurationMinutes,
			Order:           len(dayItems),
		}
		saved, err := itinerary.InsertItemTx(ctx, tx, newItem)
		if err != nil {
			return err
		}

		dayItems = append(dayItems, saved)
		reflowed := reflow(dayItems, window)
		if err := writeDay(ctx, tx, reflowed); err != nil {
			return err
		}
		result = reflowed

		return appendVersion(ctx, tx, tripID, "add", []string{saved.ID}, reflowed)
	})
	return result, err
}

// mutateDay loads the day's items, applies transform, re-flows, persists,
// and appends a version snapshot. Used by Reorder, whose transform also
// validates the input ids.
func (s *Service) mutateDay(ctx context.Context, tripID string, day int, op string, itemIDs []string,
	transform func([]planmodel.ItineraryItem) ([]planmodel.ItineraryItem, error)) ([]planmodel.ItineraryItem, error) {
	var result []planmodel.ItineraryItem
	err := s.store.InTransaction(ctx, tripID, func(ctx context.Context, tx pgx.Tx) error {
		items, err := itinerary.ItemsTx(ctx, tx, tripID)
		if err != nil {
			return err
		}
		window := s.window(ctx, tripID)
		dayItems := itemsForDay(items, day)
		if len(dayItems) == 0 {
			return apperr.Validation("day has no items")
		}
		transformed, err := transform(dayItems)
		if err != nil {
			return err
		}
		reflowed := reflow(transformed, window)
		if err := writeDay(ctx, tx, reflowed); err != nil {
			return err
		}
		result = reflowed
		return appendVersion(ctx, tx, tripID, op, itemIDs, reflowed)
	})
	return result, err
}

// reflow re-applies the time re-flow policy: pinned items whose start_time
// already differs from the running cursor keep their times; every other
// item is pushed to start at the cursor.
func reflow(items []planmodel.ItineraryItem, window planmodel.DailyWindow) []planmodel.ItineraryItem {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	cursor := window.Start
	out := make([]planmodel.ItineraryItem, len(items))
	for i, item := range items {
		if item.IsPinned && item.StartTime != cursor && item.StartTime != "" {
			if before, _ := timegeo.Before(cursor, item.EndTime); before {
				cursor = item.EndTime
			}
		} else {
			item.StartTime = cursor
			end, err := timegeo.AddMinutes(cursor, item.DurationMinutes)
			if err == nil {
				item.EndTime = end
				cursor = end
			}
		}
		item.Order = i
		out[i] = item
	}
	return out
}

func writeDay(ctx context.Context, tx pgx.Tx, day []planmodel.ItineraryItem) error {
	for _, item := range day {
		if err := itinerary.UpdateItemTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func appendVersion(ctx context.Context, tx pgx.Tx, tripID, op string, itemIDs []string, changedDay []planmodel.ItineraryItem) error {
	all, err := itinerary.ItemsTx(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if len(changedDay) > 0 {
		replaceDay(all, changedDay)
	}

	current, err := itinerary.CurrentVersionTx(ctx, tx, tripID)
	if err != nil {
		return err
	}
	next := current + 1
	if err := itinerary.SetVersionTx(ctx, tx, tripID, next); err != nil {
		return err
	}
	_, err = itinerary.InsertVersionTx(ctx, tx, planmodel.ItineraryVersion{
		ID:         uuid.NewString(),
		TripID:     tripID,
		Version:    next,
		ChangeType: planmodel.ChangeEdit,
		Snapshot:   itinerary.Snapshot(all),
		Diff:       &planmodel.VersionDiff{Operation: op, ItemIDs: itemIDs},
	})
	return err
}

func replaceDay(all []planmodel.ItineraryItem, day []planmodel.ItineraryItem) {
	if len(day) == 0 {
		return
	}
	byID := make(map[string]planmodel.ItineraryItem, len(day))
	for _, it := range day {
		byID[it.ID] = it
	}
	for i, it := range all {
		if updated, ok := byID[it.ID]; ok {
			all[i] = updated
		}
	}
}

func itemsForDay(items []planmodel.ItineraryItem, day int) []planmodel.ItineraryItem {
	var out []planmodel.ItineraryItem
	for _, it := range items {
		if it.Day == day {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func removeItem(items []planmodel.ItineraryItem, id string) []planmodel.ItineraryItem {
	out := make([]planmodel.ItineraryItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func findItem(items []planmodel.ItineraryItem, id string) (int, planmodel.ItineraryItem, error) {
	for i, it := range items {
		if it.ID == id {
			return i, it, nil
		}
	}
	return 0, planmodel.ItineraryItem{}, apperr.NotFound("item not found")
}

func mustFind(items []planmodel.ItineraryItem, id string) planmodel.ItineraryItem {
	_, it, _ := findItem(items, id)
	return it
}

func allDaysAfterUpdate(all []planmodel.ItineraryItem, day int, updatedDay []planmodel.ItineraryItem) []planmodel.ItineraryItem {
	replaceDay(all, updatedDay)
	return itemsForDay(all, day)
}

