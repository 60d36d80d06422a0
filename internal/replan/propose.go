// Package replan implements the propose/apply/rollback stages of the
// event-to-replan pipeline: turning a ReplanTrigger into scored candidate
// proposals, applying one transactionally, and rolling it back within the
// 24h window.
package replan

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
	"github.com/Sakeerin/GoBuddy/internal/provider/routing"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"

	"github.com/google/uuid"
)

const (
	defaultMaxProposals    = 3
	defaultRollbackWindow  = 24 * time.Hour
	indoorReplaceRadiusKm  = 3.0
	closureReplaceRadiusKm = 1.0
)

// TriggerContext bundles everything propose needs about the trigger's
// event and the trip's current itinerary.
type TriggerContext struct {
	Trigger   planmodel.ReplanTrigger
	Signal    planmodel.EventSignal
	Condition string
	Severity  string
	Items     []planmodel.ItineraryItem
	Prefs     planmodel.TripPreferences
}

// Propose generates up to maxProposals candidate proposals for the
// trigger's affected items, one per applicable strategy that yields a
// non-empty change set, scored and sorted by score descending.
func (s *Service) Propose(ctx context.Context, tc TriggerContext, maxProposals int) ([]planmodel.ReplanProposal, error) {
	if maxProposals <= 0 {
		maxProposals = s.maxProposals
	}

	affected := withoutPinned(itemsByID(tc.Items, tc.Signal.AffectedItems))
	if len(affected) == 0 {
		return nil, apperr.ReplanFailed("trigger has no affected items to propose against")
	}
	affectedIDs := make([]string, len(affected))
	for i, it := range affected {
		affectedIDs[i] = it.ID
	}

	var strategies []func(context.Context, TriggerContext, []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error)
	switch tc.Signal.Type {
	case planmodel.EventWeatherAlert:
		strategies = []func(context.Context, TriggerContext, []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error){
			s.substituteIndoor, s.moveToDifferentDay, s.removeItems,
		}
	case planmodel.EventPOIClosure:
		strategies = []func(context.Context, TriggerContext, []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error){
			s.substituteSimilar, s.moveToDifferentSlot,
		}
	default:
		strategies = []func(context.Context, TriggerContext, []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error){
			s.removeItems,
		}
	}

	var proposals []planmodel.ReplanProposal
	for i, strat := range strategies {
		changes, desc, err := strat(ctx, tc, affected)
		if err != nil || isEmptyChanges(changes) {
			continue
		}
		impact := s.computeImpact(ctx, tc, changes)
		score := scoreProposal(impact)
		proposals = append(proposals, planmodel.ReplanProposal{
			ID:            uuid.NewString(),
			TripID:        tc.Trigger.TripID,
			TriggerID:     tc.Trigger.ID,
			Strategy:      strategyName(tc.Signal.Type, i),
			Description:   desc,
			AffectedItems: affectedIDs,
			Changes:       changes,
			Impact:        impact,
			Score:         score,
		})
	}

	sort.SliceStable(proposals, func(i, j int) bool { return proposals[i].Score > proposals[j].Score })

	for i := range proposals {
		saved, err := s.persistProposal(ctx, proposals[i])
		if err != nil {
			return nil, err
		}
		proposals[i] = saved
	}

	if len(proposals) > maxProposals {
		proposals = proposals[:maxProposals]
	}
	s.notify(tc.Trigger.TripID, "replan.proposed", proposals)
	return proposals, nil
}

func strategyName(eventType planmodel.EventType, index int) planmodel.ReplanStrategy {
	switch eventType {
	case planmodel.EventWeatherAlert:
		return []planmodel.ReplanStrategy{planmodel.StrategySubstitute, planmodel.StrategyMoveDay, planmodel.StrategyDropItem}[index]
	case planmodel.EventPOIClosure:
		return []planmodel.ReplanStrategy{planmodel.StrategySubstitute, planmodel.StrategyReschedule}[index]
	default:
		return planmodel.StrategyDropItem
	}
}

// substituteIndoor replaces each affected outdoor item with the nearest
// indoor-tagged POI within 3km that isn't already on the itinerary.
func (s *Service) substituteIndoor(ctx context.Context, tc TriggerContext, affected []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error) {
	return s.substituteNear(ctx, tc, affected, indoorReplaceRadiusKm, []string{"indoor", "museum", "gallery", "mall", "aquarium", "theater"},
		"replace affected outdoor items with nearby indoor alternatives")
}

// substituteSimilar replaces each affected item with a nearby POI sharing
// at least one tag, for closure events.
func (s *Service) substituteSimilar(ctx context.Context, tc TriggerContext, affected []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error) {
	var tags []string
	for _, item := range affected {
		if p, err := s.pois.Get(ctx, item.POIID); err == nil {
			tags = append(tags, p.Tags...)
		}
	}
	return s.substituteNear(ctx, tc, affected, closureReplaceRadiusKm, tags, "replace closed items with similar nearby alternatives")
}

func (s *Service) substituteNear(ctx context.Context, tc TriggerContext, affected []planmodel.ItineraryItem, radiusKm float64, tags []string, desc string) (planmodel.ReplanChanges, string, error) {
	existing := map[string]bool{}
	for _, it := range tc.Items {
		if it.POIID != "" {
			existing[it.POIID] = true
		}
	}

	var changes planmodel.ReplanChanges
	for _, item := range affected {
		if item.Location == nil {
			continue
		}
		result, err := s.pois.Search(ctx, poi.SearchFilters{Tags: tags, Location: item.Location, RadiusKm: radiusKm})
		if err != nil {
			continue
		}
		replacement := nearestUnused(item, result.Items, existing)
		if replacement == nil {
			continue
		}
		existing[replacement.ID] = true

		newItem := planmodel.ItineraryItem{
			ID:              uuid.NewString(),
			TripID:          item.TripID,
			Day:             item.Day,
			Type:            planmodel.ItemPOI,
			POIID:           replacement.ID,
			Name:            replacement.Name,
			Location:        &replacement.Location,
			StartTime:       item.StartTime,
			DurationMinutes: replacement.AvgDurationMinutes,
			Order:           item.Order,
		}
		if end, err := timegeo.AddMinutes(item.StartTime, replacement.AvgDurationMinutes); err == nil {
			newItem.EndTime = end
		} else {
			newItem.EndTime = item.EndTime
		}
		changes.ReplacedItems = append(changes.ReplacedItems, planmodel.ReplacedItem{OldItemID: item.ID, NewItem: newItem})
	}
	return changes, desc, nil
}

func nearestUnused(from planmodel.ItineraryItem, candidates []poi.POI, used map[string]bool) *poi.POI {
	var best *poi.POI
	bestDist := math.MaxFloat64
	for i, c := range candidates {
		if used[c.ID] || c.ID == from.POIID {
			continue
		}
		d := timegeo.HaversineKm(from.Location.Lat, from.Location.Lng, c.Location.Lat, c.Location.Lng)
		if d < bestDist {
			bestDist = d
			best = &candidates[i]
		}
	}
	return best
}

// moveToDifferentDay relocates each affected item to the first other day,
// counting from day 1 up to one day past the last planned day, that has a
// free slot within the trip's daily window (TripPreferences.Window, or
// 09:00-21:00 when the trip has none set).
func (s *Service) moveToDifferentDay(_ context.Context, tc TriggerContext, affected []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error) {
	window := tc.Prefs.Window
	if window.Start == "" || window.End == "" {
		window = planmodel.DailyWindow{Start: "09:00", End: "21:00"}
	}
	maxDay := 1
	for _, it := range tc.Items {
		if it.Day > maxDay {
			maxDay = it.Day
		}
	}

	var changes planmodel.ReplanChanges
	for _, item := range affected {
		targetDay, start, ok := findOpenSlot(tc.Items, item, window, maxDay)
		if !ok {
			continue
		}
		end, err := timegeo.AddMinutes(start, item.DurationMinutes)
		if err != nil {
			continue
		}
		changes.MovedItems = append(changes.MovedItems, planmodel.MovedItem{
			ItemID: item.ID, NewDay: targetDay, StartTime: start, EndTime: end,
		})
	}
	return changes, "move affected items to a different day with an open slot", nil
}

func findOpenSlot(all []planmodel.ItineraryItem, item planmodel.ItineraryItem, window planmodel.DailyWindow, maxDay int) (int, string, bool) {
	for day := 1; day <= maxDay+1; day++ {
		if day == item.Day {
			continue
		}
		dayItems := itemsOnDay(all, day)
		cursor := window.Start
		for _, other := range dayItems {
			if before, _ := timegeo.Before(cursor, other.StartTime); !before {
				if after, _ := timegeo.Before(other.EndTime, cursor); !after {
					cursor = other.EndTime
				}
				continue
			}
			end, err := timegeo.AddMinutes(cursor, item.DurationMinutes)
			if err == nil {
				if before, _ := timegeo.Before(end, other.StartTime); before || end == other.StartTime {
					return day, cursor, true
				}
			}
			cursor = other.EndTime
		}
		if end, err := timegeo.AddMinutes(cursor, item.DurationMinutes); err == nil {
			if before, _ := timegeo.Before(end, window.End); before || end == window.End {
				return day, cursor, true
			}
		}
	}
	return 0, "", false
}

func itemsOnDay(items []planmodel.ItineraryItem, day int) []planmodel.ItineraryItem {
	var out []planmodel.ItineraryItem
	for _, it := range items {
		if it.Day == day {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// moveToDifferentSlot shifts a closure-affected item later the same day by
// its own duration plus a buffer, used only when that still fits the
// window.
func (s *Service) moveToDifferentSlot(_ context.Context, tc TriggerContext, affected []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error) {
	window := tc.Prefs.Window
	if window.Start == "" || window.End == "" {
		window = planmodel.DailyWindow{Start: "09:00", End: "21:00"}
	}
	var changes planmodel.ReplanChanges
	for _, item := range affected {
		start, err := timegeo.AddMinutes(item.EndTime, 30)
		if err != nil {
			continue
		}
		end, err := timegeo.AddMinutes(start, item.DurationMinutes)
		if err != nil {
			continue
		}
		if before, _ := timegeo.Before(window.End, end); before {
			continue
		}
		changes.MovedItems = append(changes.MovedItems, planmodel.MovedItem{
			ItemID: item.ID, NewDay: item.Day, StartTime: start, EndTime: end,
		})
	}
	return changes, "move closure-affected items later the same day", nil
}

// removeItems drops the affected items entirely.
func (s *Service) removeItems(_ context.Context, _ TriggerContext, affected []planmodel.ItineraryItem) (planmodel.ReplanChanges, string, error) {
	var changes planmodel.ReplanChanges
	for _, item := range affected {
		changes.RemovedItems = append(changes.RemovedItems, item.ID)
	}
	return changes, "remove the affected items from the itinerary", nil
}

func (s *Service) computeImpact(ctx context.Context, tc TriggerContext, changes planmodel.ReplanChanges) planmodel.ReplanImpact {
	impact := planmodel.ReplanImpact{}

	byID := map[string]planmodel.ItineraryItem{}
	for _, it := range tc.Items {
		byID[it.ID] = it
	}

	var timeChange int
	var costChange float64
	var distanceChange float64
	distanceOK := true

	for _, r := range changes.ReplacedItems {
		old := byID[r.OldItemID]
		timeChange += r.NewItem.DurationMinutes - old.DurationMinutes
		if r.NewItem.CostEstimate != nil {
			costChange += r.NewItem.CostEstimate.Amount
		}
		if old.CostEstimate != nil {
			costChange -= old.CostEstimate.Amount
		}
		if old.Location != nil && r.NewItem.Location != nil {
			route, err := s.routing.ComputeRoute(ctx, routing.Request{From: *old.Location, To: *r.NewItem.Location, Mode: planmodel.ModeWalking})
			if err != nil {
				distanceOK = false
				continue
			}
			distanceChange += route.DistanceKm
		} else {
			distanceOK = false
		}
	}

	disruption := math.Min(1, 0.3*float64(len(changes.ReplacedItems))+0.2*float64(len(changes.MovedItems))+
		0.4*float64(len(changes.RemovedItems))+0.1*float64(len(changes.AddedItems)))

	impact.TimeChangeMinutes = timeChange
	if len(changes.ReplacedItems) > 0 {
		impact.CostChange = &planmodel.Money{Amount: costChange, Currency: defaultCurrency(tc)}
	}
	impact.DisruptionScore = disruption
	if distanceOK && len(changes.ReplacedItems) > 0 {
		impact.DistanceChangeKm = &distanceChange
	} else if len(changes.ReplacedItems) > 0 {
		impact.DistanceUnavailable = true
	}
	return impact
}

func defaultCurrency(tc TriggerContext) string {
	if tc.Prefs.Budget.Currency != "" {
		return tc.Prefs.Budget.Currency
	}
	return "USD"
}

func scoreProposal(impact planmodel.ReplanImpact) float64 {
	score := 1.0
	score -= 0.5 * impact.DisruptionScore
	if impact.CostChange != nil {
		if impact.CostChange.Amount < 0 {
			score += 0.2
		} else if impact.CostChange.Amount > 0 {
			score -= 0.1
		}
	}
	if impact.TimeChangeMinutes > 60 || impact.TimeChangeMinutes < -60 {
		score -= 0.1
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func isEmptyChanges(c planmodel.ReplanChanges) bool {
	return len(c.ReplacedItems) == 0 && len(c.MovedItems) == 0 && len(c.RemovedItems) == 0 && len(c.AddedItems) == 0
}

func itemsByID(all []planmodel.ItineraryItem, ids []string) []planmodel.ItineraryItem {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []planmodel.ItineraryItem
	for _, it := range all {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// withoutPinned drops pinned items: a pinned item is immune to Replan
// changes the same way it is immune to Generator repositioning.
func withoutPinned(items []planmodel.ItineraryItem) []planmodel.ItineraryItem {
	out := make([]planmodel.ItineraryItem, 0, len(items))
	for _, it := range items {
		if !it.IsPinned {
			out = append(out, it)
		}
	}
	return out
}
