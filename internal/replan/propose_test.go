package replan

import (
	"context"
	"testing"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
	"github.com/Sakeerin/GoBuddy/internal/provider/routing"

	"github.com/pashagolub/pgxmock/v3"
)

func loc(lat, lng float64) *planmodel.Location { return &planmodel.Location{Lat: lat, Lng: lng} }

func TestScoreProposalPenalizesDisruption(t *testing.T) {
	low := scoreProposal(planmodel.ReplanImpact{DisruptionScore: 0.1})
	high := scoreProposal(planmodel.ReplanImpact{DisruptionScore: 0.9})
	if !(low > high) {
		t.Fatalf("expected lower disruption to score higher: low=%v high=%v", low, high)
	}
}

func TestScoreProposalRewardsCostSaving(t *testing.T) {
	cheaper := scoreProposal(planmodel.ReplanImpact{CostChange: &planmodel.Money{Amount: -10}})
	pricier := scoreProposal(planmodel.ReplanImpact{CostChange: &planmodel.Money{Amount: 10}})
	if !(cheaper > pricier) {
		t.Fatalf("expected a cost decrease to score higher than an increase")
	}
}

func TestSubstituteIndoorFindsNearbyAlternative(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	catalog := poi.NewStubCatalog(
		poi.POI{ID: "museum-1", Name: "City Museum", Location: planmodel.Location{Lat: 1.0, Lng: 1.001}, Tags: []string{"indoor", "museum"}, AvgDurationMinutes: 90},
	)
	svc := NewService(mock, nil, catalog, routingStub{}, nil)

	affected := []planmodel.ItineraryItem{
		{ID: "item-1", POIID: "park-1", Day: 1, Name: "City Park", Location: loc(1.0, 1.0), StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60, Order: 0},
	}
	tc := TriggerContext{
		Signal: planmodel.EventSignal{Type: planmodel.EventWeatherAlert, AffectedItems: []string{"item-1"}},
		Items:  affected,
	}

	changes, _, err := svc.substituteIndoor(context.Background(), tc, affected)
	if err != nil {
		t.Fatalf("substitute indoor: %v", err)
	}
	if len(changes.ReplacedItems) != 1 {
		t.Fatalf("expected one replacement, got %d", len(changes.ReplacedItems))
	}
	if changes.ReplacedItems[0].NewItem.POIID != "museum-1" {
		t.Fatalf("expected the museum to be chosen, got %s", changes.ReplacedItems[0].NewItem.POIID)
	}
}

func TestMoveToDifferentDayFindsOpenSlot(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil)
	window := planmodel.DailyWindow{Start: "09:00", End: "21:00"}
	items := []planmodel.ItineraryItem{
		{ID: "item-1", Day: 1, StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60, Order: 0},
		{ID: "item-2", Day: 2, StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60, Order: 0},
	}
	tc := TriggerContext{Items: items, Prefs: planmodel.TripPreferences{Window: window}}

	changes, _, err := svc.moveToDifferentDay(context.Background(), tc, []planmodel.ItineraryItem{items[0]})
	if err != nil {
		t.Fatalf("move to different day: %v", err)
	}
	if len(changes.MovedItems) != 1 {
		t.Fatalf("expected one moved item, got %d", len(changes.MovedItems))
	}
	if changes.MovedItems[0].NewDay == 1 {
		t.Fatalf("expected the item to move off its original day")
	}
}

func TestWithoutPinnedDropsPinnedItems(t *testing.T) {
	items := []planmodel.ItineraryItem{
		{ID: "item-1", IsPinned: true},
		{ID: "item-2"},
		{ID: "item-3", IsPinned: true},
	}
	out := withoutPinned(items)
	if len(out) != 1 || out[0].ID != "item-2" {
		t.Fatalf("expected only the unpinned item to survive, got %+v", out)
	}
}

func TestProposeRejectsTriggerWithOnlyPinnedItems(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil)
	tc := TriggerContext{
		Signal: planmodel.EventSignal{Type: planmodel.EventWeatherAlert, AffectedItems: []string{"item-1"}},
		Items:  []planmodel.ItineraryItem{{ID: "item-1", IsPinned: true, Day: 1}},
	}

	_, err := svc.Propose(context.Background(), tc, 0)
	if err == nil {
		t.Fatalf("expected propose to fail when every affected item is pinned")
	}
}

func TestRemoveItemsStrategy(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil)
	affected := []planmodel.ItineraryItem{{ID: "item-1"}, {ID: "item-2"}}
	changes, _, err := svc.removeItems(context.Background(), TriggerContext{}, affected)
	if err != nil {
		t.Fatalf("remove items: %v", err)
	}
	if len(changes.RemovedItems) != 2 {
		t.Fatalf("expected both items removed, got %v", changes.RemovedItems)
	}
}

// TestProposeUsesConfiguredMaxProposals verifies WithLimits' cap actually
// governs Propose, not just the built-in default.
func TestProposeUsesConfiguredMaxProposals(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	catalog := poi.NewStubCatalog(
		poi.POI{ID: "poi-1", Name: "Old Park", Tags: []string{"park"}, Location: planmodel.Location{Lat: 1.0, Lng: 1.0}},
		poi.POI{ID: "poi-2", Name: "New Park", Tags: []string{"park"}, Location: planmodel.Location{Lat: 1.0, Lng: 1.001}, AvgDurationMinutes: 60},
	)
	svc := NewService(mock, nil, catalog, routingStub{}, nil).WithLimits(1, 48*time.Hour)

	item := planmodel.ItineraryItem{
		ID: "item-1", POIID: "poi-1", Day: 1, Name: "Old Park",
		Location: loc(1.0, 1.0), StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60,
	}
	tc := TriggerContext{
		Signal: planmodel.EventSignal{Type: planmodel.EventPOIClosure, AffectedItems: []string{"item-1"}},
		Items:  []planmodel.ItineraryItem{item},
	}

	mock.ExpectQuery(`INSERT INTO replan_proposals`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`INSERT INTO replan_proposals`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	proposals, err := svc.Propose(context.Background(), tc, 0)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("expected WithLimits(1, ...) to cap proposals to 1, got %d", len(proposals))
	}
}

type routingStub struct{}

func (routingStub) ComputeRoute(_ context.Context, _ routing.Request) (routing.Result, error) {
	return routing.Result{DistanceKm: 1}, nil
}
func (routingStub) HealthCheck(_ context.Context) bool { return true }
