// Package event implements the ingest stage of the event-to-replan
// pipeline: it computes affected items for a disruption signal,
// persists the signal, and emits a replan trigger when severity
// warrants one.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/db"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/weather"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"

	"github.com/google/uuid"
)

const (
	weatherRadiusKm = 5.0
	closureRadiusKm = 0.5
)

var outdoorTags = map[string]bool{
	"outdoor": true, "park": true, "beach": true, "hiking": true, "walking": true, "tour": true, "market": true,
}

type Service struct {
	db      db.Querier
	store   *itinerary.Store
	weather weather.Provider
}

func NewService(d db.Querier, store *itinerary.Store, w weather.Provider) *Service {
	return &Service{db: d, store: store, weather: w}
}

type IngestInput struct {
	TripID    string
	Type      planmodel.EventType
	Severity  string // low, medium, high
	Condition string // for weather events, e.g. heavy_rain
	Location  planmodel.Location
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Day       int
	Tags      map[string][]string // item id -> tags, supplied by caller (POI catalog lookups happen upstream)
}

// Ingest computes affected items, persists the signal, and emits a
// trigger when the event is severe enough to warrant one.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (planmodel.EventSignal, *planmodel.ReplanTrigger, error) {
	items, err := s.store.Items(ctx, in.TripID)
	if err != nil {
		return planmodel.EventSignal{}, nil, err
	}

	affected := affectedItems(in, items)

	signal := planmodel.EventSignal{
		ID:            uuid.NewString(),
		TripID:        in.TripID,
		Type:          in.Type,
		Location:      in.Location,
		AffectedDay:   in.Day,
		AffectedItems: affected,
		Payload:       map[string]any{"severity": in.Severity, "condition": in.Condition},
	}

	if err := s.persistSignal(ctx, &signal, in.StartTime, in.EndTime); err != nil {
		return planmodel.EventSignal{}, nil, err
	}

	var trigger *planmodel.ReplanTrigger
	if shouldTrigger(in) {
		t, err := s.emitTrigger(ctx, signal, priorityFor(in))
		if err != nil {
			return signal, nil, err
		}
		trigger = &t
	}

	return signal, trigger, nil
}

// WeatherCheckInput describes the day and place to forecast ahead of
// scheduled outdoor items, so a disruption can be ingested before it
// happens rather than reported after the fact.
type WeatherCheckInput struct {
	TripID   string
	Location planmodel.Location
	Date     string
	Day      int
	Tags     map[string][]string
}

// CheckWeather polls the configured forecast collaborator for a trip's
// location and day, and ingests a weather alert signal when the forecast
// is severe enough to affect outdoor items. It returns a nil signal when
// the forecast is benign.
func (s *Service) CheckWeather(ctx context.Context, in WeatherCheckInput) (*planmodel.EventSignal, *planmodel.ReplanTrigger, error) {
	if s.weather == nil {
		return nil, nil, nil
	}
	forecast, err := s.weather.GetWeatherForecast(ctx, in.Location.Lat, in.Location.Lng, in.Date)
	if err != nil {
		return nil, nil, apperr.ProviderError(true, err.Error())
	}
	if forecast.Severity == weather.SeverityLow {
		return nil, nil, nil
	}

	signal, trigger, err := s.Ingest(ctx, IngestInput{
		TripID:    in.TripID,
		Type:      planmodel.EventWeatherAlert,
		Severity:  string(forecast.Severity),
		Condition: string(forecast.Condition),
		Location:  in.Location,
		Day:       in.Day,
		Tags:      in.Tags,
	})
	if err != nil {
		return nil, nil, err
	}
	return &signal, trigger, nil
}

func affectedItems(in IngestInput, items []planmodel.ItineraryItem) []string {
	var affected []string
	for _, item := range items {
		if item.Day != in.Day || item.Location == nil {
			continue
		}
		if !timeOverlaps(item.StartTime, item.EndTime, in.StartTime, in.EndTime) {
			continue
		}

		switch in.Type {
		case planmodel.EventWeatherAlert:
			distance := timegeo.HaversineKm(item.Location.Lat, item.Location.Lng, in.Location.Lat, in.Location.Lng)
			if distance <= weatherRadiusKm && looksOutdoor(item, in.Tags[item.ID]) {
				affected = append(affected, item.ID)
			}
		case planmodel.EventPOIClosure:
			distance := timegeo.HaversineKm(item.Location.Lat, item.Location.Lng, in.Location.Lat, in.Location.Lng)
			if distance <= closureRadiusKm {
				affected = append(affected, item.ID)
			}
		}
	}
	return affected
}

func looksOutdoor(item planmodel.ItineraryItem, tags []string) bool {
	for _, t := range tags {
		if outdoorTags[t] {
			return true
		}
	}
	lower := item.Name
	for tag := range outdoorTags {
		if containsFold(lower, tag) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	sl, sb := []rune(s), []rune(substr)
	toLower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + 32
		}
		return r
	}
	for i, r := range sl {
		sl[i] = toLower(r)
	}
	for i, r := range sb {
		sb[i] = toLower(r)
	}
	target := string(sb)
	src := string(sl)
	for i := 0; i+len(target) <= len(src); i++ {
		if src[i:i+len(target)] == target {
			return true
		}
	}
	return false
}

func timeOverlaps(aStart, aEnd, bStart, bEnd string) bool {
	if bStart == "" || bEnd == "" {
		return true
	}
	aBeforeBEnd, err := timegeo.Before(aStart, bEnd)
	if err != nil {
		return false
	}
	bBeforeAEnd, err := timegeo.Before(bStart, aEnd)
	if err != nil {
		return false
	}
	return aBeforeBEnd && bBeforeAEnd
}

func shouldTrigger(in IngestInput) bool {
	if in.Type == planmodel.EventWeatherAlert && in.Severity == "high" && in.Condition == "heavy_rain" {
		return true
	}
	if in.Type == planmodel.EventPOIClosure && (in.Severity == "medium" || in.Severity == "high") {
		return true
	}
	return false
}

func priorityFor(in IngestInput) string {
	return in.Severity
}

func (s *Service) persistSignal(ctx context.Context, signal *planmodel.EventSignal, startTime, endTime string) error {
	location, err := json.Marshal(signal.Location)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	payload, err := json.Marshal(signal.Payload)
	if err != nil {
		return apperr.Validation(err.Error())
	}

	slotStart, slotEnd := disruptedSlot(startTime, endTime)

	row := s.db.QueryRow(ctx, `
		INSERT INTO event_signals (id, trip_id, type, severity, location, slot_start, slot_end, details, affected_items)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING received_at
	`, signal.ID, signal.TripID, signal.Type, signal.Payload["severity"], location, slotStart, slotEnd, payload, signal.AffectedItems)
	if err := row.Scan(&signal.ReceivedAt); err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

// disruptedSlot anchors the ingest's "HH:MM" window to the calendar day the
// signal was received on. IngestInput carries a trip-relative day index, not
// an absolute date, so this is an approximation of the affected window, not
// the exact trip day — good enough to order and size signals, not to rebind
// them to a specific trip date without a trip lookup.
func disruptedSlot(startTime, endTime string) (time.Time, time.Time) {
	now := time.Now()
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := base
	end := base
	if m, err := timegeo.ParseHHMM(startTime); err == nil {
		start = base.Add(time.Duration(m) * time.Minute)
	}
	if m, err := timegeo.ParseHHMM(endTime); err == nil {
		end = base.Add(time.Duration(m) * time.Minute)
	}
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end
}

func (s *Service) emitTrigger(ctx context.Context, signal planmodel.EventSignal, priority string) (planmodel.ReplanTrigger, error) {
	trigger := planmodel.ReplanTrigger{
		ID:            uuid.NewString(),
		TripID:        signal.TripID,
		EventSignalID: signal.ID,
		Status:        planmodel.TriggerPending,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO replan_triggers (id, trip_id, event_signal_id, reason, priority)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, trigger.ID, trigger.TripID, trigger.EventSignalID, string(signal.Type), priority)
	if err := row.Scan(&trigger.CreatedAt); err != nil {
		return planmodel.ReplanTrigger{}, apperr.StorageUnavailable(err.Error())
	}
	return trigger, nil
}
