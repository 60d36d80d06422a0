package trip

import (
	"context"
	"encoding/json"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/db"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/google/uuid"
)

// AllowedTransitions mirrors the booking state graph shape but for trip
// status: a linear lifecycle with one exit (cancelled) reachable from
// every non-terminal state.
var AllowedTransitions = map[planmodel.TripStatus][]planmodel.TripStatus{
	planmodel.TripDraft:     {planmodel.TripPlanning, planmodel.TripCancelled},
	planmodel.TripPlanning:  {planmodel.TripBooked, planmodel.TripCancelled},
	planmodel.TripBooked:    {planmodel.TripActive, planmodel.TripCancelled},
	planmodel.TripActive:    {planmodel.TripCompleted, planmodel.TripCancelled},
	planmodel.TripCompleted: {},
	planmodel.TripCancelled: {},
}

func CanTransition(from, to planmodel.TripStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	db db.Querier
}

func NewService(d db.Querier) *Service {
	return &Service{db: d}
}

func (s *Service) CreateTrip(ctx context.Context, input CreateTripInput) (Trip, error) {
	if input.OwnerID == "" || (input.OwnerKind != planmodel.OwnerUser && input.OwnerKind != planmodel.OwnerGuest) {
		return Trip{}, apperr.Validation("owner must be exactly one of user or guest")
	}
	if input.Destination == "" {
		return Trip{}, apperr.Validation("destination is required")
	}
	if input.Travelers.Adults < 1 {
		return Trip{}, apperr.Validation("at least one adult traveler is required")
	}

	trip := Trip{
		ID:        uuid.NewString(),
		OwnerKind: input.OwnerKind,
		OwnerID:   input.OwnerID,
		Status:    planmodel.TripDraft,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, owner_kind, owner_id, status)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at
	`, trip.ID, trip.OwnerKind, trip.OwnerID, trip.Status)
	if err := row.Scan(&trip.CreatedAt, &trip.UpdatedAt); err != nil {
		return Trip{}, apperr.StorageUnavailable(err.Error())
	}

	prefs := TripPreferences{
		TripID:      trip.ID,
		Destination: input.Destination,
		Dates:       input.Dates,
		Travelers:   input.Travelers,
		Budget:      input.Budget,
		Style:       input.Style,
		Window:      input.Window,
		Constraints: input.Constraints,
	}
	if err := s.savePreferences(ctx, prefs); err != nil {
		return Trip{}, err
	}

	if _, err := s.db.Exec(ctx, `INSERT INTO trip_sentinels (trip_id) VALUES ($1)`, trip.ID); err != nil {
		return Trip{}, apperr.StorageUnavailable(err.Error())
	}

	return trip, nil
}

func (s *Service) savePreferences(ctx context.Context, p TripPreferences) error {
	dates, err := json.Marshal(p.Dates)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	travelers, err := json.Marshal(p.Travelers)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	budget, err := json.Marshal(p.Budget)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	window, err := json.Marshal(p.Window)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	constraints, err := json.Marshal(p.Constraints)
	if err != nil {
		return apperr.Validation(err.Error())
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO trip_preferences (trip_id, destination, dates, travelers, budget, style, daily_window, constraints)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (trip_id) DO UPDATE SET
			destination=EXCLUDED.destination, dates=EXCLUDED.dates, travelers=EXCLUDED.travelers,
			budget=EXCLUDED.budget, style=EXCLUDED.style, daily_window=EXCLUDED.daily_window,
			constraints=EXCLUDED.constraints
	`, p.TripID, p.Destination, dates, travelers, budget, p.Style, window, constraints)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

func (s *Service) GetTrip(ctx context.Context, id string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_kind, owner_id, status, created_at, updated_at
		FROM trips WHERE id=$1
	`, id)
	var t Trip
	if err := row.Scan(&t.ID, &t.OwnerKind, &t.OwnerID, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Trip{}, apperr.NotFound("trip not found")
	}
	return t, nil
}

func (s *Service) GetPreferences(ctx context.Context, tripID string) (TripPreferences, error) {
	row := s.db.QueryRow(ctx, `
		SELECT trip_id, destination, dates, travelers, budget, style, daily_window, constraints
		FROM trip_preferences WHERE trip_id=$1
	`, tripID)
	var p TripPreferences
	var dates, travelers, budget, window, constraints []byte
	if err := row.Scan(&p.TripID, &p.Destination, &dates, &travelers, &budget, &p.Style, &window, &constraints); err != nil {
		return TripPreferences{}, apperr.NotFound("trip preferences not found")
	}
	if err := json.Unmarshal(dates, &p.Dates); err != nil {
		return TripPreferences{}, apperr.StorageUnavailable(err.Error())
	}
	if err := json.Unmarshal(travelers, &p.Travelers); err != nil {
		return TripPreferences{}, apperr.StorageUnavailable(err.Error())
	}
	if err := json.Unmarshal(budget, &p.Budget); err != nil {
		return TripPreferences{}, apperr.StorageUnavailable(err.Error())
	}
	if err := json.Unmarshal(window, &p.Window); err != nil {
		return TripPreferences{}, apperr.StorageUnavailable(err.Error())
	}
	if err := json.Unmarshal(constraints, &p.Constraints); err != nil {
		return TripPreferences{}, apperr.StorageUnavailable(err.Error())
	}
	return p, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, tripID string, patch TripPreferences) (TripPreferences, error) {
	if _, err := s.GetTrip(ctx, tripID); err != nil {
		return TripPreferences{}, err
	}
	patch.TripID = tripID
	if err := s.savePreferences(ctx, patch); err != nil {
		return TripPreferences{}, err
	}
	return patch, nil
}

func (s *Service) TransitionStatus(ctx context.Context, tripID string, to planmodel.TripStatus) (Trip, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return Trip{}, err
	}
	if !CanTransition(trip.Status, to) {
		return Trip{}, apperr.Conflict("illegal trip status transition")
	}
	row := s.db.QueryRow(ctx, `
		UPDATE trips SET status=$2, updated_at=now() WHERE id=$1
		RETURNING updated_at
	`, tripID, to)
	trip.Status = to
	if err := row.Scan(&trip.UpdatedAt); err != nil {
		return Trip{}, apperr.StorageUnavailable(err.Error())
	}
	return trip, nil
}

func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}
