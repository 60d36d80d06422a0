package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/pashagolub/pgxmock/v3"
)

func validInput() CreateTripInput {
	return CreateTripInput{
		OwnerKind:   planmodel.OwnerUser,
		OwnerID:     "user-1",
		Destination: "Kyoto",
		Dates:       DateRange{Start: "2026-09-01", End: "2026-09-04"},
		Travelers:   Travelers{Adults: 2},
		Window:      DailyWindow{Start: "09:00", End: "21:00"},
	}
}

func TestCreateTripOwnerXOR(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	svc := NewService(mock)

	input := validInput()
	input.OwnerKind = planmodel.OwnerUser
	input.OwnerID = ""
	if _, err := svc.CreateTrip(context.Background(), input); err == nil {
		t.Fatalf("expected owner XOR validation error")
	}

	input = validInput()
	input.OwnerKind = ""
	input.OwnerID = "guest-1"
	if _, err := svc.CreateTrip(context.Background(), input); err == nil {
		t.Fatalf("expected owner XOR validation error when the owner kind is neither user nor guest")
	}
}

func TestCreateTripSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()

	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(pgxmock.AnyArg(), planmodel.OwnerUser, "user-1", planmodel.TripDraft).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	mock.ExpectExec(`INSERT INTO trip_preferences`).
		WithArgs(pgxmock.AnyArg(), "Kyoto", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec(`INSERT INTO trip_sentinels`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	trip, err := svc.CreateTrip(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if trip.Status != planmodel.TripDraft {
		t.Fatalf("expected draft status, got %s", trip.Status)
	}
	if trip.OwnerID != "user-1" {
		t.Fatalf("unexpected owner id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTripRequiresAdult(t *testing.T) {
	mock, _ := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	defer mock.Close()

	svc := NewService(mock)
	input := validInput()
	input.Travelers.Adults = 0
	if _, err := svc.CreateTrip(context.Background(), input); err == nil {
		t.Fatalf("expected validation error for zero adults")
	}
}

func TestGetTripNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, owner_kind, owner_id, status, created_at, updated_at`).
		WithArgs("missing").
		WillReturnError(errQuery)

	svc := NewService(mock)
	_, err = svc.GetTrip(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeNotFound {
		t.Fatalf("expected NotFound apperr, got %v", err)
	}
}

func TestTransitionStatusIllegal(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, owner_kind, owner_id, status, created_at, updated_at`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_kind", "owner_id", "status", "created_at", "updated_at"}).
			AddRow("trip-1", planmodel.OwnerUser, "user-1", planmodel.TripCompleted, now, now))

	svc := NewService(mock)
	_, err = svc.TransitionStatus(context.Background(), "trip-1", planmodel.TripActive)
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeConflict {
		t.Fatalf("expected Conflict apperr, got %v", err)
	}
}

func TestTransitionStatusSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, owner_kind, owner_id, status, created_at, updated_at`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_kind", "owner_id", "status", "created_at", "updated_at"}).
			AddRow("trip-1", planmodel.OwnerUser, "user-1", planmodel.TripDraft, now, now))

	mock.ExpectQuery(`UPDATE trips SET status`).
		WithArgs("trip-1", planmodel.TripPlanning).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

	svc := NewService(mock)
	trip, err := svc.TransitionStatus(context.Background(), "trip-1", planmodel.TripPlanning)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if trip.Status != planmodel.TripPlanning {
		t.Fatalf("expected planning status")
	}
}

func TestDeleteTripError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM trips`).WithArgs("trip-1").WillReturnError(errQuery)

	svc := NewService(mock)
	if err := svc.DeleteTrip(context.Background(), "trip-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetPreferencesRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT trip_id, destination, dates, travelers, budget, style, daily_window, constraints`).
		WithArgs("trip-1").
		WillReturnRows(pgxmock.NewRows([]string{"trip_id", "destination", "dates", "travelers", "budget", "style", "daily_window", "constraints"}).
			AddRow("trip-1", "Kyoto", []byte(`{"start":"2026-09-01","end":"2026-09-04"}`), []byte(`{"adults":2,"children":0,"seniors":0}`), []byte(`{}`), "relaxed", []byte(`{"start":"09:00","end":"21:00"}`), []byte(`{}`)))

	svc := NewService(mock)
	prefs, err := svc.GetPreferences(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if prefs.Destination != "Kyoto" || prefs.Travelers.Adults != 2 {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(planmodel.TripDraft, planmodel.TripPlanning) {
		t.Fatalf("expected draft->planning to be legal")
	}
	if CanTransition(planmodel.TripCompleted, planmodel.TripActive) {
		t.Fatalf("expected completed->active to be illegal")
	}
}

var errQuery = errors.New("query error")
