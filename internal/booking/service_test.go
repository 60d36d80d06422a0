package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/bookingprovider"

	"github.com/pashagolub/pgxmock/v3"
)

func newRegistry(adapters ...bookingprovider.Adapter) *bookingprovider.Registry {
	reg := bookingprovider.NewRegistry()
	for _, a := range adapters {
		reg.Register(a.Name(), a)
	}
	return reg
}

func TestCreateBookingConfirms(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT booking_id FROM booking_idempotency`).
		WithArgs("idem-1").
		WillReturnError(errQuery)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), "trip-1", "item-1", "fake", planmodel.BookingHotel, planmodel.BookingPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO booking_state_history`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO booking_idempotency`).
		WithArgs("idem-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectExec(`UPDATE bookings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO booking_state_history`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`SELECT id, trip_id, item_id, provider_id, provider_type, status, external_booking_id`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "trip_id", "item_id", "provider_id", "provider_type", "status", "external_booking_id",
			"price", "failure_reason", "created_at", "updated_at",
		}).AddRow("booking-1", "trip-1", strPtr("item-1"), "fake", planmodel.BookingHotel, planmodel.BookingConfirmed, strPtr("ext-1"),
			[]byte(`{}`), nil, now, now))

	adapter := bookingprovider.NewFakeAdapter("fake")
	svc := NewService(mock, nil, newRegistry(adapter))

	b, err := svc.Create(context.Background(), CreateInput{
		TripID: "trip-1", ItemID: "item-1", Type: planmodel.BookingHotel,
		ProviderName: "fake", ProviderItemID: "poi-1", Date: "2026-09-01",
		IdempotencyKey: "idem-1",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if b.Status != planmodel.BookingConfirmed {
		t.Fatalf("expected confirmed status, got %s", b.Status)
	}
}

// TestCreateBookingRollsBackOnIdempotencyWriteFailure verifies the pending
// booking, its history row, and its idempotency record are one atomic unit:
// a failure writing the idempotency record rolls back the booking insert
// too, rather than leaving a pending booking with no idempotency record.
func TestCreateBookingRollsBackOnIdempotencyWriteFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT booking_id FROM booking_idempotency`).
		WithArgs("idem-3").
		WillReturnError(errQuery)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), "trip-1", "item-1", "fake", planmodel.BookingHotel, planmodel.BookingPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO booking_state_history`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO booking_idempotency`).
		WithArgs("idem-3", pgxmock.AnyArg()).
		WillReturnError(errQuery)
	mock.ExpectRollback()

	svc := NewService(mock, nil, newRegistry(bookingprovider.NewFakeAdapter("fake")))
	_, err = svc.Create(context.Background(), CreateInput{
		TripID: "trip-1", ItemID: "item-1", Type: planmodel.BookingHotel,
		ProviderName: "fake", ProviderItemID: "poi-1", Date: "2026-09-01",
		IdempotencyKey: "idem-3",
	})
	if err == nil {
		t.Fatalf("expected create to fail")
	}
}

func TestCreateBookingRequiresIdempotencyKey(t *testing.T) {
	svc := NewService(nil, nil, bookingprovider.NewRegistry())
	if _, err := svc.Create(context.Background(), CreateInput{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCreateBookingIdempotentReplay(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT booking_id FROM booking_idempotency`).
		WithArgs("idem-2").
		WillReturnRows(pgxmock.NewRows([]string{"booking_id"}).AddRow("booking-existing"))

	mock.ExpectQuery(`SELECT id, trip_id, item_id, provider_id, provider_type, status, external_booking_id`).
		WithArgs("booking-existing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "trip_id", "item_id", "provider_id", "provider_type", "status", "external_booking_id",
			"price", "failure_reason", "created_at", "updated_at",
		}).AddRow("booking-existing", "trip-1", strPtr("item-1"), "fake", planmodel.BookingHotel, planmodel.BookingConfirmed, strPtr("ext-1"),
			[]byte(`{}`), nil, now, now))

	svc := NewService(mock, nil, newRegistry(bookingprovider.NewFakeAdapter("fake")))
	b, err := svc.Create(context.Background(), CreateInput{ProviderName: "fake", IdempotencyKey: "idem-2"})
	if err != nil {
		t.Fatalf("expected replay to succeed: %v", err)
	}
	if b.ID != "booking-existing" {
		t.Fatalf("expected original booking returned, got %s", b.ID)
	}
}

func TestCancelOnlyFromConfirmed(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, trip_id, item_id, provider_id, provider_type, status, external_booking_id`).
		WithArgs("booking-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "trip_id", "item_id", "provider_id", "provider_type", "status", "external_booking_id",
			"price", "failure_reason", "created_at", "updated_at",
		}).AddRow("booking-1", "trip-1", strPtr("item-1"), "fake", planmodel.BookingHotel, planmodel.BookingPending, nil,
			[]byte(`{}`), nil, now, now))

	svc := NewService(mock, nil, newRegistry(bookingprovider.NewFakeAdapter("fake")))
	_, err = svc.Cancel(context.Background(), "booking-1")
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeConflict {
		t.Fatalf("expected Conflict apperr, got %v", err)
	}
}

var errQuery = errors.New("query error")

// strPtr builds the *string row value for a nullable text column, which
// Get scans into a *string.
func strPtr(s string) *string { return &s }
