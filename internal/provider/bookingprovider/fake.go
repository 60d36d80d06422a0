package bookingprovider

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/google/uuid"
)

// FakeAdapter simulates a booking provider in-memory: every
// CreateBooking succeeds and confirms immediately unless FailNext is
// set, which fails exactly the next call. Used by tests and as the
// default adapter when no live provider is configured.
type FakeAdapter struct {
	mu       sync.Mutex
	name     string
	bookings map[string]planmodel.BookingStatus
	seen     map[string]CreateBookingResult
	FailNext bool
}

func NewFakeAdapter(name string) *FakeAdapter {
	return &FakeAdapter{
		name:     name,
		bookings: map[string]planmodel.BookingStatus{},
		seen:     map[string]CreateBookingResult{},
	}
}

func (a *FakeAdapter) Name() string { return a.name }

func (a *FakeAdapter) Search(_ context.Context, _ SearchOptions) ([]SearchItem, error) {
	return nil, nil
}

func (a *FakeAdapter) GetDetails(_ context.Context, id string) (Details, error) {
	return Details{SearchItem: SearchItem{ID: id}, Availability: true}, nil
}

func (a *FakeAdapter) CheckAvailability(_ context.Context, _, _ string, _ planmodel.Travelers) (Availability, error) {
	return Availability{Available: true}, nil
}

func (a *FakeAdapter) CreateBooking(_ context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if result, ok := a.seen[in.IdempotencyKey]; ok {
		return result, nil
	}

	if a.FailNext {
		a.FailNext = false
		return CreateBookingResult{}, apperr.ProviderError(false, "provider declined booking")
	}

	result := CreateBookingResult{
		BookingID:          uuid.NewString(),
		Status:             planmodel.BookingConfirmed,
		ConfirmationNumber: "CONF-" + uuid.NewString()[:8],
		Policies:           Policies{Cancellation: "flexible", Refund: "full_until_deadline"},
	}
	a.seen[in.IdempotencyKey] = result
	a.bookings[result.BookingID] = planmodel.BookingConfirmed
	return result, nil
}

func (a *FakeAdapter) GetBookingStatus(_ context.Context, bookingID string) (planmodel.BookingStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status, ok := a.bookings[bookingID]
	if !ok {
		return "", apperr.NotFound("booking not found at provider")
	}
	return status, nil
}

func (a *FakeAdapter) CancelBooking(_ context.Context, bookingID string) (CancelResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.bookings[bookingID]; !ok {
		return CancelResult{}, apperr.NotFound("booking not found at provider")
	}
	a.bookings[bookingID] = planmodel.BookingCanceled
	return CancelResult{BookingID: bookingID, RefundStatus: RefundFull}, nil
}

func (a *FakeAdapter) HandleWebhook(_ context.Context, payload []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return WebhookEvent{}, apperr.Validation(err.Error())
	}
	return event, nil
}

func (a *FakeAdapter) HealthCheck(_ context.Context) bool { return true }
