package planmodel

import "time"

type BookingType string

const (
	BookingHotel     BookingType = "hotel"
	BookingActivity  BookingType = "activity"
	BookingTransport BookingType = "transport"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
	BookingCanceled  BookingStatus = "canceled"
	BookingRefunded  BookingStatus = "refunded"
)

// AllowedTransitions enumerates the legal next states for every booking
// status. pending and confirmed each have more than one way out; refunded
// is the only terminal state.
var AllowedTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingFailed, BookingCanceled},
	BookingConfirmed: {BookingCanceled, BookingRefunded},
	BookingFailed:    {BookingPending},
	BookingCanceled:  {BookingRefunded},
	BookingRefunded:  {},
}

func CanTransition(from, to BookingStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                string        `json:"id"`
	TripID            string        `json:"trip_id"`
	ItemID            string        `json:"item_id"`
	Type              BookingType   `json:"type"`
	Status            BookingStatus `json:"status"`
	ProviderName      string        `json:"provider_name"`
	ExternalBookingID string        `json:"external_booking_id,omitempty"`
	Price             Money         `json:"price"`
	IdempotencyKey    string        `json:"idempotency_key"`
	FailureReason     string        `json:"failure_reason,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type BookingStateHistory struct {
	ID        string        `json:"id"`
	BookingID string        `json:"booking_id"`
	From      BookingStatus `json:"from_status"`
	To        BookingStatus `json:"to_status"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// IdempotencyRecord caches the response produced for an idempotency key
// so a retried request with the same key replays the original result
// instead of creating a second booking.
type IdempotencyRecord struct {
	Key         string    `json:"key"`
	RequestHash string    `json:"request_hash"`
	BookingID   string    `json:"booking_id"`
	ResponseJSON string   `json:"response_json"`
	CreatedAt   time.Time `json:"created_at"`
}
