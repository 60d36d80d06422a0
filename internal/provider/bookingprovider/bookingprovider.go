// Package bookingprovider defines the external booking provider
// adapter interface the orchestrator dispatches to, and a registry for
// looking adapters up by provider id.
package bookingprovider

import (
	"context"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/planmodel"
)

type SearchOptions struct {
	Location  *planmodel.Location
	Date      string
	Travelers planmodel.Travelers
}

type SearchItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Location    *planmodel.Location `json:"location,omitempty"`
	Price       planmodel.Money `json:"price"`
	Rating      *float64        `json:"rating,omitempty"`
}

type Details struct {
	SearchItem
	Availability bool       `json:"availability"`
	Policies     Policies   `json:"policies"`
}

type Slot struct {
	Time      string   `json:"time"`
	Available bool     `json:"available"`
	Price     *float64 `json:"price,omitempty"`
}

type Availability struct {
	Available bool   `json:"available"`
	Slots     []Slot `json:"slots,omitempty"`
}

type Policies struct {
	Cancellation        string     `json:"cancellation"`
	Refund              string     `json:"refund"`
	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`
}

type CreateBookingInput struct {
	ProviderItemID string
	Date           string
	TimeSlot       string
	Travelers      planmodel.Travelers
	ContactInfo    map[string]any
	IdempotencyKey string
}

type CreateBookingResult struct {
	BookingID          string
	Status             planmodel.BookingStatus
	Price              planmodel.Money
	Policies           Policies
	VoucherURL         string
	VoucherData        map[string]any
	ConfirmationNumber string
	ExpiresAt          *time.Time
}

type RefundStatus string

const (
	RefundFull    RefundStatus = "full"
	RefundPartial RefundStatus = "partial"
	RefundNone    RefundStatus = "none"
)

type CancelResult struct {
	BookingID    string
	RefundAmount *float64
	RefundStatus RefundStatus
}

type WebhookEventType string

const (
	WebhookBookingConfirmed     WebhookEventType = "booking_confirmed"
	WebhookBookingCanceled      WebhookEventType = "booking_canceled"
	WebhookPriceChanged         WebhookEventType = "price_changed"
	WebhookAvailabilityChanged  WebhookEventType = "availability_changed"
)

type WebhookEvent struct {
	EventType         WebhookEventType
	ProviderBookingID string
	Timestamp         time.Time
	Payload           map[string]any
}

// Adapter is the neutral interface every concrete provider integration
// implements. createBooking MUST be idempotent on IdempotencyKey.
type Adapter interface {
	Name() string
	Search(ctx context.Context, opts SearchOptions) ([]SearchItem, error)
	GetDetails(ctx context.Context, id string) (Details, error)
	CheckAvailability(ctx context.Context, id, date string, travelers planmodel.Travelers) (Availability, error)
	CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error)
	GetBookingStatus(ctx context.Context, bookingID string) (planmodel.BookingStatus, error)
	CancelBooking(ctx context.Context, bookingID string) (CancelResult, error)
	HandleWebhook(ctx context.Context, payload []byte) (WebhookEvent, error)
	HealthCheck(ctx context.Context) bool
}

// Registry looks adapters up by provider id; Get does no fallback, and
// Others lists the remaining adapters in registration order.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

func (r *Registry) Register(providerID string, a Adapter) {
	if _, exists := r.adapters[providerID]; !exists {
		r.order = append(r.order, providerID)
	}
	r.adapters[providerID] = a
}

func (r *Registry) Get(providerID string) (Adapter, bool) {
	a, ok := r.adapters[providerID]
	return a, ok
}

// Others returns every registered adapter except providerID, in
// registration order, for alternative-provider fallback.
func (r *Registry) Others(providerID string) []Adapter {
	var out []Adapter
	for _, id := range r.order {
		if id == providerID {
			continue
		}
		out = append(out, r.adapters[id])
	}
	return out
}
