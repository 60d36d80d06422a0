// Package booking implements the booking orchestrator: a state machine
// over {pending, confirmed, failed, canceled, refunded} with
// idempotency, provider dispatch, retry, cancellation, and webhook
// ingestion.
package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/db"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/bookingprovider"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Service struct {
	db        db.TxPool
	redis     *redis.Client
	providers *bookingprovider.Registry
}

func NewService(d db.TxPool, redisClient *redis.Client, providers *bookingprovider.Registry) *Service {
	return &Service{db: d, redis: redisClient, providers: providers}
}

type CreateInput struct {
	TripID         string
	ItemID         string
	Type           planmodel.BookingType
	ProviderName   string
	ProviderItemID string
	Date           string
	TimeSlot       string
	Travelers      planmodel.Travelers
	ContactInfo    map[string]any
	IdempotencyKey string
}

// Create looks up the idempotency key first; a replayed request with a
// key already seen returns the original booking without touching the
// provider again.
func (s *Service) Create(ctx context.Context, in CreateInput) (planmodel.Booking, error) {
	if in.IdempotencyKey == "" {
		return planmodel.Booking{}, apperr.Validation("idempotency_key is required")
	}

	if existing, ok, err := s.lookupIdempotency(ctx, in.IdempotencyKey); err != nil {
		return planmodel.Booking{}, err
	} else if ok {
		return s.Get(ctx, existing)
	}

	provider, ok := s.providers.Get(in.ProviderName)
	if !ok {
		return planmodel.Booking{}, apperr.Validation("unknown provider: " + in.ProviderName)
	}

	bookingID := uuid.NewString()
	created, err := s.createPending(ctx, bookingID, in)
	if err != nil {
		return planmodel.Booking{}, err
	}

	return s.dispatch(ctx, created, provider, in.ProviderItemID, in.Date, in.TimeSlot, in.Travelers, in.ContactInfo, in.IdempotencyKey)
}

// createPending inserts the pending booking, its initial history row, and
// its idempotency record as one atomic unit, so a crash between steps can
// never leave a pending booking with no matching IdempotencyRecord.
func (s *Service) createPending(ctx context.Context, id string, in CreateInput) (planmodel.Booking, error) {
	b := planmodel.Booking{
		ID:             id,
		TripID:         in.TripID,
		ItemID:         in.ItemID,
		Type:           in.Type,
		Status:         planmodel.BookingPending,
		ProviderName:   in.ProviderName,
		IdempotencyKey: in.IdempotencyKey,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return planmodel.Booking{}, apperr.StorageUnavailable(err.Error())
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, trip_id, item_id, provider_id, provider_type, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, b.ID, b.TripID, b.ItemID, b.ProviderName, b.Type, b.Status)
	if err := row.Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return planmodel.Booking{}, apperr.StorageUnavailable(err.Error())
	}
	if err := s.appendHistory(ctx, tx, b.ID, "", planmodel.BookingPending, ""); err != nil {
		return planmodel.Booking{}, err
	}
	if err := s.rememberIdempotency(ctx, tx, in.IdempotencyKey, b.ID); err != nil {
		return planmodel.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return planmodel.Booking{}, apperr.StorageUnavailable(err.Error())
	}
	return b, nil
}

// dispatch calls the provider outside any transaction so a slow network
// call never holds a database lock.
func (s *Service) dispatch(ctx context.Context, b planmodel.Booking, provider bookingprovider.Adapter, providerItemID, date, timeSlot string, travelers planmodel.Travelers, contact map[string]any, idempotencyKey string) (planmodel.Booking, error) {
	result, err := provider.CreateBooking(ctx, bookingprovider.CreateBookingInput{
		ProviderItemID: providerItemID,
		Date:           date,
		TimeSlot:       timeSlot,
		Travelers:      travelers,
		ContactInfo:    contact,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		reason := err.Error()
		if e, ok := apperr.As(err); ok {
			reason = e.Message
		}
		return s.transition(ctx, b.ID, planmodel.BookingPending, planmodel.BookingFailed, reason, nil)
	}

	status := planmodel.BookingConfirmed
	if result.Status == planmodel.BookingPending {
		status = planmodel.BookingPending
	}
	return s.transition(ctx, b.ID, planmodel.BookingPending, status, "", &result)
}

func (s *Service) transition(ctx context.Context, bookingID string, from, to planmodel.BookingStatus, reason string, result *bookingprovider.CreateBookingResult) (planmodel.Booking, error) {
	if !planmodel.CanTransition(from, to) && from != to {
		return planmodel.Booking{}, apperr.Validation("illegal booking status transition")
	}

	if result != nil {
		policies, err := json.Marshal(result.Policies)
		if err != nil {
			return planmodel.Booking{}, apperr.StorageUnavailable(err.Error())
		}
		_, err = s.db.Exec(ctx, `
			UPDATE bookings
			SET status=$2, external_booking_id=$3, price=$4, policies=$5, voucher_url=$6,
			    confirmation_number=$7, updated_at=now()
			WHERE id=$1
		`, bookingID, to, result.BookingID, moneyJSON(result.Price), policies, result.VoucherURL, result.ConfirmationNumber)
		if err != nil {
			return planmodel.Booking{}, apperr.StorageUnavailable(err.Error())
		}
	} else {
		_, err := s.db.Exec(ctx, `
			UPDATE bookings SET status=$2, failure_reason=$3, updated_at=now() WHERE id=$1
		`, bookingID, to, reason)
		if err != nil {
			return planmodel.Booking{}, apperr.StorageUnavailable(err.Error())
		}
	}

	if err := s.appendHistory(ctx, s.db, bookingID, from, to, reason); err != nil {
		return planmodel.Booking{}, err
	}
	return s.Get(ctx, bookingID)
}

func moneyJSON(m planmodel.Money) []byte {
	b, _ := json.Marshal(m)
	return b
}

func (s *Service) appendHistory(ctx context.Context, q db.Querier, bookingID string, from, to planmodel.BookingStatus, reason string) error {
	var fromArg any
	if from != "" {
		fromArg = from
	}
	_, err := q.Exec(ctx, `
		INSERT INTO booking_state_history (booking_id, from_status, to_status, reason)
		VALUES ($1,$2,$3,$4)
	`, bookingID, fromArg, to, nullableReason(reason))
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

func nullableReason(r string) any {
	if r == "" {
		return nil
	}
	return r
}

func (s *Service) Get(ctx context.Context, id string) (planmodel.Booking, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, item_id, provider_id, provider_type, status, external_booking_id,
		       price, failure_reason, created_at, updated_at
		FROM bookings WHERE id=$1
	`, id)
	var b planmodel.Booking
	var itemID, externalID, failureReason *string
	var price []byte
	if err := row.Scan(&b.ID, &b.TripID, &itemID, &b.ProviderName, &b.Type, &b.Status, &externalID,
		&price, &failureReason, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return planmodel.Booking{}, apperr.NotFound("booking not found")
	}
	if itemID != nil {
		b.ItemID = *itemID
	}
	if externalID != nil {
		b.ExternalBookingID = *externalID
	}
	if failureReason != nil {
		b.FailureReason = *failureReason
	}
	if len(price) > 0 {
		_ = json.Unmarshal(price, &b.Price)
	}
	return b, nil
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (planmodel.Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT id FROM bookings WHERE external_booking_id=$1`, externalID)
	var id string
	if err := row.Scan(&id); err != nil {
		return planmodel.Booking{}, apperr.NotFound("booking not found for external id")
	}
	return s.Get(ctx, id)
}

// Retry is only permitted from failed; it generates a fresh idempotency
// key because the provider call is not shared with the prior attempt.
func (s *Service) Retry(ctx context.Context, bookingID string, in CreateInput) (planmodel.Booking, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return planmodel.Booking{}, err
	}
	if b.Status != planmodel.BookingFailed {
		return planmodel.Booking{}, apperr.Conflict("retry only permitted from failed")
	}

	provider, ok := s.providers.Get(b.ProviderName)
	if !ok {
		return planmodel.Booking{}, apperr.Validation("unknown provider: " + b.ProviderName)
	}

	freshKey := uuid.NewString()
	if _, err := s.transition(ctx, bookingID, planmodel.BookingFailed, planmodel.BookingPending, "", nil); err != nil {
		return planmodel.Booking{}, err
	}
	b.Status = planmodel.BookingPending

	return s.dispatch(ctx, b, provider, in.ProviderItemID, in.Date, in.TimeSlot, in.Travelers, in.ContactInfo, freshKey)
}

// Cancel is only permitted from confirmed.
func (s *Service) Cancel(ctx context.Context, bookingID string) (planmodel.Booking, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return planmodel.Booking{}, err
	}
	if b.Status != planmodel.BookingConfirmed {
		return planmodel.Booking{}, apperr.Conflict("cancel only permitted from confirmed")
	}

	provider, ok := s.providers.Get(b.ProviderName)
	if !ok {
		return planmodel.Booking{}, apperr.Validation("unknown provider: " + b.ProviderName)
	}
	if _, err := provider.CancelBooking(ctx, b.ExternalBookingID); err != nil {
		return planmodel.Booking{}, apperr.BookingFailed(err.Error())
	}

	return s.transition(ctx, bookingID, planmodel.BookingConfirmed, planmodel.BookingCanceled, "", nil)
}

// HandleWebhook applies the transition implied by a provider webhook
// event, located by external_booking_id.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, payload []byte) (planmodel.Booking, error) {
	provider, ok := s.providers.Get(providerName)
	if !ok {
		return planmodel.Booking{}, apperr.Validation("unknown provider: " + providerName)
	}
	event, err := provider.HandleWebhook(ctx, payload)
	if err != nil {
		return planmodel.Booking{}, err
	}

	b, err := s.GetByExternalID(ctx, event.ProviderBookingID)
	if err != nil {
		return planmodel.Booking{}, err
	}

	var to planmodel.BookingStatus
	switch event.EventType {
	case bookingprovider.WebhookBookingConfirmed:
		to = planmodel.BookingConfirmed
	case bookingprovider.WebhookBookingCanceled:
		to = planmodel.BookingCanceled
	default:
		return b, nil
	}

	return s.transition(ctx, b.ID, b.Status, to, "webhook: "+string(event.EventType), nil)
}

func (s *Service) lookupIdempotency(ctx context.Context, key string) (string, bool, error) {
	if s.redis != nil {
		if id, err := s.redis.Get(ctx, idemCacheKey(key)).Result(); err == nil {
			return id, true, nil
		}
	}

	row := s.db.QueryRow(ctx, `SELECT booking_id FROM booking_idempotency WHERE key=$1`, key)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", false, nil
	}
	return id, true, nil
}

func (s *Service) rememberIdempotency(ctx context.Context, q db.Querier, key, bookingID string) error {
	_, err := q.Exec(ctx, `INSERT INTO booking_idempotency (key, booking_id) VALUES ($1,$2)`, key, bookingID)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	if s.redis != nil {
		s.redis.Set(ctx, idemCacheKey(key), bookingID, 24*time.Hour)
	}
	return nil
}

func idemCacheKey(key string) string { return "booking:idem:" + key }
