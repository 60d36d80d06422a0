package replan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/db"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
	"github.com/Sakeerin/GoBuddy/internal/provider/routing"

	"github.com/jackc/pgx/v5"
)

// PreferencesSource supplies a trip's preferences without replan needing
// to import the trip package. *trip.Service satisfies this directly.
type PreferencesSource interface {
	GetPreferences(ctx context.Context, tripID string) (planmodel.TripPreferences, error)
}

// Broadcaster pushes a replan-status event to everyone subscribed to a
// trip's live updates. *stream.Hub satisfies this directly.
type Broadcaster interface {
	Broadcast(tripID string, payload []byte)
}

type Service struct {
	db             db.Querier
	store          *itinerary.Store
	pois           poi.Catalog
	routing        routing.Provider
	prefs          PreferencesSource
	stream         Broadcaster
	maxProposals   int
	rollbackWindow time.Duration
}

func NewService(d db.Querier, store *itinerary.Store, catalog poi.Catalog, router routing.Provider, prefs PreferencesSource) *Service {
	return &Service{
		db: d, store: store, pois: catalog, routing: router, prefs: prefs,
		maxProposals:   defaultMaxProposals,
		rollbackWindow: defaultRollbackWindow,
	}
}

// WithLimits overrides the default proposal cap and rollback window with
// configured values. A Service that never calls this keeps the built-in
// defaults, same as before config wiring existed.
func (s *Service) WithLimits(maxProposals int, rollbackWindow time.Duration) *Service {
	if maxProposals > 0 {
		s.maxProposals = maxProposals
	}
	if rollbackWindow > 0 {
		s.rollbackWindow = rollbackWindow
	}
	return s
}

// WithStream attaches a Broadcaster that Propose/Apply/Rollback will
// notify after a successful change. Optional: a Service without one
// behaves exactly as before.
func (s *Service) WithStream(b Broadcaster) *Service {
	s.stream = b
	return s
}

func (s *Service) notify(tripID, eventType string, payload any) {
	if s.stream == nil {
		return
	}
	body, err := json.Marshal(map[string]any{"type": eventType, "data": payload})
	if err != nil {
		return
	}
	s.stream.Broadcast(tripID, body)
}

// ProposeForTrigger loads the trigger's signal, the trip's current items,
// and its preferences, then runs Propose against that context.
func (s *Service) ProposeForTrigger(ctx context.Context, triggerID string, maxProposals int) ([]planmodel.ReplanProposal, error) {
	trigger, signal, err := s.loadTriggerAndSignal(ctx, triggerID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Items(ctx, trigger.TripID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.prefs.GetPreferences(ctx, trigger.TripID)
	if err != nil {
		return nil, err
	}
	return s.Propose(ctx, TriggerContext{Trigger: trigger, Signal: signal, Items: items, Prefs: prefs}, maxProposals)
}

func (s *Service) loadTriggerAndSignal(ctx context.Context, triggerID string) (planmodel.ReplanTrigger, planmodel.EventSignal, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, event_signal_id, created_at FROM replan_triggers WHERE id=$1
	`, triggerID)
	var t planmodel.ReplanTrigger
	if err := row.Scan(&t.ID, &t.TripID, &t.EventSignalID, &t.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return planmodel.ReplanTrigger{}, planmodel.EventSignal{}, apperr.NotFound("trigger not found")
		}
		return planmodel.ReplanTrigger{}, planmodel.EventSignal{}, apperr.StorageUnavailable(err.Error())
	}
	t.Status = planmodel.TriggerProposed

	sigRow := s.db.QueryRow(ctx, `
		SELECT id, trip_id, type, location, affected_items, received_at FROM event_signals WHERE id=$1
	`, t.EventSignalID)
	var sig planmodel.EventSignal
	var location []byte
	if err := sigRow.Scan(&sig.ID, &sig.TripID, &sig.Type, &location, &sig.AffectedItems, &sig.ReceivedAt); err != nil {
		if err == pgx.ErrNoRows {
			return planmodel.ReplanTrigger{}, planmodel.EventSignal{}, apperr.NotFound("event signal not found")
		}
		return planmodel.ReplanTrigger{}, planmodel.EventSignal{}, apperr.StorageUnavailable(err.Error())
	}
	if len(location) > 0 {
		_ = json.Unmarshal(location, &sig.Location)
	}
	return t, sig, nil
}

func (s *Service) persistProposal(ctx context.Context, p planmodel.ReplanProposal) (planmodel.ReplanProposal, error) {
	changes, err := json.Marshal(p.Changes)
	if err != nil {
		return planmodel.ReplanProposal{}, apperr.Validation(err.Error())
	}
	impact, err := json.Marshal(p.Impact)
	if err != nil {
		return planmodel.ReplanProposal{}, apperr.Validation(err.Error())
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO replan_proposals (id, trip_id, trigger_id, score, explanation, changes, impact)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, p.ID, p.TripID, p.TriggerID, p.Score, p.Description, changes, impact)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return planmodel.ReplanProposal{}, apperr.StorageUnavailable(err.Error())
	}
	return p, nil
}

// GetProposal loads one persisted proposal by id.
func (s *Service) GetProposal(ctx context.Context, id string) (planmodel.ReplanProposal, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, trigger_id, score, explanation, changes, impact, created_at
		FROM replan_proposals WHERE id=$1
	`, id)
	return scanProposal(row)
}

func scanProposal(row pgx.Row) (planmodel.ReplanProposal, error) {
	var p planmodel.ReplanProposal
	var changes, impact []byte
	if err := row.Scan(&p.ID, &p.TripID, &p.TriggerID, &p.Score, &p.Description, &changes, &impact, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return planmodel.ReplanProposal{}, apperr.NotFound("proposal not found")
		}
		return planmodel.ReplanProposal{}, apperr.StorageUnavailable(err.Error())
	}
	if err := json.Unmarshal(changes, &p.Changes); err != nil {
		return planmodel.ReplanProposal{}, apperr.StorageUnavailable(err.Error())
	}
	if err := json.Unmarshal(impact, &p.Impact); err != nil {
		return planmodel.ReplanProposal{}, apperr.StorageUnavailable(err.Error())
	}
	return p, nil
}

