package replan

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Apply applies one proposal's changes to the live itinerary inside a
// single transactional scope, enforcing idempotency on idempotencyKey per
// the booking orchestrator's pattern: a replay with the same key returns
// the original application, a reused key against a different proposal is
// a CONFLICT.
func (s *Service) Apply(ctx context.Context, proposalID, idempotencyKey string) (planmodel.ReplanApplication, error) {
	if idempotencyKey == "" {
		return planmodel.ReplanApplication{}, apperr.Validation("idempotency_key is required")
	}

	existing, err := s.lookupApplication(ctx, idempotencyKey)
	if err != nil {
		return planmodel.ReplanApplication{}, err
	}
	if existing != nil {
		if existing.ProposalID != proposalID {
			return planmodel.ReplanApplication{}, apperr.Conflict("idempotency key already used for a different proposal")
		}
		return *existing, nil
	}

	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return planmodel.ReplanApplication{}, err
	}

	var application planmodel.ReplanApplication
	err = s.store.InTransaction(ctx, proposal.TripID, func(ctx context.Context, tx pgx.Tx) error {
		items, err := itinerary.ItemsTx(ctx, tx, proposal.TripID)
		if err != nil {
			return err
		}
		v, err := itinerary.CurrentVersionTx(ctx, tx, proposal.TripID)
		if err != nil {
			return err
		}

		if _, err := itinerary.InsertVersionTx(ctx, tx, planmodel.ItineraryVersion{
			ID:         uuid.NewString(),
			TripID:     proposal.TripID,
			Version:    v,
			ChangeType: planmodel.ChangeReplan,
			Snapshot:   itinerary.Snapshot(items),
			Diff:       &planmodel.VersionDiff{Operation: "replan_pre_state", ItemIDs: proposal.AffectedItems},
		}); err != nil {
			return err
		}

		touchedDays, err := applyChanges(ctx, tx, proposal.Changes)
		if err != nil {
			return err
		}
		if err := renumberDays(ctx, tx, proposal.TripID, touchedDays); err != nil {
			return err
		}

		next := v + 1
		if err := itinerary.SetVersionTx(ctx, tx, proposal.TripID, next); err != nil {
			return err
		}

		now := time.Now()
		application = planmodel.ReplanApplication{
			ID:               uuid.NewString(),
			TripID:           proposal.TripID,
			ProposalID:       proposal.ID,
			IdempotencyKey:   idempotencyKey,
			PreviousVersion:  v,
			AppliedVersion:   next,
			Status:           planmodel.ApplyApplied,
			AppliedAt:        now,
			RollbackDeadline: now.Add(s.rollbackWindow),
		}
		if err := insertApplicationTx(ctx, tx, application); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE replan_triggers SET processed=true WHERE id=$1`, proposal.TriggerID); err != nil {
			return apperr.StorageUnavailable(err.Error())
		}
		return nil
	})
	if err != nil {
		return planmodel.ReplanApplication{}, err
	}

	for _, warning := range s.validateAppliedItinerary(ctx, proposal.TripID) {
		log.Printf("replan apply %s: warning: %s", application.ID, warning)
	}
	s.notify(proposal.TripID, "replan.applied", application)
	return application, nil
}

// applyChanges performs the delete/insert/move operations for one
// proposal and returns the set of days touched, for renumbering.
func applyChanges(ctx context.Context, tx pgx.Tx, changes planmodel.ReplanChanges) (map[int]bool, error) {
	touched := map[int]bool{}

	for _, id := range changes.RemovedItems {
		item, err := findItemTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := itinerary.DeleteItemTx(ctx, tx, id); err != nil {
			return nil, err
		}
		touched[item.Day] = true
	}

	for _, r := range changes.ReplacedItems {
		old, err := findItemTx(ctx, tx, r.OldItemID)
		if err != nil {
			return nil, err
		}
		if err := itinerary.DeleteItemTx(ctx, tx, r.OldItemID); err != nil {
			return nil, err
		}
		if _, err := itinerary.InsertItemTx(ctx, tx, r.NewItem); err != nil {
			return nil, err
		}
		touched[old.Day] = true
		touched[r.NewItem.Day] = true
	}

	for _, item := range changes.AddedItems {
		if _, err := itinerary.InsertItemTx(ctx, tx, item); err != nil {
			return nil, err
		}
		touched[item.Day] = true
	}

	for _, m := range changes.MovedItems {
		item, err := findItemTx(ctx, tx, m.ItemID)
		if err != nil {
			return nil, err
		}
		oldDay := item.Day
		item.Day = m.NewDay
		item.StartTime = m.StartTime
		item.EndTime = m.EndTime
		if err := itinerary.UpdateItemTx(ctx, tx, item); err != nil {
			return nil, err
		}
		touched[oldDay] = true
		touched[m.NewDay] = true
	}

	return touched, nil
}

func findItemTx(ctx context.Context, tx pgx.Tx, id string) (planmodel.ItineraryItem, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, trip_id, day, item_type, poi_id, name, location, start_time, end_time,
		       duration_minutes, is_pinned, "order", route_from_previous, cost_estimate, notes
		FROM itinerary_items WHERE id=$1
	`, id)
	return itinerary.ScanItemRow(row)
}

// renumberDays re-sorts each touched day's items by ascending start_time
// and rewrites their order field.
func renumberDays(ctx context.Context, tx pgx.Tx, tripID string, days map[int]bool) error {
	if len(days) == 0 {
		return nil
	}
	all, err := itinerary.ItemsTx(ctx, tx, tripID)
	if err != nil {
		return err
	}
	byDay := map[int][]planmodel.ItineraryItem{}
	for _, it := range all {
		byDay[it.Day] = append(byDay[it.Day], it)
	}
	for day := range days {
		items := byDay[day]
		sort.SliceStable(items, func(i, j int) bool {
			before, _ := timegeo.Before(items[i].StartTime, items[j].StartTime)
			return before
		})
		for i, it := range items {
			it.Order = i
			if err := itinerary.UpdateItemTx(ctx, tx, it); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertApplicationTx(ctx context.Context, tx pgx.Tx, a planmodel.ReplanApplication) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO replan_applications (id, trip_id, proposal_id, idempotency_key, applied_version, rollback_available_until, rolled_back)
		VALUES ($1,$2,$3,$4,$5,$6,false)
	`, a.ID, a.TripID, a.ProposalID, a.IdempotencyKey, a.AppliedVersion, a.RollbackDeadline)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

func (s *Service) lookupApplication(ctx context.Context, idempotencyKey string) (*planmodel.ReplanApplication, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, proposal_id, idempotency_key, applied_version, rollback_available_until, rolled_back, rolled_back_at, created_at
		FROM replan_applications WHERE idempotency_key=$1
	`, idempotencyKey)
	a, err := scanApplication(row)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Code == apperr.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func scanApplication(row pgx.Row) (planmodel.ReplanApplication, error) {
	var a planmodel.ReplanApplication
	var rolledBackAt *time.Time
	var idemKey *string
	var createdAt time.Time
	if err := row.Scan(&a.ID, &a.TripID, &a.ProposalID, &idemKey, &a.AppliedVersion, &a.RollbackDeadline, &a.RolledBack, &rolledBackAt, &createdAt); err != nil {
		if err == pgx.ErrNoRows {
			return planmodel.ReplanApplication{}, apperr.NotFound("application not found")
		}
		return planmodel.ReplanApplication{}, apperr.StorageUnavailable(err.Error())
	}
	if idemKey != nil {
		a.IdempotencyKey = *idemKey
	}
	a.AppliedAt = createdAt
	if rolledBackAt != nil {
		a.RolledBackAt = *rolledBackAt
	}
	a.PreviousVersion = a.AppliedVersion - 1
	a.Status = planmodel.ApplyApplied
	if a.RolledBack {
		a.Status = planmodel.ApplyRolledBack
	}
	return a, nil
}

// validateAppliedItinerary checks, after commit, that every item's poi_id
// still resolves and that no intra-day time conflicts exist. Failures are
// logged as warnings; rollback is a separate explicit operation.
func (s *Service) validateAppliedItinerary(ctx context.Context, tripID string) []string {
	items, err := s.store.Items(ctx, tripID)
	if err != nil {
		return nil
	}
	var warnings []string
	byDay := map[int][]planmodel.ItineraryItem{}
	for _, it := range items {
		byDay[it.Day] = append(byDay[it.Day], it)
		if it.POIID != "" {
			if _, err := s.pois.Get(ctx, it.POIID); err != nil {
				warnings = append(warnings, "item "+it.ID+" references a poi that no longer resolves")
			}
		}
	}
	for _, dayItems := range byDay {
		sort.SliceStable(dayItems, func(i, j int) bool { return dayItems[i].Order < dayItems[j].Order })
		for i := 1; i < len(dayItems); i++ {
			if before, _ := timegeo.Before(dayItems[i].StartTime, dayItems[i-1].EndTime); before {
				warnings = append(warnings, "items "+dayItems[i-1].ID+" and "+dayItems[i].ID+" conflict after replan")
			}
		}
	}
	return warnings
}
