package replan

import (
	"context"
	"time"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/jackc/pgx/v5"
)

// Rollback restores the itinerary to its pre-apply state, rejecting if the
// 24h window has passed or the application was already rolled back.
func (s *Service) Rollback(ctx context.Context, applicationID string) (planmodel.ReplanApplication, error) {
	application, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return planmodel.ReplanApplication{}, err
	}
	if application.RolledBack {
		return planmodel.ReplanApplication{}, apperr.Conflict("application was already rolled back")
	}
	if !time.Now().Before(application.RollbackDeadline) {
		return planmodel.ReplanApplication{}, apperr.RollbackExpired("rollback window has closed")
	}

	err = s.store.InTransaction(ctx, application.TripID, func(ctx context.Context, tx pgx.Tx) error {
		snapshot, err := itinerary.VersionSnapshotTx(ctx, tx, application.TripID, application.PreviousVersion)
		if err != nil {
			return err
		}
		if err := itinerary.DeleteAllItemsTx(ctx, tx, application.TripID); err != nil {
			return err
		}
		for _, day := range snapshot.Snapshot {
			for _, item := range day.Items {
				if _, err := itinerary.InsertItemTx(ctx, tx, item); err != nil {
					return err
				}
			}
		}
		if err := itinerary.SetVersionTx(ctx, tx, application.TripID, application.PreviousVersion); err != nil {
			return err
		}
		return markRolledBackTx(ctx, tx, application.ID)
	})
	if err != nil {
		return planmodel.ReplanApplication{}, err
	}

	application.RolledBack = true
	application.RolledBackAt = time.Now()
	application.Status = planmodel.ApplyRolledBack
	s.notify(application.TripID, "replan.rolled_back", application)
	return application, nil
}

func (s *Service) getApplication(ctx context.Context, id string) (planmodel.ReplanApplication, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, proposal_id, idempotency_key, applied_version, rollback_available_until, rolled_back, rolled_back_at, created_at
		FROM replan_applications WHERE id=$1
	`, id)
	return scanApplication(row)
}

func markRolledBackTx(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `UPDATE replan_applications SET rolled_back=true, rolled_back_at=now() WHERE id=$1`, id)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}
