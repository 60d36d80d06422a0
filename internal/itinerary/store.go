// Package itinerary persists the itinerary aggregate: items and their
// append-only version history. All multi-row mutations run inside
// InTransaction, which locks the trip's sentinel row so concurrent
// mutations against the same trip serialize instead of interleaving.
package itinerary

import (
	"context"
	"encoding/json"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/db"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Store struct {
	db db.TxPool
}

func NewStore(d db.TxPool) *Store {
	return &Store{db: d}
}

// InTransaction runs fn under a transaction that holds a row lock on the
// trip's sentinel row, so another InTransaction call for the same trip
// blocks until this one commits or rolls back.
func (s *Store) InTransaction(ctx context.Context, tripID string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT trip_id FROM trip_sentinels WHERE trip_id=$1 FOR UPDATE`, tripID); err != nil {
		return apperr.StorageUnavailable(err.Error())
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

// Items returns every item for the trip ordered (day asc, order asc).
func (s *Store) Items(ctx context.Context, tripID string) ([]planmodel.ItineraryItem, error) {
	return queryItems(ctx, s.db, tripID)
}

func queryItems(ctx context.Context, q db.Querier, tripID string) ([]planmodel.ItineraryItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, trip_id, day, item_type, poi_id, name, location, start_time, end_time,
		       duration_minutes, is_pinned, "order", route_from_previous, cost_estimate, notes
		FROM itinerary_items WHERE trip_id=$1
		ORDER BY day ASC, "order" ASC
	`, tripID)
	if err != nil {
		return nil, apperr.StorageUnavailable(err.Error())
	}
	defer rows.Close()

	var items []planmodel.ItineraryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, apperr.StorageUnavailable(err.Error())
		}
		items = append(items, item)
	}
	return items, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows, letting scanItem
// serve both the multi-row list query and the single-row by-id lookup.
type rowScanner interface {
	Scan(dest ...any) error
}

// ScanItemRow scans a single itinerary_items row fetched by id, as used by
// the replan pipeline when it needs one item mid-transaction.
func ScanItemRow(row pgx.Row) (planmodel.ItineraryItem, error) {
	item, err := scanItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return planmodel.ItineraryItem{}, apperr.NotFound("item not found")
		}
		return planmodel.ItineraryItem{}, apperr.StorageUnavailable(err.Error())
	}
	return item, nil
}

func scanItem(row rowScanner) (planmodel.ItineraryItem, error) {
	var item planmodel.ItineraryItem
	var poiID *string
	var location, route, cost []byte
	var notes *string
	if err := row.Scan(&item.ID, &item.TripID, &item.Day, &item.Type, &poiID, &item.Name, &location,
		&item.StartTime, &item.EndTime, &item.DurationMinutes, &item.IsPinned, &item.Order,
		&route, &cost, &notes); err != nil {
		return planmodel.ItineraryItem{}, err
	}
	if poiID != nil {
		item.POIID = *poiID
	}
	if notes != nil {
		item.Notes = *notes
	}
	if len(location) > 0 {
		if err := json.Unmarshal(location, &item.Location); err != nil {
			return planmodel.ItineraryItem{}, err
		}
	}
	if len(route) > 0 {
		if err := json.Unmarshal(route, &item.RouteFromPrevious); err != nil {
			return planmodel.ItineraryItem{}, err
		}
	}
	if len(cost) > 0 {
		if err := json.Unmarshal(cost, &item.CostEstimate); err != nil {
			return planmodel.ItineraryItem{}, err
		}
	}
	return item, nil
}

// InsertItemTx writes one item inside an existing transaction, assigning
// an id if one is not already set.
func InsertItemTx(ctx context.Context, tx pgx.Tx, item planmodel.ItineraryItem) (planmodel.ItineraryItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	location, err := marshalOptional(item.Location)
	if err != nil {
		return planmodel.ItineraryItem{}, apperr.Validation(err.Error())
	}
	route, err := marshalOptional(item.RouteFromPrevious)
	if err != nil {
		return planmodel.ItineraryItem{}, apperr.Validation(err.Error())
	}
	cost, err := marshalOptional(item.CostEstimate)
	if err != nil {
		return planmodel.ItineraryItem{}, apperr.Validation(err.Error())
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO itinerary_items
			(id, trip_id, day, item_type, poi_id, name, location, start_time, end_time,
			 duration_minutes, is_pinned, "order", route_from_previous, cost_estimate, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, item.ID, item.TripID, item.Day, item.Type, nullableString(item.POIID), item.Name, location,
		item.StartTime, item.EndTime, item.DurationMinutes, item.IsPinned, item.Order, route, cost, nullableString(item.Notes))
	if err != nil {
		return planmodel.ItineraryItem{}, apperr.StorageUnavailable(err.Error())
	}
	return item, nil
}

// UpdateItemTx rewrites one item's mutable fields inside an existing
// transaction (used by the editor's reorder/setStartTime/togglePin).
func UpdateItemTx(ctx context.Context, tx pgx.Tx, item planmodel.ItineraryItem) error {
	route, err := marshalOptional(item.RouteFromPrevious)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	_, err = tx.Exec(ctx, `
		UPDATE itinerary_items
		SET day=$2, start_time=$3, end_time=$4, duration_minutes=$5, is_pinned=$6, "order"=$7, route_from_previous=$8
		WHERE id=$1
	`, item.ID, item.Day, item.StartTime, item.EndTime, item.DurationMinutes, item.IsPinned, item.Order, route)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

func DeleteItemTx(ctx context.Context, tx pgx.Tx, itemID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM itinerary_items WHERE id=$1`, itemID); err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

// DeleteNonPinnedTx removes every non-pinned item for the trip, used by
// the generator before it writes a fresh set of items.
func DeleteNonPinnedTx(ctx context.Context, tx pgx.Tx, tripID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM itinerary_items WHERE trip_id=$1 AND is_pinned=false`, tripID); err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

// DeleteAllItemsTx removes every item for the trip, pinned or not, used by
// replan rollback to restore a prior version from its snapshot.
func DeleteAllItemsTx(ctx context.Context, tx pgx.Tx, tripID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM itinerary_items WHERE trip_id=$1`, tripID); err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

func ItemsTx(ctx context.Context, tx pgx.Tx, tripID string) ([]planmodel.ItineraryItem, error) {
	return queryItems(ctx, tx, tripID)
}

// CurrentVersion returns the itinerary's current version, or 0 if the
// trip has never been generated.
func (s *Store) CurrentVersion(ctx context.Context, tripID string) (int, error) {
	row := s.db.QueryRow(ctx, `SELECT version FROM itineraries WHERE trip_id=$1`, tripID)
	var v int
	if err := row.Scan(&v); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, apperr.StorageUnavailable(err.Error())
	}
	return v, nil
}

func CurrentVersionTx(ctx context.Context, tx pgx.Tx, tripID string) (int, error) {
	row := tx.QueryRow(ctx, `SELECT version FROM itineraries WHERE trip_id=$1`, tripID)
	var v int
	if err := row.Scan(&v); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, apperr.StorageUnavailable(err.Error())
	}
	return v, nil
}

// SetVersionTx upserts the itinerary's current version number.
func SetVersionTx(ctx context.Context, tx pgx.Tx, tripID string, version int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO itineraries (trip_id, version, generated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (trip_id) DO UPDATE SET version=EXCLUDED.version, generated_at=EXCLUDED.generated_at
	`, tripID, version)
	if err != nil {
		return apperr.StorageUnavailable(err.Error())
	}
	return nil
}

// InsertVersionTx appends one immutable snapshot row.
func InsertVersionTx(ctx context.Context, tx pgx.Tx, version planmodel.ItineraryVersion) (planmodel.ItineraryVersion, error) {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	snapshot, err := json.Marshal(version.Snapshot)
	if err != nil {
		return planmodel.ItineraryVersion{}, apperr.Validation(err.Error())
	}
	diff, err := marshalOptional(version.Diff)
	if err != nil {
		return planmodel.ItineraryVersion{}, apperr.Validation(err.Error())
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO itinerary_versions (id, trip_id, version, change_type, changed_by, snapshot, diff)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, version.ID, version.TripID, version.Version, version.ChangeType, nullableString(version.ChangedBy), snapshot, diff)
	if err := row.Scan(&version.CreatedAt); err != nil {
		return planmodel.ItineraryVersion{}, apperr.StorageUnavailable(err.Error())
	}
	return version, nil
}

// VersionSnapshot loads one immutable version row by number.
func (s *Store) VersionSnapshot(ctx context.Context, tripID string, version int) (planmodel.ItineraryVersion, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, trip_id, version, change_type, changed_by, snapshot, diff, created_at
		FROM itinerary_versions WHERE trip_id=$1 AND version=$2
	`, tripID, version)
	return scanVersion(row)
}

func VersionSnapshotTx(ctx context.Context, tx pgx.Tx, tripID string, version int) (planmodel.ItineraryVersion, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, trip_id, version, change_type, changed_by, snapshot, diff, created_at
		FROM itinerary_versions WHERE trip_id=$1 AND version=$2
	`, tripID, version)
	return scanVersion(row)
}

func scanVersion(row pgx.Row) (planmodel.ItineraryVersion, error) {
	var v planmodel.ItineraryVersion
	var changedBy *string
	var snapshot, diff []byte
	if err := row.Scan(&v.ID, &v.TripID, &v.Version, &v.ChangeType, &changedBy, &snapshot, &diff, &v.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return planmodel.ItineraryVersion{}, apperr.NotFound("version not found")
		}
		return planmodel.ItineraryVersion{}, apperr.StorageUnavailable(err.Error())
	}
	if changedBy != nil {
		v.ChangedBy = *changedBy
	}
	if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
		return planmodel.ItineraryVersion{}, apperr.StorageUnavailable(err.Error())
	}
	if len(diff) > 0 {
		if err := json.Unmarshal(diff, &v.Diff); err != nil {
			return planmodel.ItineraryVersion{}, apperr.StorageUnavailable(err.Error())
		}
	}
	return v, nil
}

// Snapshot groups a trip's current items into per-day buckets, the shape
// stored on every ItineraryVersion.
func Snapshot(items []planmodel.ItineraryItem) []planmodel.ItineraryDay {
	byDay := map[int][]planmodel.ItineraryItem{}
	maxDay := 0
	for _, item := range items {
		byDay[item.Day] = append(byDay[item.Day], item)
		if item.Day > maxDay {
			maxDay = item.Day
		}
	}
	days := make([]planmodel.ItineraryDay, 0, maxDay)
	for d := 1; d <= maxDay; d++ {
		days = append(days, planmodel.ItineraryDay{Day: d, Items: byDay[d]})
	}
	return days
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
