package planmodel

import "time"

type ReplanStrategy string

const (
	StrategyReschedule ReplanStrategy = "reschedule"
	StrategySubstitute ReplanStrategy = "substitute"
	StrategyDropItem   ReplanStrategy = "drop_item"
	StrategyMoveDay    ReplanStrategy = "move_day"
)

// ReplacedItem pairs an item being dropped with the item that replaces it.
type ReplacedItem struct {
	OldItemID string        `json:"old_item_id"`
	NewItem   ItineraryItem `json:"new_item"`
}

// MovedItem relocates an existing item without changing its duration.
type MovedItem struct {
	ItemID    string `json:"item_id"`
	NewDay    int    `json:"new_day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ReplanChanges enumerates everything one proposal would do to the
// itinerary if applied.
type ReplanChanges struct {
	ReplacedItems []ReplacedItem  `json:"replaced_items,omitempty"`
	MovedItems    []MovedItem     `json:"moved_items,omitempty"`
	RemovedItems  []string        `json:"removed_items,omitempty"`
	AddedItems    []ItineraryItem `json:"added_items,omitempty"`
}

// ReplanImpact is the scored estimate of a proposal's cost before it is
// ever applied.
type ReplanImpact struct {
	TimeChangeMinutes   int      `json:"time_change_minutes"`
	CostChange          *Money   `json:"cost_change,omitempty"`
	DistanceChangeKm    *float64 `json:"distance_change_km,omitempty"`
	DistanceUnavailable bool     `json:"distance_unavailable"`
	DisruptionScore     float64  `json:"disruption_score"`
}

// ReplanProposal is one candidate fix for a trigger.
type ReplanProposal struct {
	ID            string         `json:"id"`
	TripID        string         `json:"trip_id"`
	TriggerID     string         `json:"trigger_id"`
	Strategy      ReplanStrategy `json:"strategy"`
	Description   string         `json:"description"`
	AffectedItems []string       `json:"affected_items"`
	Changes       ReplanChanges  `json:"changes"`
	Impact        ReplanImpact   `json:"impact"`
	Score         float64        `json:"score"`
	CreatedAt     time.Time      `json:"created_at"`
}

type ApplyStatus string

const (
	ApplyApplied    ApplyStatus = "applied"
	ApplyRolledBack ApplyStatus = "rolled_back"
	ApplyExpired    ApplyStatus = "expired"
)

// ReplanApplication records one application of a proposal. IdempotencyKey
// is looked up across all applications: a retried apply with the same key
// and proposal returns the original application instead of applying
// twice, and the same key against another proposal is a conflict.
type ReplanApplication struct {
	ID               string      `json:"id"`
	TripID           string      `json:"trip_id"`
	ProposalID       string      `json:"proposal_id"`
	IdempotencyKey   string      `json:"idempotency_key,omitempty"`
	PreviousVersion  int         `json:"previous_version"`
	AppliedVersion   int         `json:"applied_version"`
	Status           ApplyStatus `json:"status"`
	AppliedAt        time.Time   `json:"applied_at"`
	RollbackDeadline time.Time   `json:"rollback_deadline"`
	RolledBack       bool        `json:"rolled_back"`
	RolledBackAt     time.Time   `json:"rolled_back_at,omitempty"`
}
