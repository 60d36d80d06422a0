// Package planmodel holds the shared plan-aggregate types: Trip,
// TripPreferences, ItineraryItem, versions, bookings, events, and replan
// records. The aggregate forms a tree keyed on trip id with no cycles,
// so every cross-reference here is a plain id string, never a pointer
// back to a parent.
package planmodel

import "time"

type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
)

type TripStatus string

const (
	TripDraft     TripStatus = "draft"
	TripPlanning  TripStatus = "planning"
	TripBooked    TripStatus = "booked"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

type Trip struct {
	ID        string     `json:"id"`
	OwnerKind OwnerKind  `json:"owner_kind"`
	OwnerID   string     `json:"owner_id"`
	Status    TripStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Travelers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Seniors  int `json:"seniors"`
}

type Budget struct {
	Total    *Money `json:"total,omitempty"`
	PerDay   *Money `json:"per_day,omitempty"`
	Currency string `json:"currency"`
}

type DailyWindow struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

type Constraints struct {
	MaxWalkingKmPerDay *float64 `json:"max_walking_km_per_day,omitempty"`
	HasChildren        bool     `json:"has_children"`
	HasSeniors         bool     `json:"has_seniors"`
	NeedsRestTime      bool     `json:"needs_rest_time"`
	AvoidCrowds        bool     `json:"avoid_crowds"`
}

type DateRange struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

type TripPreferences struct {
	TripID      string      `json:"trip_id"`
	Destination string      `json:"destination"`
	Dates       DateRange   `json:"dates"`
	Travelers   Travelers   `json:"travelers"`
	Budget      Budget      `json:"budget"`
	Style       string      `json:"style"`
	Window      DailyWindow `json:"daily_window"`
	Constraints Constraints `json:"constraints"`
}
