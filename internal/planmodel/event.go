package planmodel

import "time"

type EventType string

const (
	EventWeatherAlert  EventType = "weather_alert"
	EventPOIClosure    EventType = "poi_closure"
	EventBookingFailed EventType = "booking_failed"
	EventTrafficDelay  EventType = "traffic_delay"
)

type EventSignal struct {
	ID            string         `json:"id"`
	TripID        string         `json:"trip_id"`
	Type          EventType      `json:"type"`
	Location      Location       `json:"location"`
	AffectedDay   int            `json:"affected_day,omitempty"`
	AffectedItems []string       `json:"affected_items,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	ReceivedAt    time.Time      `json:"received_at"`
}

type TriggerStatus string

const (
	TriggerPending   TriggerStatus = "pending"
	TriggerProposed  TriggerStatus = "proposed"
	TriggerApplied   TriggerStatus = "applied"
	TriggerDismissed TriggerStatus = "dismissed"
)

// ReplanTrigger records the one event signal that justifies generating
// replan proposals for a trip.
type ReplanTrigger struct {
	ID            string        `json:"id"`
	TripID        string        `json:"trip_id"`
	EventSignalID string        `json:"event_signal_id"`
	Status        TriggerStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}
