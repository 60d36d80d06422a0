package trip

import "github.com/Sakeerin/GoBuddy/internal/planmodel"

type Trip = planmodel.Trip
type TripPreferences = planmodel.TripPreferences
type DateRange = planmodel.DateRange
type Travelers = planmodel.Travelers
type Budget = planmodel.Budget
type DailyWindow = planmodel.DailyWindow
type Constraints = planmodel.Constraints

type CreateTripInput struct {
	OwnerKind   planmodel.OwnerKind `json:"owner_kind"`
	OwnerID     string              `json:"owner_id"`
	Destination string              `json:"destination"`
	Dates       DateRange           `json:"dates"`
	Travelers   Travelers           `json:"travelers"`
	Budget      Budget              `json:"budget"`
	Style       string              `json:"style"`
	Window      DailyWindow         `json:"daily_window"`
	Constraints Constraints         `json:"constraints"`
}
