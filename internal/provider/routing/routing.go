// Package routing defines the route-distance/time provider the core
// consumes, plus a Google Maps-backed adapter and a deterministic stub
// for when no routing key is configured.
package routing

import (
	"context"

	"github.com/Sakeerin/GoBuddy/internal/planmodel"
)

type Request struct {
	From          planmodel.Location
	To            planmodel.Location
	Mode          planmodel.RouteMode
	DepartureTime string // HH:MM, optional
}

type Result struct {
	DistanceKm      float64
	DurationMinutes int
	CostEstimate    *planmodel.Money
	Polyline        string
	Steps           []string
}

// Provider is the routing collaborator. Generator and replan fall back
// to a placeholder duration when it is unavailable (spec §6).
type Provider interface {
	ComputeRoute(ctx context.Context, req Request) (Result, error)
	HealthCheck(ctx context.Context) bool
}
