package routing

import (
	"context"
	"fmt"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/timegeo"

	"googlemaps.github.io/maps"
)

// modeOf maps our internal travel mode to the Google Maps travel mode;
// taxi has no direct equivalent so it rides on driving directions.
func modeOf(mode string) maps.Mode {
	switch mode {
	case "walking":
		return maps.TravelModeWalking
	case "transit":
		return maps.TravelModeTransit
	default:
		return maps.TravelModeDriving
	}
}

// GoogleAdapter computes routes via the Google Maps Directions API.
type GoogleAdapter struct {
	client *maps.Client
}

func NewGoogleAdapter(apiKey string) (*GoogleAdapter, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("routing: create maps client: %w", err)
	}
	return &GoogleAdapter{client: client}, nil
}

func (a *GoogleAdapter) ComputeRoute(ctx context.Context, req Request) (Result, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", req.From.Lat, req.From.Lng),
		Destination: fmt.Sprintf("%f,%f", req.To.Lat, req.To.Lng),
		Mode:        modeOf(string(req.Mode)),
	}

	routes, _, err := a.client.Directions(ctx, r)
	if err != nil {
		return Result{}, apperr.ProviderError(true, fmt.Sprintf("routing: directions request failed: %v", err))
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Result{}, apperr.ProviderError(false, "routing: no route found")
	}

	leg := routes[0].Legs[0]
	return Result{
		DistanceKm:      float64(leg.Distance.Meters) / 1000.0,
		DurationMinutes: int(leg.Duration.Minutes()),
		Polyline:        routes[0].OverviewPolyline.Points,
	}, nil
}

func (a *GoogleAdapter) HealthCheck(ctx context.Context) bool {
	_, _, err := a.client.Directions(ctx, &maps.DirectionsRequest{Origin: "0,0", Destination: "0,0.01"})
	return err == nil
}

// StubAdapter estimates duration from great-circle distance at a fixed
// walking speed, used when no Google Maps key is configured.
type StubAdapter struct {
	WalkingKmPerHour float64
}

func NewStubAdapter() *StubAdapter {
	return &StubAdapter{WalkingKmPerHour: 4.5}
}

func (a *StubAdapter) ComputeRoute(_ context.Context, req Request) (Result, error) {
	distance := timegeo.HaversineKm(req.From.Lat, req.From.Lng, req.To.Lat, req.To.Lng)
	speed := a.WalkingKmPerHour
	if speed <= 0 {
		speed = 4.5
	}
	minutes := int((distance / speed) * 60)
	if minutes < 1 {
		minutes = 1
	}
	return Result{DistanceKm: distance, DurationMinutes: minutes}, nil
}

func (a *StubAdapter) HealthCheck(_ context.Context) bool { return true }
