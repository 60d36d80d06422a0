package weather

import "context"

// StubProvider returns a fixed forecast, used for tests and when no
// weather service is configured.
type StubProvider struct {
	Forecast Forecast
}

func NewStubProvider() *StubProvider {
	return &StubProvider{Forecast: Forecast{Condition: ConditionSunny, Severity: SeverityLow}}
}

func (p *StubProvider) GetWeatherForecast(_ context.Context, _, _ float64, _ string) (Forecast, error) {
	return p.Forecast, nil
}
