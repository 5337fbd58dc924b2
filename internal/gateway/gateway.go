// Package gateway talks to the third-party weather API. It exposes exactly two
// operations: resolving a place name and fetching a multi-day forecast.
package gateway

import (
	"context"

	"weatherlog/internal/model"
)

// SamplesPerDay is the number of forecast samples the upstream provides per day (3-hour steps).
const SamplesPerDay = 8

// Gateway resolves place names and fetches forecasts.
type Gateway interface {
	// ResolveLocation returns metadata for a place name. Without an API key it may
	// degrade to {City: name, Country: "Unknown"} instead of failing.
	ResolveLocation(ctx context.Context, name string) (*model.LocationInfo, error)
	// FetchForecast returns at most days*SamplesPerDay samples, ordered by time.
	FetchForecast(ctx context.Context, name string, days int) (*model.Forecast, error)
}
