package service

import (
	"context"
	"strings"
	"unicode/utf8"

	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/gateway"
	"weatherlog/internal/model"
)

const (
	// DefaultForecastDays is used when a forecast request names no day count.
	DefaultForecastDays = 5
	// MaxForecastDays bounds ad-hoc forecast lookups.
	MaxForecastDays = 14
)

// CurrentWeather is the nearest forecast sample for a place.
type CurrentWeather struct {
	Location    string               `json:"location"`
	Country     string               `json:"country"`
	Coordinates model.Coordinates    `json:"coordinates"`
	Current     model.ForecastSample `json:"current"`
	Details     *model.LocationInfo  `json:"location_details"`
}

// WeatherService serves ad-hoc lookups that are not stored as records.
type WeatherService interface {
	Current(ctx context.Context, location string) (*CurrentWeather, error)
	Forecast(ctx context.Context, location string, days int) (*model.Forecast, error)
}

type weatherService struct {
	gateway gateway.Gateway
}

// NewWeatherService builds a WeatherService on top of the gateway.
func NewWeatherService(gw gateway.Gateway) WeatherService {
	return &weatherService{gateway: gw}
}

func (s *weatherService) Current(ctx context.Context, location string) (*CurrentWeather, error) {
	name, err := validLocation(location)
	if err != nil {
		return nil, err
	}

	forecast, err := s.gateway.FetchForecast(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(forecast.Samples) == 0 {
		return nil, apperrors.ErrUpstream
	}

	info, err := s.gateway.ResolveLocation(ctx, name)
	if err != nil {
		return nil, err
	}

	return &CurrentWeather{
		Location:    forecast.Location,
		Country:     forecast.Country,
		Coordinates: forecast.Coordinates,
		Current:     forecast.Samples[0],
		Details:     info,
	}, nil
}

func (s *weatherService) Forecast(ctx context.Context, location string, days int) (*model.Forecast, error) {
	name, err := validLocation(location)
	if err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultForecastDays
	}
	if days < 1 || days > MaxForecastDays {
		return nil, apperrors.NewValidationError("days", "days must be between 1 and 14")
	}
	return s.gateway.FetchForecast(ctx, name, days)
}

func validLocation(location string) (string, error) {
	name := strings.TrimSpace(location)
	if n := utf8.RuneCountInString(name); n < minLocationLength || n > maxLocationLength {
		return "", apperrors.NewValidationError("location", "location must be between 2 and 100 characters")
	}
	return name, nil
}
