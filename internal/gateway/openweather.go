package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/metrics"
	"weatherlog/internal/model"
)

const (
	unknownCountry   = "Unknown"
	metresPerKm      = 1000
	maxResponseBytes = 4 << 20
)

var (
	errUnexpectedStatus = errors.New("unexpected status code")
	errCircuitOpen      = errors.New("circuit breaker open")
	errCallerGone       = errors.New("caller canceled")
)

// Options configures OpenWeatherGateway.
type Options struct {
	APIKey         string
	WeatherBaseURL string
	GeocodeBaseURL string
	Client         *http.Client
	// AllowDegraded lets ResolveLocation answer with the input name when no API key is configured.
	AllowDegraded bool
}

// OpenWeatherGateway implements Gateway on the OpenWeatherMap geocoding and
// 5 day / 3 hour forecast APIs. Each operation issues at most one request per
// endpoint and never retries; repeated upstream failures open a circuit breaker.
type OpenWeatherGateway struct {
	opts    Options
	geocode *gobreaker.CircuitBreaker
	weather *gobreaker.CircuitBreaker
}

// Ensure OpenWeatherGateway implements Gateway
var _ Gateway = (*OpenWeatherGateway)(nil)

// NewOpenWeatherGateway builds the gateway.
func NewOpenWeatherGateway(opts Options) *OpenWeatherGateway {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	opts.WeatherBaseURL = strings.TrimRight(opts.WeatherBaseURL, "/")
	opts.GeocodeBaseURL = strings.TrimRight(opts.GeocodeBaseURL, "/")

	return &OpenWeatherGateway{
		opts:    opts,
		geocode: newBreaker("openweather-geocode"),
		weather: newBreaker("openweather-forecast"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A caller that hung up says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
	})
}

type geocodeCandidate struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			Pressure  int     `json:"pressure"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   int     `json:"deg"`
		} `json:"wind"`
		Clouds struct {
			All int `json:"all"`
		} `json:"clouds"`
		Visibility int64 `json:"visibility"`
	} `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

// ResolveLocation implements Gateway.
func (g *OpenWeatherGateway) ResolveLocation(ctx context.Context, name string) (*model.LocationInfo, error) {
	if g.opts.APIKey == "" {
		if g.opts.AllowDegraded {
			return &model.LocationInfo{City: name, Country: unknownCountry, FormattedAddress: name}, nil
		}
		return nil, apperrors.ErrMissingAPIKey
	}

	start := time.Now()
	candidate, err := g.lookup(ctx, name)
	metrics.ObserveGateway("resolve_location", start, err)
	if err != nil {
		return nil, err
	}

	return &model.LocationInfo{
		City:             candidate.Name,
		State:            candidate.State,
		Country:          candidate.Country,
		FormattedAddress: formatAddress(candidate),
		Coordinates:      &model.Coordinates{Lat: candidate.Lat, Lon: candidate.Lon},
	}, nil
}

// FetchForecast implements Gateway.
func (g *OpenWeatherGateway) FetchForecast(ctx context.Context, name string, days int) (*model.Forecast, error) {
	if g.opts.APIKey == "" {
		return nil, apperrors.ErrMissingAPIKey
	}

	start := time.Now()
	forecast, err := g.fetchForecast(ctx, name, days)
	metrics.ObserveGateway("fetch_forecast", start, err)
	return forecast, err
}

func (g *OpenWeatherGateway) fetchForecast(ctx context.Context, name string, days int) (*model.Forecast, error) {
	candidate, err := g.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("lat", decimal.NewFromFloat(candidate.Lat).String())
	values.Set("lon", decimal.NewFromFloat(candidate.Lon).String())
	values.Set("units", "metric")
	values.Set("appid", g.opts.APIKey)

	var payload forecastResponse
	if err := g.getJSON(ctx, g.weather, g.opts.WeatherBaseURL+"/forecast?"+values.Encode(), &payload); err != nil {
		return nil, err
	}

	limit := days * SamplesPerDay
	if limit < 0 {
		limit = 0
	}
	if limit > len(payload.List) {
		limit = len(payload.List)
	}

	samples := make([]model.ForecastSample, 0, limit)
	for _, item := range payload.List[:limit] {
		ts := time.Unix(item.Dt, 0).UTC()
		sample := model.ForecastSample{
			Date:          ts.Format(model.DateLayout),
			Time:          ts.Format("15:04"),
			Temperature:   roundWhole(item.Main.Temp),
			FeelsLike:     roundWhole(item.Main.FeelsLike),
			Humidity:      item.Main.Humidity,
			Pressure:      item.Main.Pressure,
			WindSpeed:     item.Wind.Speed,
			WindDirection: item.Wind.Deg,
			Cloudiness:    item.Clouds.All,
			Visibility:    metresToKm(item.Visibility),
		}
		if len(item.Weather) > 0 {
			sample.Description = item.Weather[0].Description
			sample.Icon = item.Weather[0].Icon
		}
		samples = append(samples, sample)
	}

	country := candidate.Country
	if country == "" {
		country = payload.City.Country
	}
	return &model.Forecast{
		Location:    candidate.Name,
		Country:     country,
		Coordinates: model.Coordinates{Lat: candidate.Lat, Lon: candidate.Lon},
		Samples:     samples,
	}, nil
}

// lookup returns the best geocode candidate for name.
func (g *OpenWeatherGateway) lookup(ctx context.Context, name string) (*geocodeCandidate, error) {
	values := url.Values{}
	values.Set("q", name)
	values.Set("limit", "1")
	values.Set("appid", g.opts.APIKey)

	var candidates []geocodeCandidate
	if err := g.getJSON(ctx, g.geocode, g.opts.GeocodeBaseURL+"/direct?"+values.Encode(), &candidates); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrLocationNotFound, name)
	}
	return &candidates[0], nil
}

// getJSON issues one GET through the breaker and decodes the body into out.
// Every upstream failure is reported as ErrUpstream with the cause attached.
// A canceled or expired ctx is returned as is and never counts against the breaker.
func (g *OpenWeatherGateway) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, rawURL string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", cb.Name(), err)
	}

	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := g.opts.Client.Do(req)
		if err != nil {
			return nil, callerGone(ctx, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, callerGone(ctx, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, errCallerGone) {
			return fmt.Errorf("%s: %w", cb.Name(), err)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return fmt.Errorf("%w: %s: %w", apperrors.ErrUpstream, cb.Name(), err)
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", apperrors.ErrUpstream, cb.Name(), err)
	}
	return nil
}

// callerGone tags err with errCallerGone when it was caused by ctx ending.
func callerGone(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errCallerGone, err)
	}
	return err
}

func formatAddress(c *geocodeCandidate) string {
	parts := []string{c.Name}
	if c.State != "" {
		parts = append(parts, c.State)
	}
	if c.Country != "" {
		parts = append(parts, c.Country)
	}
	return strings.Join(parts, ", ")
}

func roundWhole(v float64) int {
	return int(decimal.NewFromFloat(v).Round(0).IntPart())
}

// metresToKm reports visibility in kilometres to one decimal place, half away from zero.
func metresToKm(m int64) float64 {
	return decimal.NewFromInt(m).Div(decimal.NewFromInt(metresPerKm)).Round(1).InexactFloat64()
}
