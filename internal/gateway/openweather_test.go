package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "weatherlog/internal/errors"
)

const parisGeocode = `[{"name":"Paris","lat":48.8589,"lon":2.32,"country":"FR","state":"Ile-de-France"}]`

// forecastFixture returns n three-hourly samples starting 2024-06-01 00:00 UTC.
func forecastFixture(n int) string {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dt := start.Add(time.Duration(i) * 3 * time.Hour).Unix()
		items = append(items, fmt.Sprintf(`{"dt":%d,"main":{"temp":18.5,"feels_like":17.49,"humidity":60,"pressure":1012},`+
			`"weather":[{"description":"light rain","icon":"10d"}],"wind":{"speed":3.6,"deg":220},"clouds":{"all":75},"visibility":9650}`, dt))
	}
	return `{"list":[` + strings.Join(items, ",") + `],"city":{"name":"Paris","country":"FR"}}`
}

type fixtureServer struct {
	*httptest.Server
	geocodeHits  atomic.Int32
	forecastHits atomic.Int32
}

func newFixtureServer(t *testing.T, geocodeBody string, geocodeStatus int, forecastBody string, forecastStatus int) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/geo/1.0/direct", func(w http.ResponseWriter, r *http.Request) {
		fs.geocodeHits.Add(1)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		w.WriteHeader(geocodeStatus)
		_, _ = w.Write([]byte(geocodeBody))
	})
	mux.HandleFunc("/data/2.5/forecast", func(w http.ResponseWriter, r *http.Request) {
		fs.forecastHits.Add(1)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.WriteHeader(forecastStatus)
		_, _ = w.Write([]byte(forecastBody))
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestGateway(baseURL, apiKey string, allowDegraded bool) *OpenWeatherGateway {
	return NewOpenWeatherGateway(Options{
		APIKey:         apiKey,
		WeatherBaseURL: baseURL + "/data/2.5",
		GeocodeBaseURL: baseURL + "/geo/1.0",
		Client:         &http.Client{Timeout: 2 * time.Second},
		AllowDegraded:  allowDegraded,
	})
}

func TestResolveLocation(t *testing.T) {
	srv := newFixtureServer(t, parisGeocode, http.StatusOK, "", http.StatusOK)
	gw := newTestGateway(srv.URL, "test-key", true)

	info, err := gw.ResolveLocation(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", info.City)
	assert.Equal(t, "Ile-de-France", info.State)
	assert.Equal(t, "FR", info.Country)
	assert.Equal(t, "Paris, Ile-de-France, FR", info.FormattedAddress)
	require.NotNil(t, info.Coordinates)
	assert.InDelta(t, 48.8589, info.Coordinates.Lat, 1e-9)
}

func TestResolveLocation_WithoutAPIKey(t *testing.T) {
	t.Run("degraded", func(t *testing.T) {
		gw := newTestGateway("http://unused.invalid", "", true)
		info, err := gw.ResolveLocation(context.Background(), "Atlantis")
		require.NoError(t, err)
		assert.Equal(t, "Atlantis", info.City)
		assert.Equal(t, "Unknown", info.Country)
		assert.Equal(t, "Atlantis", info.FormattedAddress)
		assert.Nil(t, info.Coordinates)
	})

	t.Run("degradation disabled", func(t *testing.T) {
		gw := newTestGateway("http://unused.invalid", "", false)
		_, err := gw.ResolveLocation(context.Background(), "Atlantis")
		assert.ErrorIs(t, err, apperrors.ErrMissingAPIKey)
	})
}

func TestFetchForecast(t *testing.T) {
	tests := []struct {
		name        string
		available   int
		days        int
		wantSamples int
	}{
		{name: "truncates to requested days", available: 40, days: 2, wantSamples: 16},
		{name: "returns what is available", available: 40, days: 7, wantSamples: 40},
		{name: "single day", available: 40, days: 1, wantSamples: 8},
		{name: "short upstream", available: 5, days: 1, wantSamples: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFixtureServer(t, parisGeocode, http.StatusOK, forecastFixture(tt.available), http.StatusOK)
			gw := newTestGateway(srv.URL, "test-key", true)

			forecast, err := gw.FetchForecast(context.Background(), "paris", tt.days)
			require.NoError(t, err)
			assert.Len(t, forecast.Samples, tt.wantSamples)
			assert.Equal(t, "Paris", forecast.Location)
			assert.Equal(t, "FR", forecast.Country)
			assert.Equal(t, int32(1), srv.geocodeHits.Load())
			assert.Equal(t, int32(1), srv.forecastHits.Load())
		})
	}
}

func TestFetchForecast_SampleConversion(t *testing.T) {
	srv := newFixtureServer(t, parisGeocode, http.StatusOK, forecastFixture(2), http.StatusOK)
	gw := newTestGateway(srv.URL, "test-key", true)

	forecast, err := gw.FetchForecast(context.Background(), "paris", 1)
	require.NoError(t, err)
	require.Len(t, forecast.Samples, 2)

	first := forecast.Samples[0]
	assert.Equal(t, "2024-06-01", first.Date)
	assert.Equal(t, "00:00", first.Time)
	assert.Equal(t, 19, first.Temperature)
	assert.Equal(t, 17, first.FeelsLike)
	assert.Equal(t, 9.7, first.Visibility)
	assert.Equal(t, 3.6, first.WindSpeed)
	assert.Equal(t, 220, first.WindDirection)
	assert.Equal(t, 75, first.Cloudiness)
	assert.Equal(t, "light rain", first.Description)
	assert.Equal(t, "10d", first.Icon)
	assert.Equal(t, "03:00", forecast.Samples[1].Time)
}

func TestFetchForecast_Failures(t *testing.T) {
	t.Run("no API key", func(t *testing.T) {
		gw := newTestGateway("http://unused.invalid", "", true)
		_, err := gw.FetchForecast(context.Background(), "paris", 1)
		assert.ErrorIs(t, err, apperrors.ErrMissingAPIKey)
	})

	t.Run("no geocode candidate", func(t *testing.T) {
		srv := newFixtureServer(t, `[]`, http.StatusOK, forecastFixture(8), http.StatusOK)
		gw := newTestGateway(srv.URL, "test-key", true)

		_, err := gw.FetchForecast(context.Background(), "nowhere", 1)
		assert.ErrorIs(t, err, apperrors.ErrLocationNotFound)
		assert.Equal(t, int32(0), srv.forecastHits.Load())
	})

	t.Run("forecast server error is not retried", func(t *testing.T) {
		srv := newFixtureServer(t, parisGeocode, http.StatusOK, `{"message":"boom"}`, http.StatusInternalServerError)
		gw := newTestGateway(srv.URL, "test-key", true)

		_, err := gw.FetchForecast(context.Background(), "paris", 1)
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
		assert.Equal(t, int32(1), srv.forecastHits.Load())
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newFixtureServer(t, parisGeocode, http.StatusOK, `{"list":`, http.StatusOK)
		gw := newTestGateway(srv.URL, "test-key", true)

		_, err := gw.FetchForecast(context.Background(), "paris", 1)
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
	})
}

func TestCircuitBreakerFailsFast(t *testing.T) {
	srv := newFixtureServer(t, `oops`, http.StatusBadGateway, "", http.StatusOK)
	gw := newTestGateway(srv.URL, "test-key", true)

	for i := 0; i < 5; i++ {
		_, err := gw.ResolveLocation(context.Background(), "paris")
		require.ErrorIs(t, err, apperrors.ErrUpstream)
	}
	assert.Equal(t, int32(5), srv.geocodeHits.Load())

	_, err := gw.ResolveLocation(context.Background(), "paris")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(5), srv.geocodeHits.Load())
}

func TestCircuitBreakerIgnoresCallerCancellation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("q") == "slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(parisGeocode))
	}))
	t.Cleanup(srv.Close)
	gw := newTestGateway(srv.URL, "test-key", true)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := gw.ResolveLocation(canceled, "paris")
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, apperrors.ErrUpstream)
	}
	assert.Equal(t, int32(0), hits.Load(), "a dead context never reaches upstream")

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := gw.ResolveLocation(ctx, "slow")
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, apperrors.ErrUpstream)
	}
	assert.Equal(t, int32(5), hits.Load())

	location, err := gw.ResolveLocation(context.Background(), "paris")
	require.NoError(t, err, "breaker must still be closed")
	assert.Equal(t, "Paris", location.City)
	assert.Equal(t, int32(6), hits.Load())
}

func TestMetresToKm(t *testing.T) {
	tests := []struct {
		metres int64
		want   float64
	}{
		{metres: 10000, want: 10},
		{metres: 9650, want: 9.7},
		{metres: 9649, want: 9.6},
		{metres: 50, want: 0.1},
		{metres: 49, want: 0},
		{metres: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metresToKm(tt.metres), "%d m", tt.metres)
	}
}
