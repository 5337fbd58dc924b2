package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "calendar date", input: "2024-06-01", want: "2024-06-01"},
		{name: "rfc3339 truncated to utc date", input: "2024-06-01T23:30:00-02:00", want: "2024-06-02"},
		{name: "surrounding space", input: " 2024-06-03 ", want: "2024-06-03"},
		{name: "impossible date", input: "2024-02-30", wantErr: true},
		{name: "garbage", input: "tomorrow", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC))

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-06-01"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, d.Equal(back.Time))
}

func TestDate_Scan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan("2024-06-01 00:00:00+00:00"))
	assert.Equal(t, "2024-06-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-06-02")))
	assert.Equal(t, "2024-06-02", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-06-03", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", v)
}

func TestWeatherRecord_SampleCount(t *testing.T) {
	r := &WeatherRecord{}
	assert.Equal(t, 0, r.SampleCount())

	r.WeatherData = []byte(`{"location":"Paris","forecast":[{"date":"2024-06-01"},{"date":"2024-06-01"}]}`)
	assert.Equal(t, 2, r.SampleCount())

	r.WeatherData = []byte(`not json`)
	assert.Equal(t, 0, r.SampleCount())
}
