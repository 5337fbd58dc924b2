package model

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ForecastSample is one timestamped weather observation within a forecast.
type ForecastSample struct {
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Temperature   int     `json:"temperature"`
	FeelsLike     int     `json:"feels_like"`
	Humidity      int     `json:"humidity"`
	Pressure      int     `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection int     `json:"wind_direction"`
	Cloudiness    int     `json:"cloudiness"`
	Visibility    float64 `json:"visibility"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
}

// Forecast is the gateway's multi-day forecast for a resolved place.
// Samples are ordered by timestamp ascending.
type Forecast struct {
	Location    string           `json:"location"`
	Country     string           `json:"country"`
	Coordinates Coordinates      `json:"coordinates"`
	Samples     []ForecastSample `json:"forecast"`
}

// LocationInfo is the resolved metadata for a place name.
type LocationInfo struct {
	City             string       `json:"city"`
	State            string       `json:"state,omitempty"`
	Country          string       `json:"country"`
	FormattedAddress string       `json:"formatted_address"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
}
