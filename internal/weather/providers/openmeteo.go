package providers

import (
	"context"
	"net/url"
	"strconv"

	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/upstream"
	"github.com/i474232898/safety-companion/internal/weather"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.Provider for Open-Meteo. It needs no
// API key and only supports coordinates.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *upstream.Client
}

func NewOpenMeteoProvider(client *upstream.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = openMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		client:  client,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, coord geo.Coordinate) (weather.Reading, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,is_day")
	values.Set("wind_speed_unit", "ms")

	resp, err := p.client.Do(ctx, getRequest(p.baseURL+"?"+values.Encode()))
	if err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}

	var payload struct {
		Current struct {
			Temperature *float64 `json:"temperature_2m"`
			Humidity    *float64 `json:"relative_humidity_2m"`
			WindSpeed   *float64 `json:"wind_speed_10m"`
			WeatherCode *int     `json:"weather_code"`
			IsDay       int      `json:"is_day"`
		} `json:"current"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}

	cur := payload.Current
	switch {
	case cur.Temperature == nil:
		return weather.Reading{}, weather.Unavailable(p.name, missing("current.temperature_2m"))
	case cur.Humidity == nil:
		return weather.Reading{}, weather.Unavailable(p.name, missing("current.relative_humidity_2m"))
	case cur.WindSpeed == nil:
		return weather.Reading{}, weather.Unavailable(p.name, missing("current.wind_speed_10m"))
	case cur.WeatherCode == nil:
		return weather.Reading{}, weather.Unavailable(p.name, missing("current.weather_code"))
	}

	desc, icon := mapOpenMeteoCode(*cur.WeatherCode)
	if cur.IsDay == 1 {
		icon += "d"
	} else {
		icon += "n"
	}

	return weather.Reading{
		Provider:     p.name,
		Coordinate:   coord,
		TemperatureC: *cur.Temperature,
		HumidityPct:  clampPercent(*cur.Humidity),
		WindSpeedMS:  *cur.WindSpeed,
		Description:  desc,
		Icon:         icon,
		CapturedAt:   now(),
	}, nil
}

// mapOpenMeteoCode maps WMO weather codes onto OpenWeatherMap-style
// descriptions and icon stems so the UI can share one icon set.
func mapOpenMeteoCode(code int) (string, string) {
	switch {
	case code == 0:
		return "clear sky", "01"
	case code == 1:
		return "mainly clear", "02"
	case code == 2:
		return "partly cloudy", "03"
	case code == 3:
		return "overcast clouds", "04"
	case code == 45 || code == 48:
		return "fog", "50"
	case code >= 51 && code <= 57:
		return "drizzle", "09"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "rain", "10"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow", "13"
	case code >= 95:
		return "thunderstorm", "11"
	default:
		return "unknown", "50"
	}
}
