package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/i474232898/safety-companion/internal/common"
	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/upstream"
	"github.com/i474232898/safety-companion/internal/weather"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *upstream.Client
}

// NewOpenWeatherProvider creates the provider. An empty baseURL uses the
// public endpoint.
func NewOpenWeatherProvider(client *upstream.Client, apiKey, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = openWeatherURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchCurrent fetches metric current conditions by latitude/longitude.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, coord geo.Coordinate) (weather.Reading, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))

	r, err := p.fetch(ctx, values)
	if err != nil {
		return weather.Reading{}, err
	}
	r.Coordinate = coord
	return r, nil
}

// FetchByCity fetches metric current conditions for a "city" or "city,CC" query.
func (p *OpenWeatherProvider) FetchByCity(ctx context.Context, city string) (weather.Reading, error) {
	values := url.Values{}
	values.Set("q", city)
	return p.fetch(ctx, values)
}

type openWeatherPayload struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, values url.Values) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, weather.Unavailable(p.name, fmt.Errorf("openweather api key is not configured"))
	}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	resp, err := p.client.Do(ctx, getRequest(p.baseURL+"?"+values.Encode()))
	if err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}

	var payload openWeatherPayload
	if err := decodeJSON(resp, &payload); err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}

	r, err := p.toReading(payload)
	if err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}
	return r, nil
}

func (p *OpenWeatherProvider) toReading(payload openWeatherPayload) (weather.Reading, error) {
	switch {
	case payload.Main.Temp == nil:
		return weather.Reading{}, missing("main.temp")
	case payload.Main.Humidity == nil:
		return weather.Reading{}, missing("main.humidity")
	case payload.Wind.Speed == nil:
		return weather.Reading{}, missing("wind.speed")
	case len(payload.Weather) == 0:
		return weather.Reading{}, missing("weather[0]")
	}

	desc := common.CollapseSpace(payload.Weather[0].Description)
	if desc == "" {
		return weather.Reading{}, missing("weather[0].description")
	}
	icon := payload.Weather[0].Icon
	if icon == "" {
		return weather.Reading{}, missing("weather[0].icon")
	}

	return weather.Reading{
		Provider:     p.name,
		Coordinate:   geo.Coordinate{Lat: payload.Coord.Lat, Lon: payload.Coord.Lon},
		TemperatureC: *payload.Main.Temp,
		HumidityPct:  clampPercent(*payload.Main.Humidity),
		WindSpeedMS:  *payload.Wind.Speed,
		Description:  desc,
		Icon:         icon,
		CapturedAt:   now(),
	}, nil
}
