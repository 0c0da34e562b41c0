package providers

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/i474232898/safety-companion/internal/common"
	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/upstream"
	"github.com/i474232898/safety-companion/internal/weather"
)

const weatherAPIURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *upstream.Client
}

func NewWeatherAPIProvider(client *upstream.Client, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = weatherAPIURL
	}
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, coord geo.Coordinate) (weather.Reading, error) {
	// WeatherAPI uses "q" for location; it accepts "city,country" or "lat,lon".
	r, err := p.fetch(ctx, fmt.Sprintf("%f,%f", coord.Lat, coord.Lon))
	if err != nil {
		return weather.Reading{}, err
	}
	r.Coordinate = coord
	return r, nil
}

func (p *WeatherAPIProvider) FetchByCity(ctx context.Context, city string) (weather.Reading, error) {
	return p.fetch(ctx, city)
}

type weatherAPIPayload struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
	Current struct {
		TempC     *float64 `json:"temp_c"`
		Humidity  *float64 `json:"humidity"`
		WindKph   *float64 `json:"wind_kph"`
		IsDay     int      `json:"is_day"`
		Condition struct {
			Text string `json:"text"`
			Icon string `json:"icon"`
		} `json:"condition"`
	} `json:"current"`
}

func (p *WeatherAPIProvider) fetch(ctx context.Context, q string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, weather.Unavailable(p.name, fmt.Errorf("weatherapi api key is not configured"))
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", q)

	resp, err := p.client.Do(ctx, getRequest(p.baseURL+"?"+values.Encode()))
	if err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}

	var payload weatherAPIPayload
	if err := decodeJSON(resp, &payload); err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}

	r, err := p.toReading(payload)
	if err != nil {
		return weather.Reading{}, weather.Unavailable(p.name, err)
	}
	return r, nil
}

func (p *WeatherAPIProvider) toReading(payload weatherAPIPayload) (weather.Reading, error) {
	cur := payload.Current
	switch {
	case cur.TempC == nil:
		return weather.Reading{}, missing("current.temp_c")
	case cur.Humidity == nil:
		return weather.Reading{}, missing("current.humidity")
	case cur.WindKph == nil:
		return weather.Reading{}, missing("current.wind_kph")
	}

	desc := common.CollapseSpace(cur.Condition.Text)
	if desc == "" {
		return weather.Reading{}, missing("current.condition.text")
	}

	return weather.Reading{
		Provider:     p.name,
		Coordinate:   geo.Coordinate{Lat: payload.Location.Lat, Lon: payload.Location.Lon},
		TemperatureC: *cur.TempC,
		HumidityPct:  clampPercent(*cur.Humidity),
		// kph to m/s, once, here.
		WindSpeedMS: *cur.WindKph / 3.6,
		Description: desc,
		Icon:        weatherAPIIcon(cur.Condition.Icon, cur.IsDay == 1),
		CapturedAt:  now(),
	}, nil
}

// weatherAPIIcon turns ".../64x64/day/113.png" into "113d".
func weatherAPIIcon(iconURL string, isDay bool) string {
	code := strings.TrimSuffix(path.Base(iconURL), path.Ext(iconURL))
	if code == "" || code == "." || code == "/" {
		code = "0"
	}
	if isDay {
		return code + "d"
	}
	return code + "n"
}
