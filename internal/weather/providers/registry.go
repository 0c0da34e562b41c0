package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/i474232898/safety-companion/internal/upstream"
	"github.com/i474232898/safety-companion/internal/weather"
)

// Settings carries what the provider constructors need from configuration.
type Settings struct {
	HTTPClient        *http.Client
	RPS               float64
	OpenWeatherAPIKey string
	WeatherAPIKey     string
}

// Build constructs providers in the given order. Each provider gets its own
// upstream client so breakers and rate limits are not shared.
func Build(names []string, s Settings) ([]weather.Provider, error) {
	newClient := func(name string) *upstream.Client {
		return upstream.New(upstream.Config{
			Name:    name,
			Client:  s.HTTPClient,
			Backoff: upstream.DefaultBackoff,
			RPS:     s.RPS,
		})
	}

	provs := make([]weather.Provider, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "openweather", "openweathermap":
			provs = append(provs, NewOpenWeatherProvider(newClient("openweather"), s.OpenWeatherAPIKey, ""))
		case "weatherapi":
			provs = append(provs, NewWeatherAPIProvider(newClient("weatherapi"), s.WeatherAPIKey, ""))
		case "openmeteo":
			provs = append(provs, NewOpenMeteoProvider(newClient("openmeteo"), ""))
		default:
			return nil, fmt.Errorf("unknown weather provider %q", name)
		}
	}
	return provs, nil
}
