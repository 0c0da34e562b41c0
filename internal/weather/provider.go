package weather

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/safety-companion/internal/geo"
)

// ErrUnavailable matches every weather fetch failure via errors.Is.
var ErrUnavailable = errors.New("weather unavailable")

// UnavailableError is returned when a reading cannot be produced, either
// because the upstream failed or because its payload lacked a required field.
type UnavailableError struct {
	Provider string
	Cause    error
}

func (e *UnavailableError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("weather unavailable: %v", e.Cause)
	}
	return fmt.Sprintf("weather unavailable from %s: %v", e.Provider, e.Cause)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.Cause}
}

// Unavailable wraps cause as an *UnavailableError for provider.
func Unavailable(provider string, cause error) error {
	return &UnavailableError{Provider: provider, Cause: cause}
}

// Client fetches current conditions for a coordinate.
type Client interface {
	FetchCurrent(ctx context.Context, coord geo.Coordinate) (Reading, error)
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Client
	Name() string
}

// CityProvider is implemented by providers that accept free-text place names.
type CityProvider interface {
	FetchByCity(ctx context.Context, city string) (Reading, error)
}
