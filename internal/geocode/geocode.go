package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/safety-companion/internal/geo"
)

var (
	// ErrNotFound is returned when the service answered but matched nothing.
	ErrNotFound = errors.New("location not found")

	// ErrInvalidInput is wrapped in a ResolutionError for blank queries and
	// out-of-range coordinates.
	ErrInvalidInput = errors.New("invalid resolution input")
)

// ResolutionError wraps network, service and parse failures.
type ResolutionError struct {
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed: %v", e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

func failed(err error) error {
	return &ResolutionError{Cause: err}
}

// ResolvedLocation is the best match for a query or coordinate.
type ResolvedLocation struct {
	Query       string         `json:"query,omitempty"`
	Name        string         `json:"name"`
	CountryCode string         `json:"countryCode"` // ISO 3166-1 alpha-2, uppercase
	Coordinate  geo.Coordinate `json:"coordinate"`
}

// Resolver turns free text or a coordinate into a named place.
type Resolver interface {
	ResolveByText(ctx context.Context, query string) (ResolvedLocation, error)
	ResolveByCoordinate(ctx context.Context, coord geo.Coordinate) (ResolvedLocation, error)
}
