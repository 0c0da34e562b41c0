package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i474232898/safety-companion/internal/geo"
)

// Chain fetches from an ordered list of providers and returns the first
// successful reading. Later providers are only consulted when earlier ones
// fail, so the primary provider's vocabulary is used whenever it is healthy.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a Chain. A nil logger uses slog.Default().
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger,
	}
}

// Providers returns the provider names in the order they are tried.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// FetchCurrent implements Client.
func (c *Chain) FetchCurrent(ctx context.Context, coord geo.Coordinate) (Reading, error) {
	if err := coord.Validate(); err != nil {
		return Reading{}, Unavailable("", err)
	}
	return c.try(ctx, coord.String(), func(p Provider) (Reading, error) {
		return p.FetchCurrent(ctx, coord)
	})
}

// FetchByCity fetches current conditions for a free-text place name using
// the providers that support it.
func (c *Chain) FetchByCity(ctx context.Context, city string) (Reading, error) {
	if city == "" {
		return Reading{}, Unavailable("", errors.New("empty city"))
	}
	return c.try(ctx, city, func(p Provider) (Reading, error) {
		cp, ok := p.(CityProvider)
		if !ok {
			return Reading{}, fmt.Errorf("%s does not support city lookups", p.Name())
		}
		return cp.FetchByCity(ctx, city)
	})
}

func (c *Chain) try(ctx context.Context, target string, fetch func(Provider) (Reading, error)) (Reading, error) {
	if len(c.providers) == 0 {
		c.logger.Error("no weather providers configured", "target", target)
		return Reading{}, Unavailable("", errors.New("no weather providers configured"))
	}

	var errs []error
	for _, p := range c.providers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		r, err := fetch(p)
		if err == nil {
			return r, nil
		}

		c.logger.Warn("weather provider fetch failed", "provider", p.Name(), "target", target, "error", err)
		errs = append(errs, err)
	}

	return Reading{}, Unavailable("", errors.Join(errs...))
}
