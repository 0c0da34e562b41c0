package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/safety-companion/internal/common"
	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/upstream"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleResolver implements Resolver against the Google Geocoding API.
type GoogleResolver struct {
	apiKey  string
	baseURL string
	client  *upstream.Client
}

// NewGoogleResolver creates the resolver. An empty baseURL uses the public endpoint.
func NewGoogleResolver(client *upstream.Client, apiKey, baseURL string) *GoogleResolver {
	if baseURL == "" {
		baseURL = googleGeocodeURL
	}
	return &GoogleResolver{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

type googleResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []googleResult `json:"results"`
}

type googleResult struct {
	FormattedAddress  string `json:"formatted_address"`
	AddressComponents []struct {
		LongName  string   `json:"long_name"`
		ShortName string   `json:"short_name"`
		Types     []string `json:"types"`
	} `json:"address_components"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// ResolveByText forward-geocodes a free-text place name.
func (g *GoogleResolver) ResolveByText(ctx context.Context, query string) (ResolvedLocation, error) {
	q := common.CollapseSpace(query)
	if q == "" {
		return ResolvedLocation{}, failed(fmt.Errorf("%w: empty query", ErrInvalidInput))
	}

	values := url.Values{}
	values.Set("address", q)

	loc, err := g.lookup(ctx, values)
	if err != nil {
		return ResolvedLocation{}, err
	}
	loc.Query = q
	return loc, nil
}

// ResolveByCoordinate reverse-geocodes a coordinate. The returned coordinate
// is the one asked for, not the matched feature's centroid.
func (g *GoogleResolver) ResolveByCoordinate(ctx context.Context, coord geo.Coordinate) (ResolvedLocation, error) {
	if err := coord.Validate(); err != nil {
		return ResolvedLocation{}, failed(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	values := url.Values{}
	values.Set("latlng", fmt.Sprintf("%f,%f", coord.Lat, coord.Lon))

	loc, err := g.lookup(ctx, values)
	if err != nil {
		return ResolvedLocation{}, err
	}
	loc.Coordinate = coord
	return loc, nil
}

func (g *GoogleResolver) lookup(ctx context.Context, values url.Values) (ResolvedLocation, error) {
	if g.apiKey == "" {
		return ResolvedLocation{}, failed(fmt.Errorf("google geocoding api key is not configured"))
	}
	values.Set("key", g.apiKey)
	u := g.baseURL + "?" + values.Encode()

	resp, err := g.client.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	})
	if err != nil {
		return ResolvedLocation{}, failed(err)
	}
	defer resp.Body.Close()

	var payload googleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, upstream.MaxBodyBytes)).Decode(&payload); err != nil {
		return ResolvedLocation{}, failed(fmt.Errorf("geocode decode: %w", err))
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return ResolvedLocation{}, ErrNotFound
	default:
		return ResolvedLocation{}, failed(fmt.Errorf("geocode status %s: %s", payload.Status, payload.ErrorMessage))
	}
	if len(payload.Results) == 0 {
		return ResolvedLocation{}, ErrNotFound
	}

	return toResolved(payload.Results[0]), nil
}

func toResolved(r googleResult) ResolvedLocation {
	var locality, region, country string
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "locality", "postal_town":
				if locality == "" {
					locality = c.LongName
				}
			case "administrative_area_level_1":
				region = c.LongName
			case "country":
				country = c.ShortName
			}
		}
	}

	name := locality
	if name == "" {
		name = region
	}
	if name == "" {
		name = r.FormattedAddress
	}

	return ResolvedLocation{
		Name:        name,
		CountryCode: strings.ToUpper(country),
		Coordinate: geo.Coordinate{
			Lat: r.Geometry.Location.Lat,
			Lon: r.Geometry.Location.Lng,
		},
	}
}
