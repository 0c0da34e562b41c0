package httpapi

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/safety-companion/internal/alert"
	"github.com/i474232898/safety-companion/internal/emergency"
	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/geocode"
	"github.com/i474232898/safety-companion/internal/store"
	"github.com/i474232898/safety-companion/internal/weather"
)

// UserHeader carries the caller identity used to key search history.
const UserHeader = "X-User-ID"

var validate = validator.New()

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Policy       *alert.Policy
	Weather      weather.Client
	Resolver     geocode.Resolver
	Directory    *emergency.Directory
	Documents    store.DocumentStore
	HistoryLimit int
	Providers    []string
	Logger       *slog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	searches := newHistories(d.Documents, d.HistoryLimit, logger)

	v1 := app.Group("/api/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "safety-companion",
			"providers": d.Providers,
		})
	})

	v1.Get("/locations/resolve", func(c *fiber.Ctx) error {
		var (
			loc geocode.ResolvedLocation
			err error
		)

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			loc, err = d.Resolver.ResolveByText(c.UserContext(), q)
		} else {
			coord, perr := parseCoordinateQuery(c)
			if perr != nil {
				return fiber.NewError(fiber.StatusBadRequest, perr.Error())
			}
			loc, err = d.Resolver.ResolveByCoordinate(c.UserContext(), coord)
		}

		switch {
		case errors.Is(err, geocode.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "no matching location")
		case errors.Is(err, geocode.ErrInvalidInput):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			logger.Warn("resolve failed", "error", err)
			return fiber.NewError(fiber.StatusBadGateway, "location could not be resolved")
		}
		return c.JSON(loc)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			cities, ok := d.Weather.(weather.CityProvider)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "city lookups are not supported")
			}
			reading, err := cities.FetchByCity(c.UserContext(), q)
			if err != nil {
				logger.Warn("weather fetch failed", "city", q, "error", err)
				return fiber.NewError(fiber.StatusServiceUnavailable, "weather unavailable")
			}
			return c.JSON(reading)
		}

		coord, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := d.Weather.FetchCurrent(c.UserContext(), coord)
		if err != nil {
			logger.Warn("weather fetch failed", "coord", coord.String(), "error", err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "weather unavailable")
		}
		return c.JSON(reading)
	})

	v1.Post("/slots/:slot/observe", func(c *fiber.Ctx) error {
		slot, err := slotParam(c)
		if err != nil {
			return err
		}

		var req observeRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}

		decision := d.Policy.Observe(c.UserContext(), slot, req.coordinate())
		return c.JSON(decision)
	})

	v1.Post("/slots/:slot/assess", func(c *fiber.Ctx) error {
		slot, err := slotParam(c)
		if err != nil {
			return err
		}

		var req assessRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		in, err := req.input()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		decision := d.Policy.Assess(c.UserContext(), slot, in)

		if in.Query != "" && decision.Resolution == alert.Resolved {
			h, _ := searches.get(c.UserContext(), userID(c))
			// Persistence failures are logged by the history store.
			_, _ = h.Record(c.UserContext(), in.Query)
		}
		return c.JSON(decision)
	})

	v1.Get("/emergency/:country", func(c *fiber.Ctx) error {
		set, used := d.Directory.Resolve(c.Params("country"))

		numbers := make([]dialEntry, 0, len(set))
		for _, e := range set.Entries() {
			numbers = append(numbers, dialEntry{Entry: e, Dial: emergency.DialURI(e.Number)})
		}

		return c.JSON(fiber.Map{
			"country":  used,
			"fallback": used != strings.ToUpper(strings.TrimSpace(c.Params("country"))),
			"numbers":  numbers,
		})
	})

	v1.Get("/searches", func(c *fiber.Ctx) error {
		h, err := searches.get(c.UserContext(), userID(c))
		return c.JSON(searchesResponse(h.Entries(), err))
	})

	v1.Post("/searches", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}

		h, _ := searches.get(c.UserContext(), userID(c))
		entries, err := h.Record(c.UserContext(), req.Query)
		return c.JSON(searchesResponse(entries, err))
	})

	v1.Delete("/searches", func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}

		h, _ := searches.get(c.UserContext(), userID(c))
		entries, err := h.Remove(c.UserContext(), q)
		return c.JSON(searchesResponse(entries, err))
	})
}

// ErrorHandler renders errors as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

type coordinateRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type observeRequest struct {
	coordinateRequest
}

func (r observeRequest) coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: *r.Lat, Lon: *r.Lon}
}

type assessRequest struct {
	Query string   `json:"query" validate:"max=200"`
	Lat   *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon   *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
}

func (r assessRequest) input() (alert.Input, error) {
	if q := strings.TrimSpace(r.Query); q != "" {
		return alert.Input{Query: q}, nil
	}
	if r.Lat == nil || r.Lon == nil {
		return alert.Input{}, errors.New("either query or lat and lon are required")
	}
	return alert.Input{Coordinate: &geo.Coordinate{Lat: *r.Lat, Lon: *r.Lon}}, nil
}

type searchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

type dialEntry struct {
	emergency.Entry
	Dial string `json:"dial"`
}

func bindBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func slotParam(c *fiber.Ctx) (alert.SlotID, error) {
	slot := c.Params("slot")
	if err := validate.Var(slot, "required,max=64,printascii"); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid slot")
	}
	return alert.SlotID(slot), nil
}

func parseCoordinateQuery(c *fiber.Ctx) (geo.Coordinate, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return geo.Coordinate{}, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Coordinate{}, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return geo.Coordinate{}, errors.New("invalid lon")
	}

	coord := geo.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return coord, nil
}

func userID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(UserHeader))
}

func searchesResponse(entries []string, err error) fiber.Map {
	return fiber.Map{
		"entries":   entries,
		"persisted": err == nil,
	}
}
