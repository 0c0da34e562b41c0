package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/safety-companion/internal/alert"
	"github.com/i474232898/safety-companion/internal/emergency"
	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/geocode"
	"github.com/i474232898/safety-companion/internal/history"
	"github.com/i474232898/safety-companion/internal/store"
	"github.com/i474232898/safety-companion/internal/weather"
)

type stubWeather struct {
	reading weather.Reading
	err     error
}

func (s *stubWeather) FetchCurrent(_ context.Context, coord geo.Coordinate) (weather.Reading, error) {
	if s.err != nil {
		return weather.Reading{}, weather.Unavailable("stub", s.err)
	}
	r := s.reading
	r.Coordinate = coord
	return r, nil
}

type stubResolver struct{}

func (stubResolver) ResolveByText(_ context.Context, q string) (geocode.ResolvedLocation, error) {
	switch q {
	case "Paris":
		return geocode.ResolvedLocation{Query: q, Name: "Paris", CountryCode: "FR", Coordinate: geo.Coordinate{Lat: 48.8566, Lon: 2.3522}}, nil
	case "Broken":
		return geocode.ResolvedLocation{}, &geocode.ResolutionError{Cause: errors.New("upstream down")}
	default:
		return geocode.ResolvedLocation{}, geocode.ErrNotFound
	}
}

func (stubResolver) ResolveByCoordinate(_ context.Context, c geo.Coordinate) (geocode.ResolvedLocation, error) {
	return geocode.ResolvedLocation{Name: "Somewhere", CountryCode: "JP", Coordinate: c}, nil
}

type fixture struct {
	app  *fiber.App
	docs *store.MemoryStore
	wc   *stubWeather
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	wc := &stubWeather{reading: weather.Reading{
		Provider:     "stub",
		TemperatureC: 21.4,
		HumidityPct:  40,
		WindSpeedMS:  2,
		Description:  "clear sky",
		Icon:         "01d",
		CapturedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}
	docs := store.NewMemoryStore()
	dir := emergency.MustNew()
	policy := alert.NewPolicy(wc, stubResolver{}, dir, alert.NewSlotStore(), alert.Options{})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Deps{
		Policy:    policy,
		Weather:   wc,
		Resolver:  stubResolver{},
		Directory: dir,
		Documents: docs,
		Providers: []string{"stub"},
	})

	return &fixture{app: app, docs: docs, wc: wc}
}

func (f *fixture) do(t *testing.T, method, target, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCurrentWeatherValidation(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{
		"/api/v1/weather/current",
		"/api/v1/weather/current?lat=48.8",
		"/api/v1/weather/current?lat=abc&lon=2",
		"/api/v1/weather/current?lat=91&lon=2",
		"/api/v1/weather/current?q=Paris",
	} {
		resp, _ := f.do(t, http.MethodGet, target, "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, resp.StatusCode)
		}
	}
}

func TestCurrentWeather(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/v1/weather/current?lat=48.8566&lon=2.3522", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var r weather.Reading
	if err := json.Unmarshal(body, &r); err != nil {
		t.Fatal(err)
	}
	if r.TemperatureC != 21.4 || r.Coordinate.Lat != 48.8566 {
		t.Errorf("unexpected reading %+v", r)
	}

	f.wc.err = errors.New("down")
	resp, _ = f.do(t, http.MethodGet, "/api/v1/weather/current?lat=48.8566&lon=2.3522", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when unavailable, got %d", resp.StatusCode)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		target string
		status int
	}{
		{"/api/v1/locations/resolve?q=Paris", http.StatusOK},
		{"/api/v1/locations/resolve?q=Atlantis", http.StatusNotFound},
		{"/api/v1/locations/resolve?q=Broken", http.StatusBadGateway},
		{"/api/v1/locations/resolve?lat=35.6&lon=139.7", http.StatusOK},
		{"/api/v1/locations/resolve", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, _ := f.do(t, http.MethodGet, tt.target, "", nil)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.status, resp.StatusCode)
		}
	}
}

func TestObserve(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/v1/slots/current-location/observe", `{"lat": 48.8566, "lon": 2.3522}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var d alert.Decision
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if d.Weather != alert.WeatherAvailable || d.Alert != alert.AlertNone || d.Card.Temperature != "21°C" {
		t.Errorf("unexpected decision %+v", d)
	}

	f.wc.err = errors.New("down")
	_, body = f.do(t, http.MethodPost, "/api/v1/slots/current-location/observe", `{"lat": 48.8566, "lon": 2.3522}`, nil)
	d = alert.Decision{}
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if d.Weather != alert.WeatherUnavailable || d.Card.Temperature != "--°C" {
		t.Errorf("expected placeholder decision, got %+v", d)
	}
}

func TestObserveValidation(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"lat": 48.8}`,
		`{"lat": 100, "lon": 2}`,
		`not json`,
	} {
		resp, _ := f.do(t, http.MethodPost, "/api/v1/slots/current-location/observe", body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestAssessRecordsSuccessfulSearches(t *testing.T) {
	f := newFixture(t)
	user := map[string]string{UserHeader: "user-1"}

	resp, body := f.do(t, http.MethodPost, "/api/v1/slots/searched-location/assess", `{"query": "Paris"}`, user)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var d alert.Decision
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if d.Resolution != alert.Resolved || d.Emergency == nil || d.Emergency.Country != "FR" {
		t.Errorf("unexpected decision %+v", d)
	}

	f.do(t, http.MethodPost, "/api/v1/slots/searched-location/assess", `{"query": "Atlantis"}`, user)

	doc, err := f.docs.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	got := doc.Strings(history.Field)
	if len(got) != 1 || got[0] != "Paris" {
		t.Errorf("expected only the resolved search to be recorded, got %v", got)
	}
}

func TestAssessRequiresInput(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/api/v1/slots/searched-location/assess", `{"query": "  "}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestEmergencyNeverNotFound(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		code     string
		country  string
		fallback bool
	}{
		{"fr", "FR", false},
		{"ZZ", "IN", true},
	}
	for _, tt := range tests {
		resp, body := f.do(t, http.MethodGet, "/api/v1/emergency/"+tt.code, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.code, resp.StatusCode)
		}

		var out struct {
			Country  string `json:"country"`
			Fallback bool   `json:"fallback"`
			Numbers  []struct {
				Label  string `json:"label"`
				Number string `json:"number"`
				Dial   string `json:"dial"`
			} `json:"numbers"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatal(err)
		}
		if out.Country != tt.country || out.Fallback != tt.fallback {
			t.Errorf("%s: got %s fallback=%v", tt.code, out.Country, out.Fallback)
		}
		if len(out.Numbers) == 0 || !strings.HasPrefix(out.Numbers[0].Dial, "tel:") {
			t.Errorf("%s: expected dialable numbers, got %+v", tt.code, out.Numbers)
		}
	}
}

type searchesBody struct {
	Entries   []string `json:"entries"`
	Persisted bool     `json:"persisted"`
}

func TestSearches(t *testing.T) {
	f := newFixture(t)
	user := map[string]string{UserHeader: "user-2"}

	for _, q := range []string{"Paris", "Tokyo", "Paris"} {
		resp, _ := f.do(t, http.MethodPost, "/api/v1/searches", `{"query": "`+q+`"}`, user)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}

	_, body := f.do(t, http.MethodGet, "/api/v1/searches", "", user)
	var out searchesBody
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Persisted || len(out.Entries) != 2 || out.Entries[0] != "Paris" || out.Entries[1] != "Tokyo" {
		t.Errorf("unexpected searches %+v", out)
	}

	_, body = f.do(t, http.MethodDelete, "/api/v1/searches?q=Tokyo", "", user)
	out = searchesBody{}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 1 || out.Entries[0] != "Paris" {
		t.Errorf("unexpected searches after delete %+v", out)
	}
}

func TestSearchesAnonymous(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/v1/searches", `{"query": "Paris"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out searchesBody
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Persisted {
		t.Error("anonymous searches must not report persistence")
	}
	if len(out.Entries) != 1 || out.Entries[0] != "Paris" {
		t.Errorf("unexpected entries %v", out.Entries)
	}

	resp, _ = f.do(t, http.MethodDelete, "/api/v1/searches", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", resp.StatusCode)
	}
}
