package weather

import (
	"context"
	"errors"
	"testing"

	"github.com/i474232898/safety-companion/internal/geo"
)

type stubProvider struct {
	name    string
	reading Reading
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchCurrent(ctx context.Context, coord geo.Coordinate) (Reading, error) {
	s.calls++
	if s.err != nil {
		return Reading{}, s.err
	}
	r := s.reading
	r.Provider = s.name
	r.Coordinate = coord
	return r, nil
}

type stubCityProvider struct {
	stubProvider
}

func (s *stubCityProvider) FetchByCity(ctx context.Context, city string) (Reading, error) {
	s.calls++
	if s.err != nil {
		return Reading{}, s.err
	}
	r := s.reading
	r.Provider = s.name
	return r, nil
}

func TestChain_FirstSuccessWins(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	secondary := &stubProvider{name: "secondary", reading: Reading{TemperatureC: 12}}
	tertiary := &stubProvider{name: "tertiary", reading: Reading{TemperatureC: 99}}

	c := NewChain(nil, primary, secondary, tertiary)
	r, err := c.FetchCurrent(context.Background(), geo.Coordinate{Lat: 10, Lon: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Provider != "secondary" || r.TemperatureC != 12 {
		t.Errorf("unexpected reading %+v", r)
	}
	if tertiary.calls != 0 {
		t.Errorf("tertiary provider should not be called, got %d calls", tertiary.calls)
	}
}

func TestChain_AllFail(t *testing.T) {
	cause := errors.New("upstream down")
	c := NewChain(nil, &stubProvider{name: "a", err: cause}, &stubProvider{name: "b", err: cause})

	_, err := c.FetchCurrent(context.Background(), geo.Coordinate{Lat: 1, Lon: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
}

func TestChain_NoProviders(t *testing.T) {
	_, err := NewChain(nil).FetchCurrent(context.Background(), geo.Coordinate{})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
}

func TestChain_InvalidCoordinate(t *testing.T) {
	p := &stubProvider{name: "a"}
	_, err := NewChain(nil, p).FetchCurrent(context.Background(), geo.Coordinate{Lat: 120})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if p.calls != 0 {
		t.Error("provider must not be called for an invalid coordinate")
	}
}

func TestChain_FetchByCitySkipsUnsupported(t *testing.T) {
	coordOnly := &stubProvider{name: "coords"}
	city := &stubCityProvider{stubProvider{name: "city", reading: Reading{Description: "mist"}}}

	r, err := NewChain(nil, coordOnly, city).FetchByCity(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Provider != "city" || r.Description != "mist" {
		t.Errorf("unexpected reading %+v", r)
	}
}
