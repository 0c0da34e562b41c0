package alert

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/safety-companion/internal/emergency"
	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/geocode"
	"github.com/i474232898/safety-companion/internal/notify"
	"github.com/i474232898/safety-companion/internal/weather"
)

// BaselinePolicy decides which reading a slot compares the next one against.
type BaselinePolicy string

const (
	// BaselineLastFetched replaces the baseline after every successful fetch.
	// Small successive changes never accumulate into an alert.
	BaselineLastFetched BaselinePolicy = "last-fetched"

	// BaselineLastAlerted keeps the first reading, and then the last reading
	// that crossed a threshold, so slow drift is eventually reported.
	BaselineLastAlerted BaselinePolicy = "last-alerted"
)

type WeatherStatus string

const (
	WeatherAvailable   WeatherStatus = "available"
	WeatherUnavailable WeatherStatus = "unavailable"
)

type AlertStatus string

const (
	AlertNone       AlertStatus = "none"
	AlertRaise      AlertStatus = "raise"
	AlertSuppressed AlertStatus = "suppressed"
)

type ResolutionStatus string

const (
	Resolved           ResolutionStatus = "resolved"
	ResolutionNotFound ResolutionStatus = "not_found"
	ResolutionFailed   ResolutionStatus = "failed"
)

const (
	publishTimeout = 5 * time.Second
	refreshWorkers = 4
)

// EmergencyInfo is the dial pad shown alongside a decision.
type EmergencyInfo struct {
	Country  string            `json:"country"`
	Fallback bool              `json:"fallback"`
	Numbers  []emergency.Entry `json:"numbers"`
}

// Decision is everything the client needs to render a slot.
type Decision struct {
	Slot       SlotID                    `json:"slot"`
	Weather    WeatherStatus             `json:"weather"`
	Reading    *weather.Reading          `json:"reading,omitempty"`
	Card       Card                      `json:"card"`
	Alert      AlertStatus               `json:"alert"`
	AlertID    string                    `json:"alertId,omitempty"`
	Change     *weather.Change           `json:"change,omitempty"`
	Resolution ResolutionStatus          `json:"resolution,omitempty"`
	Location   *geocode.ResolvedLocation `json:"location,omitempty"`
	Emergency  *EmergencyInfo            `json:"emergency,omitempty"`

	// Stale is set when a newer fetch for the slot committed first. The
	// reading is returned but never compared, stored or alerted on.
	Stale bool `json:"stale,omitempty"`
}

// Input is a free-text query or a coordinate. Query wins when both are set.
type Input struct {
	Query      string
	Coordinate *geo.Coordinate
}

// Options tune a Policy. Zero values select the defaults.
type Options struct {
	Detector  weather.Detector
	Baseline  BaselinePolicy
	Proximity ProximityGate
	Publisher notify.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

// Policy combines resolution, weather, change detection and the emergency
// directory into presentation decisions. Safe for concurrent use.
type Policy struct {
	weather   weather.Client
	resolver  geocode.Resolver
	directory *emergency.Directory
	slots     *SlotStore

	detector  weather.Detector
	baseline  BaselinePolicy
	proximity ProximityGate
	publisher notify.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewPolicy(wc weather.Client, resolver geocode.Resolver, directory *emergency.Directory, slots *SlotStore, opts Options) *Policy {
	if opts.Detector.Thresholds == (weather.Thresholds{}) {
		opts.Detector = weather.NewDetector()
	}
	if opts.Baseline == "" {
		opts.Baseline = BaselineLastFetched
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if slots == nil {
		slots = NewSlotStore()
	}

	return &Policy{
		weather:   wc,
		resolver:  resolver,
		directory: directory,
		slots:     slots,
		detector:  opts.Detector,
		baseline:  opts.Baseline,
		proximity: opts.Proximity,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Slots exposes the tracked slots.
func (p *Policy) Slots() *SlotStore {
	return p.slots
}

// Observe fetches weather for coord and compares it against the slot baseline.
// It never fails: an unavailable reading yields a placeholder decision.
func (p *Policy) Observe(ctx context.Context, slot SlotID, coord geo.Coordinate) Decision {
	return p.observe(ctx, slot, coord, "")
}

// Assess resolves in, observes weather at the resolved coordinate and attaches
// the emergency numbers for the resolved country. Reverse-geocoding failures
// still observe weather at the given coordinate; forward failures do not.
func (p *Policy) Assess(ctx context.Context, slot SlotID, in Input) Decision {
	query := strings.TrimSpace(in.Query)

	var (
		loc geocode.ResolvedLocation
		err error
	)
	switch {
	case query != "":
		loc, err = p.resolver.ResolveByText(ctx, query)
	case in.Coordinate != nil:
		loc, err = p.resolver.ResolveByCoordinate(ctx, *in.Coordinate)
	default:
		err = &geocode.ResolutionError{Cause: geocode.ErrInvalidInput}
	}

	if err != nil {
		status := ResolutionFailed
		if errors.Is(err, geocode.ErrNotFound) {
			status = ResolutionNotFound
		}
		p.logger.Warn("location resolution failed", "slot", slot, "query", query, "error", err)

		var d Decision
		if query == "" && in.Coordinate != nil && in.Coordinate.Validate() == nil {
			d = p.observe(ctx, slot, *in.Coordinate, "")
		} else {
			d = unavailable(slot)
		}
		d.Resolution = status
		d.Emergency = p.emergencyFor("")
		return d
	}

	d := p.observe(ctx, slot, loc.Coordinate, loc.Name)
	d.Resolution = Resolved
	d.Location = &loc
	d.Emergency = p.emergencyFor(loc.CountryCode)
	return d
}

// Refresh re-observes every tracked slot at its last coordinate, at most
// refreshWorkers at a time. Slots not started before ctx ends are skipped.
func (p *Policy) Refresh(ctx context.Context) []Decision {
	slots := p.slots.List()
	results := make([]*Decision, len(slots))

	sem := make(chan struct{}, refreshWorkers)
	var wg sync.WaitGroup

loop:
	for i, s := range slots {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			d := p.observe(ctx, s.ID, s.Coordinate, s.LocationName)
			results[i] = &d
		}()
	}
	wg.Wait()

	out := make([]Decision, 0, len(slots))
	for _, d := range results {
		if d != nil {
			out = append(out, *d)
		}
	}
	if skipped := len(slots) - len(out); skipped > 0 {
		p.logger.Warn("refresh ended before all slots were observed", "skipped", skipped, "error", ctx.Err())
	}
	return out
}

func (p *Policy) observe(ctx context.Context, id SlotID, coord geo.Coordinate, name string) Decision {
	seq := p.slots.begin(id, coord, name)

	reading, err := p.weather.FetchCurrent(ctx, coord)
	if err != nil {
		p.logger.Warn("weather unavailable", "slot", id, "coord", coord.String(), "error", err)
		return unavailable(id)
	}

	d := Decision{
		Slot:    id,
		Weather: WeatherAvailable,
		Reading: &reading,
		Card:    NewCard(&reading),
		Alert:   AlertNone,
	}

	kept := p.slots.commit(id, seq, func(s *Slot) {
		change := p.detector.Compare(s.Baseline, reading)
		if change.Significant() {
			d.Change = &change
			d.Alert = AlertRaise
			if p.proximity.Suppress(s, name, coord) {
				d.Alert = AlertSuppressed
			}
		}

		if s.Baseline == nil || p.baseline == BaselineLastFetched || change.Significant() {
			r := reading
			s.Baseline = &r
		}
		s.UpdatedAt = reading.CapturedAt

		if d.Alert == AlertRaise {
			s.alerted = true
			s.alertedName = name
			s.alertedCoord = coord
		}
	})
	d.Stale = !kept

	if d.Alert == AlertRaise {
		d.AlertID = uuid.NewString()
		p.publish(ctx, d, name, coord)
	}

	p.logger.Debug("slot observed",
		"slot", id,
		"provider", reading.Provider,
		"alert", d.Alert,
		"stale", d.Stale,
	)
	return d
}

func (p *Policy) publish(ctx context.Context, d Decision, name string, coord geo.Coordinate) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	e := notify.Event{
		ID:         d.AlertID,
		Slot:       string(d.Slot),
		Location:   name,
		Coordinate: coord,
		Reasons:    d.Change.Reasons,
		Reading:    *d.Reading,
		RaisedAt:   p.now().UTC(),
	}
	if err := p.publisher.Publish(ctx, e); err != nil {
		p.logger.Warn("alert publish failed", "id", e.ID, "error", err)
	}
}

func (p *Policy) emergencyFor(countryCode string) *EmergencyInfo {
	set, used := p.directory.Resolve(countryCode)
	return &EmergencyInfo{
		Country:  used,
		Fallback: used != strings.ToUpper(strings.TrimSpace(countryCode)),
		Numbers:  set.Entries(),
	}
}

func unavailable(id SlotID) Decision {
	return Decision{
		Slot:    id,
		Weather: WeatherUnavailable,
		Card:    NewCard(nil),
		Alert:   AlertNone,
	}
}
