package notify

import (
	"context"
	"time"

	"github.com/i474232898/safety-companion/internal/geo"
	"github.com/i474232898/safety-companion/internal/weather"
)

// Event is a raised weather-change alert.
type Event struct {
	ID         string           `json:"id"`
	Slot       string           `json:"slot"`
	Location   string           `json:"location,omitempty"`
	Coordinate geo.Coordinate   `json:"coordinate"`
	Reasons    []weather.Reason `json:"reasons"`
	Reading    weather.Reading  `json:"reading"`
	RaisedAt   time.Time        `json:"raisedAt"`
}

// Publisher delivers alert events. Delivery is best-effort; callers log
// errors and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
