package alert

import (
	"fmt"
	"math"

	"github.com/i474232898/safety-companion/internal/weather"
)

const (
	placeholderTemperature = "--°C"
	placeholderHumidity    = "--%"
	placeholderWind        = "-- m/s"
)

// Card is the display form of a reading. Rounding happens here only.
type Card struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// NewCard formats r, or returns the neutral placeholder card when r is nil.
func NewCard(r *weather.Reading) Card {
	if r == nil {
		return Card{
			Temperature: placeholderTemperature,
			Humidity:    placeholderHumidity,
			Wind:        placeholderWind,
		}
	}

	temp := math.Round(r.TemperatureC)
	if temp == 0 {
		temp = 0 // drop negative zero
	}

	return Card{
		Temperature: fmt.Sprintf("%.0f°C", temp),
		Humidity:    fmt.Sprintf("%d%%", r.HumidityPct),
		Wind:        fmt.Sprintf("%.1f m/s", r.WindSpeedMS),
		Description: r.Description,
		Icon:        r.Icon,
	}
}
