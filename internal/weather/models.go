package weather

import (
	"time"

	"github.com/i474232898/safety-companion/internal/geo"
)

// Reading is a normalized current-conditions observation for a coordinate.
// Readings are immutable once built; a newer reading supersedes an older one.
//
// Units are fixed at ingestion: temperature in Celsius, humidity in whole
// percent, wind speed in metres per second.
type Reading struct {
	Provider     string         `json:"provider"`
	Coordinate   geo.Coordinate `json:"coordinate"`
	TemperatureC float64        `json:"temperatureC"`
	HumidityPct  int            `json:"humidityPercent"`
	WindSpeedMS  float64        `json:"windSpeedMs"`
	Description  string         `json:"description"`
	Icon         string         `json:"icon"`
	CapturedAt   time.Time      `json:"capturedAt"` // always UTC
}
