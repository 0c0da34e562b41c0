package weather

import "math"

// Reason names the field whose change made a reading significant.
type Reason string

const (
	ReasonTemperature Reason = "temperature"
	ReasonHumidity    Reason = "humidity"
	ReasonWind        Reason = "wind"
	ReasonDescription Reason = "description"
)

// Thresholds are the exclusive deltas above which a change is significant.
type Thresholds struct {
	TemperatureC float64 `json:"temperatureC"`
	HumidityPct  int     `json:"humidityPercent"`
	WindSpeedMS  float64 `json:"windSpeedMs"`
}

// DefaultThresholds are the deltas the alert affordance has always used.
var DefaultThresholds = Thresholds{
	TemperatureC: 5,
	HumidityPct:  20,
	WindSpeedMS:  5,
}

// Change describes how current differs from the previous reading.
// ProviderSwitched marks readings served by different providers, where a
// description reason may only reflect differing vocabularies.
type Change struct {
	Reasons          []Reason `json:"reasons,omitempty"`
	TemperatureDelta float64  `json:"temperatureDelta"`
	HumidityDelta    int      `json:"humidityDelta"`
	WindDelta        float64  `json:"windDelta"`
	ProviderSwitched bool     `json:"providerSwitched,omitempty"`
}

// Significant reports whether any threshold was exceeded.
func (c Change) Significant() bool {
	return len(c.Reasons) > 0
}

// Detector compares consecutive readings for a tracked slot.
type Detector struct {
	Thresholds Thresholds
}

// NewDetector returns a Detector using DefaultThresholds.
func NewDetector() Detector {
	return Detector{Thresholds: DefaultThresholds}
}

// Compare evaluates every threshold independently. A nil previous reading is
// a first observation and never produces reasons.
func (d Detector) Compare(previous *Reading, current Reading) Change {
	if previous == nil {
		return Change{}
	}

	ch := Change{
		TemperatureDelta: current.TemperatureC - previous.TemperatureC,
		HumidityDelta:    current.HumidityPct - previous.HumidityPct,
		WindDelta:        current.WindSpeedMS - previous.WindSpeedMS,
		ProviderSwitched: current.Provider != previous.Provider,
	}

	if math.Abs(ch.TemperatureDelta) > d.Thresholds.TemperatureC {
		ch.Reasons = append(ch.Reasons, ReasonTemperature)
	}
	if absInt(ch.HumidityDelta) > d.Thresholds.HumidityPct {
		ch.Reasons = append(ch.Reasons, ReasonHumidity)
	}
	if math.Abs(ch.WindDelta) > d.Thresholds.WindSpeedMS {
		ch.Reasons = append(ch.Reasons, ReasonWind)
	}
	// Exact match: provider rephrasings ("clear" vs "clear sky") do trigger.
	if current.Description != previous.Description {
		ch.Reasons = append(ch.Reasons, ReasonDescription)
	}

	return ch
}

// IsSignificant is shorthand for Compare(previous, current).Significant().
func (d Detector) IsSignificant(previous *Reading, current Reading) bool {
	return d.Compare(previous, current).Significant()
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
