package alert

import (
	"github.com/i474232898/safety-companion/internal/geo"
)

// DefaultProximityRadiusKm is the distance within which a repeat alert for the
// same named place is suppressed.
const DefaultProximityRadiusKm = 30.0

// ProximityGate suppresses a second consecutive alert for the same named
// location within RadiusKm of where the last one was raised.
type ProximityGate struct {
	RadiusKm float64
}

// Suppress reports whether an alert at (name, coord) repeats the slot's last
// alert. Unnamed locations are never suppressed.
func (g ProximityGate) Suppress(slot *Slot, name string, coord geo.Coordinate) bool {
	if g.RadiusKm <= 0 || name == "" || !slot.alerted {
		return false
	}
	if slot.alertedName != name {
		return false
	}
	return geo.DistanceKm(slot.alertedCoord, coord) <= g.RadiusKm
}
