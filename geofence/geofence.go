package geofence

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadiusM = 6371000.0

	// MaxAccuracyM caps the client-reported GPS accuracy so a device cannot
	// self-report unlimited error to bypass the fence.
	MaxAccuracyM = 500.0

	// SessionStartSlackM widens the fence a little on the initial QR scan;
	// order-time re-checks use no slack.
	SessionStartSlackM = 20.0
)

// Result is the outcome of one geofence evaluation. DistanceMeters is
// rounded to the nearest meter, matching what clients are shown.
type Result struct {
	WithinRange           bool    `json:"within_range"`
	DistanceMeters        float64 `json:"distance_meters"`
	EffectiveRadiusMeters float64 `json:"effective_radius_meters"`
}

// Point builds an orb.Point from a latitude/longitude pair.
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Evaluate decides whether customer lies within baseRadius of anchor, widened
// by the clamped reported accuracy plus slack. A distance exactly equal to
// the effective radius counts as inside.
func Evaluate(customer, anchor orb.Point, baseRadiusM, accuracyM, slackM float64) Result {
	distance := haversineDistance(customer, anchor)

	accuracy := accuracyM
	if accuracy < 0 {
		accuracy = 0
	}
	if accuracy > MaxAccuracyM {
		accuracy = MaxAccuracyM
	}
	effective := baseRadiusM + accuracy + slackM

	// The unrounded distance decides; only the reported value is rounded.
	// The epsilon keeps a boundary-exact distance inside despite float
	// jitter in the trig without letting a real centimeter overshoot pass.
	return Result{
		WithinRange:           distance-effective <= 1e-6,
		DistanceMeters:        math.Round(distance),
		EffectiveRadiusMeters: effective,
	}
}

// haversineDistance calculates the great-circle distance between two points
// in meters.
func haversineDistance(p1, p2 orb.Point) float64 {
	lat1Rad := p1[1] * math.Pi / 180
	lng1Rad := p1[0] * math.Pi / 180
	lat2Rad := p2[1] * math.Pi / 180
	lng2Rad := p2[0] * math.Pi / 180

	deltaLat := lat2Rad - lat1Rad
	deltaLng := lng2Rad - lng1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}
