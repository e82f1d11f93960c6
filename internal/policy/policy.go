// Package policy holds the weight thresholds that drive a dock's LED and
// its check-record status, plus the calendar arithmetic used for expiry.
package policy

import (
	"math"
	"time"
)

// LED calibration. The LED is on at or below LedThresholdLow; the mid band
// ends at LedThresholdMidUpper.
const (
	LedThresholdLow      = 3.2
	LedThresholdMidUpper = 4.1
)

// Check-record status bounds. These differ from the LED constants and are
// kept separate on purpose until the calibration is confirmed.
const (
	StatusLowUpperBound = 3.3
	StatusMidUpperBound = 4.4
)

// FormDefaultWeight is the weight a new dock gets when none is supplied.
const FormDefaultWeight = 4.5

// Status is the three-way weight category written to the check record.
type Status string

const (
	StatusLow  Status = "Low"
	StatusMid  Status = "Mid"
	StatusFull Status = "Full"
)

// Band is the display colour band of a weight, derived from the LED constants.
type Band string

const (
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandFull Band = "full"
)

// NormalizeWeight maps a missing or non-finite weight to 0.
func NormalizeWeight(w *float64) float64 {
	if w == nil || math.IsNaN(*w) || math.IsInf(*w, 0) {
		return 0
	}
	return *w
}

// LedFor reports whether the LED should be on for the given weight.
// Callers must normalise NaN first.
func LedFor(weight float64) bool {
	return weight == 0 || weight <= LedThresholdLow
}

// StatusFor categorises a weight for the check record.
func StatusFor(weight float64) Status {
	switch {
	case weight < StatusLowUpperBound:
		return StatusLow
	case weight <= StatusMidUpperBound:
		return StatusMid
	default:
		return StatusFull
	}
}

// BandFor returns the colour band shown next to a weight.
func BandFor(weight float64) Band {
	switch {
	case weight > LedThresholdMidUpper:
		return BandFull
	case weight > LedThresholdLow:
		return BandMid
	default:
		return BandLow
	}
}

// DaysUntil returns the number of calendar days from now to expiry in loc.
// Both instants are reduced to their local date first, so the time of day
// never shifts the result. Negative values mean the date has passed.
func DaysUntil(expiry, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return civilDay(expiry.In(loc)) - civilDay(now.In(loc))
}

// civilDay counts days since the epoch for the date part of t.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
