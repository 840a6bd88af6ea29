package calculator

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidRate is returned for negative, NaN or infinite flow rates.
var ErrInvalidRate = errors.New("flow rate must be a finite non-negative number")

// PerSecond converts a L/min rate to L/sec.
func PerSecond(perMinute float64) float64 {
	return perMinute / 60.0
}

// ValidateRate checks that a rate can be applied to the state.
func ValidateRate(perMinute float64) error {
	if math.IsNaN(perMinute) || math.IsInf(perMinute, 0) || perMinute < 0 {
		return ErrInvalidRate
	}
	return nil
}

// IntegrateVolume returns the liters that flowed at perMinute over elapsed.
// Negative elapsed (clock stepped backwards) yields zero.
func IntegrateVolume(perMinute float64, elapsed time.Duration) float64 {
	if elapsed <= 0 || perMinute <= 0 {
		return 0
	}
	return PerSecond(perMinute) * elapsed.Seconds()
}
