package model

import "time"

// Reading represents a single flow sample taken from a source.
type Reading struct {
	Time          time.Time
	FlowPerMinute float64 // L/min

	// Values the source reported alongside the rate, if any. They are kept
	// for diagnostics only: the state engine recomputes both.
	ReportedPerSecond float64
	ReportedTotal     float64
	HasReported       bool
}
