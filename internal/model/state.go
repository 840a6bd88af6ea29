package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the usage state derived from the latest reading.
type Status string

const (
	StatusIdle         Status = "IDLE"
	StatusFlowing      Status = "FLOWING"
	StatusLeakDetected Status = "LEAK DETECTED"
)

// Snapshot is the operational state as of the last applied reading.
// Values are never mutated once published.
type Snapshot struct {
	FlowPerMinute   float64
	FlowPerSecond   float64
	TotalLiters     float64
	Status          Status
	SessionStart    *time.Time
	SessionDuration time.Duration
	LeakActive      bool
	LeakDuration    time.Duration
	EstimatedCost   decimal.Decimal
	UpdatedAt       time.Time
	Readings        uint64
}

// Idle returns the initial state used at process start.
func Idle() Snapshot {
	return Snapshot{Status: StatusIdle, EstimatedCost: decimal.Zero}
}

// SessionActive reports whether water is currently flowing.
func (s *Snapshot) SessionActive() bool {
	return s.SessionStart != nil
}
