package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind indicates which transition produced the event.
type EventKind string

const (
	EventSessionStarted EventKind = "SESSION_STARTED"
	EventSessionEnded   EventKind = "SESSION_ENDED"
	EventLeakDetected   EventKind = "LEAK_DETECTED"
	EventLeakCleared    EventKind = "LEAK_CLEARED"
)

// Event is a state transition observed while applying a reading.
type Event struct {
	Kind      EventKind
	At        time.Time
	SessionID string
	Flow      float64         // L/min of the reading that caused the transition
	Duration  time.Duration   // session length or leak length, depending on Kind
	Volume    float64         // liters consumed during the session (SESSION_ENDED)
	Cost      decimal.Decimal // cost of Volume (SESSION_ENDED)
}
