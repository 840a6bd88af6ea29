// Package detector derives usage status, session and leak state from a
// sequence of flow readings. It performs no I/O and reads no clock: time
// comes from the readings themselves.
package detector

import (
	"errors"
	"fmt"
	"time"

	"FlowSentinel/internal/calculator"
	"FlowSentinel/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidReading is returned when a reading cannot be applied. The tracker
// state is left unchanged.
var ErrInvalidReading = errors.New("invalid reading")

// Thresholds parameterise leak detection and cost accounting.
type Thresholds struct {
	LeakFlow  float64       // L/min at or above which flow counts as leak-range
	LeakTime  time.Duration // continuous leak-range time before a leak is raised
	UnitPrice decimal.Decimal
}

// Tracker is the status state machine. It is not safe for concurrent use.
type Tracker struct {
	th    Thresholds
	newID func() string

	state  model.Snapshot
	lastAt time.Time

	leakRunning bool
	leakStart   time.Time

	sessionID   string
	sessionBase float64 // total liters before the session's first reading
}

// NewTracker creates a Tracker in the idle state.
func NewTracker(th Thresholds) *Tracker {
	return &Tracker{th: th, newID: uuid.NewString, state: model.Idle()}
}

// State returns the state after the last applied reading.
func (t *Tracker) State() model.Snapshot {
	return t.state
}

// Apply advances the state machine by one reading and returns the new state
// together with any transitions it caused.
func (t *Tracker) Apply(r model.Reading) (model.Snapshot, []model.Event, error) {
	if err := calculator.ValidateRate(r.FlowPerMinute); err != nil {
		return t.state, nil, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	if r.Time.IsZero() {
		return t.state, nil, fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}

	now := r.Time
	rate := r.FlowPerMinute
	next := t.state
	var events []model.Event

	// Volume and cost.
	var step time.Duration
	if !t.lastAt.IsZero() {
		step = now.Sub(t.lastAt)
	}
	before := next.TotalLiters
	next.TotalLiters += calculator.IntegrateVolume(rate, step)
	next.FlowPerMinute = rate
	next.FlowPerSecond = calculator.PerSecond(rate)
	next.EstimatedCost = calculator.CalculateCost(next.TotalLiters, t.th.UnitPrice)

	// Rule 1: session.
	sessionID, sessionBase := t.sessionID, t.sessionBase
	if rate > 0 {
		if next.SessionStart == nil {
			start := now
			next.SessionStart = &start
			sessionID = t.newID()
			sessionBase = before
			events = append(events, model.Event{
				Kind: model.EventSessionStarted, At: now, SessionID: sessionID, Flow: rate,
			})
		}
		next.Status = model.StatusFlowing
		next.SessionDuration = since(now, *next.SessionStart)
	} else {
		if next.SessionStart != nil {
			volume := next.TotalLiters - sessionBase
			events = append(events, model.Event{
				Kind:      model.EventSessionEnded,
				At:        now,
				SessionID: sessionID,
				Duration:  since(now, *next.SessionStart),
				Volume:    volume,
				Cost:      calculator.CalculateCost(volume, t.th.UnitPrice),
			})
		}
		next.Status = model.StatusIdle
		next.SessionStart = nil
		next.SessionDuration = 0
		sessionID, sessionBase = "", 0
	}

	// Rule 2: leak timer. Any sub-threshold reading resets it.
	leakRunning, leakStart := t.leakRunning, t.leakStart
	var leakElapsed time.Duration
	if rate >= t.th.LeakFlow {
		if !leakRunning {
			leakRunning, leakStart = true, now
		}
		leakElapsed = since(now, leakStart)
	} else {
		if next.LeakActive {
			events = append(events, model.Event{
				Kind: model.EventLeakCleared, At: now, SessionID: t.sessionID,
				Flow: rate, Duration: next.LeakDuration,
			})
		}
		leakRunning, leakStart = false, time.Time{}
		next.LeakActive = false
		next.LeakDuration = 0
	}

	// Rule 3: promotion overrides FLOWING. An already promoted leak stays
	// promoted while the timer keeps running.
	if leakRunning && (leakElapsed >= t.th.LeakTime || next.LeakActive) {
		if !next.LeakActive {
			events = append(events, model.Event{
				Kind: model.EventLeakDetected, At: now, SessionID: sessionID,
				Flow: rate, Duration: leakElapsed,
			})
		}
		next.LeakActive = true
		next.LeakDuration = leakElapsed
		next.Status = model.StatusLeakDetected
	}

	next.UpdatedAt = now
	next.Readings++

	t.state = next
	t.lastAt = now
	t.leakRunning, t.leakStart = leakRunning, leakStart
	t.sessionID, t.sessionBase = sessionID, sessionBase
	return next, events, nil
}

// LeakElapsed returns how long the current leak-range run has lasted as of
// the last reading, or zero if the timer is stopped.
func (t *Tracker) LeakElapsed() time.Duration {
	if !t.leakRunning {
		return 0
	}
	return since(t.lastAt, t.leakStart)
}

func since(now, start time.Time) time.Duration {
	if d := now.Sub(start); d > 0 {
		return d
	}
	return 0
}
