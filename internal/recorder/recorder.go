package recorder

import (
	"context"
	"time"

	"FlowSentinel/internal/model"
)

// SessionRecord holds one finished usage session.
type SessionRecord struct {
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
	Liters    float64
	Cost      string // decimal text, stored as-is to stay exact
}

// LeakRecord holds a leak being raised or cleared.
type LeakRecord struct {
	EventType string // "LEAK_DETECTED" or "LEAK_CLEARED"
	At        time.Time
	SessionID string
	Flow      float64
	Duration  time.Duration
}

// Recorder journals state transitions. Individual readings are never stored.
type Recorder interface {
	RecordSession(rec *SessionRecord) error
	RecordLeak(rec *LeakRecord) error
	LeakCountSince(t time.Time) (int, error)
	Close() error
}

// EventJournal adapts a Recorder to the event dispatcher.
type EventJournal struct {
	Recorder Recorder
}

func NewEventJournal(rec Recorder) *EventJournal { return &EventJournal{Recorder: rec} }

// HandleEvent writes the rows for e. Session starts are not journaled on
// their own; the start time is part of the finished session row.
func (j *EventJournal) HandleEvent(_ context.Context, e model.Event) error {
	switch e.Kind {
	case model.EventSessionEnded:
		return j.Recorder.RecordSession(&SessionRecord{
			SessionID: e.SessionID,
			StartedAt: e.At.Add(-e.Duration),
			EndedAt:   e.At,
			Liters:    e.Volume,
			Cost:      e.Cost.String(),
		})
	case model.EventLeakDetected, model.EventLeakCleared:
		return j.Recorder.RecordLeak(&LeakRecord{
			EventType: string(e.Kind),
			At:        e.At,
			SessionID: e.SessionID,
			Flow:      e.Flow,
			Duration:  e.Duration,
		})
	}
	return nil
}
