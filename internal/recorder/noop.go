package recorder

import "time"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSession(_ *SessionRecord) error    { return nil }
func (n *NoopRecorder) RecordLeak(_ *LeakRecord) error          { return nil }
func (n *NoopRecorder) LeakCountSince(_ time.Time) (int, error) { return 0, nil }
func (n *NoopRecorder) Close() error                            { return nil }
