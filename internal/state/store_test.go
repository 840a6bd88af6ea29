package state

import (
	"sync"
	"testing"
	"time"

	"FlowSentinel/internal/detector"
	"FlowSentinel/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(detector.Thresholds{
		LeakFlow:  0.2,
		LeakTime:  3 * time.Second,
		UnitPrice: decimal.RequireFromString("0.35"),
	})
}

func TestStore_InitialSnapshot(t *testing.T) {
	s := newTestStore()
	snap := s.Snapshot()
	assert.Equal(t, model.StatusIdle, snap.Status)
	assert.Zero(t, snap.Readings)
}

func TestStore_ErrorKeepsLastSnapshot(t *testing.T) {
	s := newTestStore()
	base := time.Now()
	_, err := s.Apply(model.Reading{Time: base, FlowPerMinute: 2})
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Apply(model.Reading{Time: base.Add(time.Second), FlowPerMinute: -3})
	require.ErrorIs(t, err, detector.ErrInvalidReading)

	after := s.Snapshot()
	assert.Equal(t, before.Readings, after.Readings)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

// consistent reports whether the fields of one snapshot agree with each other.
func consistent(s model.Snapshot) bool {
	switch s.Status {
	case model.StatusIdle:
		return s.FlowPerMinute == 0 && s.SessionStart == nil && s.SessionDuration == 0 && !s.LeakActive && s.LeakDuration == 0
	case model.StatusFlowing:
		return s.FlowPerMinute > 0 && s.SessionStart != nil && !s.LeakActive && s.LeakDuration == 0
	case model.StatusLeakDetected:
		return s.FlowPerMinute >= 0.2 && s.SessionStart != nil && s.LeakActive
	}
	return false
}

func TestStore_ConcurrentReadsNeverTear(t *testing.T) {
	s := newTestStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rates := []float64{0, 0.3, 0.3, 0.3, 0.3, 0.3, 2.5, 0.1, 0, 4.0, 0.25, 0.25, 0.25, 0.25, 0}

	done := make(chan struct{})
	var wg sync.WaitGroup
	var torn sync.Map
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastReadings uint64
			var lastTotal float64
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := s.Snapshot()
				if !consistent(snap) {
					torn.Store(snap.Readings, snap)
				}
				if snap.Readings < lastReadings || snap.TotalLiters < lastTotal {
					torn.Store(snap.Readings, snap)
				}
				lastReadings, lastTotal = snap.Readings, snap.TotalLiters
			}
		}()
	}

	sec := 0
	for round := 0; round < 200; round++ {
		for _, r := range rates {
			_, err := s.Apply(model.Reading{Time: base.Add(time.Duration(sec) * time.Second), FlowPerMinute: r})
			require.NoError(t, err)
			sec++
		}
	}
	close(done)
	wg.Wait()

	torn.Range(func(k, v any) bool {
		t.Errorf("inconsistent snapshot observed at reading %v: %+v", k, v)
		return true
	})
	assert.Equal(t, uint64(sec), s.Snapshot().Readings)
}
