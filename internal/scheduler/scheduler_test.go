package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FlowSentinel/internal/model"
	"FlowSentinel/internal/recorder"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedState struct{ snap model.Snapshot }

func (f *fixedState) Snapshot() model.Snapshot { return f.snap }

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (c *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return c.err
}

type countingRecorder struct {
	recorder.NoopRecorder
	since time.Time
}

func (c *countingRecorder) LeakCountSince(t time.Time) (int, error) {
	c.since = t
	return 2, nil
}

func leaking() model.Snapshot {
	start := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	return model.Snapshot{
		FlowPerMinute:   0.25,
		TotalLiters:     1.5,
		Status:          model.StatusLeakDetected,
		SessionStart:    &start,
		SessionDuration: 10 * time.Minute,
		LeakActive:      true,
		LeakDuration:    10 * time.Minute,
		EstimatedCost:   decimal.RequireFromString("0.525"),
	}
}

func newTestScheduler(t *testing.T, snap model.Snapshot) (*Scheduler, *captureNotifier, *countingRecorder) {
	n := &captureNotifier{}
	rec := &countingRecorder{}
	s := NewScheduler(context.Background(), &fixedState{snap: snap}, n, rec, zaptest.NewLogger(t))
	return s, n, rec
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, model.Idle())
	require.NoError(t, s.RegisterAll("0 */5 * * * *", "0 */10 * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s, _, _ = newTestScheduler(t, model.Idle())
	assert.Error(t, s.RegisterAll("every five minutes", "0 */10 * * * *"))
}

func TestLeakReminder(t *testing.T) {
	s, n, _ := newTestScheduler(t, model.Idle())
	s.leakReminder()
	assert.Empty(t, n.sent, "no reminder without a leak")

	s, n, _ = newTestScheduler(t, leaking())
	s.leakReminder()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "Leak still active")
	assert.Contains(t, n.sent[0], "10m0s")

	n.err = errors.New("telegram down")
	s.leakReminder()
	assert.Len(t, n.sent, 2, "send errors are logged, not fatal")
}

func TestStatusReport_QueriesLastDay(t *testing.T) {
	s, _, rec := newTestScheduler(t, leaking())
	now := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.statusReport()
	assert.Equal(t, now.Add(-24*time.Hour), rec.since)
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestScheduler(t, model.Idle())
	assert.Contains(t, s.HandleCommand("/status"), "IDLE")
	assert.Contains(t, s.HandleCommand("/leak"), "No leak detected")
	assert.Contains(t, s.HandleCommand("/weekly"), "Available commands")

	s, _, _ = newTestScheduler(t, leaking())
	assert.Contains(t, s.HandleCommand("/status"), "LEAK DETECTED")
	assert.Contains(t, s.HandleCommand("/leak"), "Leak still active")
}
