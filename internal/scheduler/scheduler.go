package scheduler

import (
	"context"
	"fmt"
	"time"

	"FlowSentinel/internal/model"
	"FlowSentinel/internal/notifier"
	"FlowSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Snapshotter exposes the current operational state.
type Snapshotter interface {
	Snapshot() model.Snapshot
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	State    Snapshotter
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context

	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, st Snapshotter, n notifier.Notifier, rec recorder.Recorder, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		State:    st,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		now:      time.Now,
		logger:   logger.Named("scheduler"),
	}
}

// RegisterAll registers the status report and leak reminder tasks.
func (s *Scheduler) RegisterAll(statusCron, leakReminderCron string) error {
	if _, err := s.Cron.AddFunc(statusCron, s.statusReport); err != nil {
		return fmt.Errorf("register status report: %w", err)
	}
	if _, err := s.Cron.AddFunc(leakReminderCron, s.leakReminder); err != nil {
		return fmt.Errorf("register leak reminder: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) statusReport() {
	snap := s.State.Snapshot()
	fields := []zap.Field{
		zap.String("status", string(snap.Status)),
		zap.Float64("flow_l_min", snap.FlowPerMinute),
		zap.Float64("total_l", snap.TotalLiters),
		zap.String("estimated_cost", snap.EstimatedCost.StringFixed(2)),
		zap.Uint64("readings", snap.Readings),
	}
	if n, err := s.Recorder.LeakCountSince(s.now().Add(-24 * time.Hour)); err != nil {
		s.logger.Error("count recent leaks", zap.Error(err))
	} else {
		fields = append(fields, zap.Int("leaks_24h", n))
	}
	s.logger.Info("status report", fields...)
}

func (s *Scheduler) leakReminder() {
	snap := s.State.Snapshot()
	if !snap.LeakActive {
		return
	}
	s.logger.Warn("leak still active", zap.Duration("duration", snap.LeakDuration))
	s.trySend(notifier.FormatLeakReminder(&snap))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	snap := s.State.Snapshot()
	switch command {
	case "/status", "/start", "status":
		return notifier.FormatStatus(&snap)
	case "/leak", "leak":
		if !snap.LeakActive {
			return "✅ No leak detected."
		}
		return notifier.FormatLeakReminder(&snap)
	default:
		return "Available commands:\n• /status\n• /leak"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}
