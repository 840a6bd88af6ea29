// Package ingest drives the acquisition loop: pull a reading, apply it to the
// state store, hand resulting events to the dispatcher, repeat.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FlowSentinel/internal/metrics"
	"FlowSentinel/internal/model"
	"FlowSentinel/internal/source"
	"FlowSentinel/internal/state"

	"go.uber.org/zap"
)

// EventHandler consumes state transitions off the acquisition path.
type EventHandler interface {
	HandleEvent(ctx context.Context, e model.Event) error
}

// DefaultQueueSize is the number of events buffered for the dispatcher.
const DefaultQueueSize = 64

// Loop pulls readings from one source into one store.
type Loop struct {
	Source  source.Source
	Store   *state.Store
	Metrics *metrics.Metrics
	Backoff time.Duration

	handlers []EventHandler
	events   chan model.Event
	logger   *zap.Logger
}

// NewLoop creates a Loop. Handlers are called in order for every event.
func NewLoop(src source.Source, store *state.Store, m *metrics.Metrics, backoff time.Duration, logger *zap.Logger, handlers ...EventHandler) *Loop {
	return &Loop{
		Source:   src,
		Store:    store,
		Metrics:  m,
		Backoff:  backoff,
		handlers: handlers,
		events:   make(chan model.Event, DefaultQueueSize),
		logger:   logger.Named("ingest"),
	}
}

// Run blocks until ctx is cancelled. Failures while acquiring or applying a
// reading are logged and followed by a pause; they never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		l.dispatch(ctx)
	}()
	defer func() {
		close(l.events)
		<-dispatched
	}()

	l.logger.Info("acquisition loop started", zap.String("source", l.Source.Name()))
	for {
		err := l.step(ctx)
		if ctx.Err() != nil {
			l.logger.Info("acquisition loop stopped")
			return nil
		}
		if err == nil {
			continue
		}
		if errors.Is(err, source.ErrMalformedLine) {
			l.logger.Warn("skipping reading", zap.Error(err))
		} else {
			l.logger.Error("reading failed", zap.Error(err), zap.Duration("backoff", l.Backoff))
		}
		timer := time.NewTimer(l.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("acquisition loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (l *Loop) step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.Metrics.ReadingErrors.WithLabelValues(metrics.StageProcessing).Inc()
			err = fmt.Errorf("panic while processing reading: %v", r)
		}
	}()

	r, err := l.Source.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		l.Metrics.ReadingErrors.WithLabelValues(metrics.StageAcquisition).Inc()
		return fmt.Errorf("acquire reading: %w", err)
	}

	events, err := l.Store.Apply(r)
	if err != nil {
		l.Metrics.ReadingErrors.WithLabelValues(metrics.StageProcessing).Inc()
		return fmt.Errorf("apply reading: %w", err)
	}
	l.Metrics.Observe(l.Store.Snapshot())

	for _, e := range events {
		l.publish(e)
	}
	return nil
}

func (l *Loop) publish(e model.Event) {
	l.Metrics.Events.WithLabelValues(string(e.Kind)).Inc()
	select {
	case l.events <- e:
	default:
		l.Metrics.DroppedEvents.Inc()
		l.logger.Warn("event queue full, dropping event", zap.String("kind", string(e.Kind)))
	}
}

func (l *Loop) dispatch(ctx context.Context) {
	for e := range l.events {
		fields := []zap.Field{zap.String("kind", string(e.Kind)), zap.String("session", e.SessionID)}
		switch e.Kind {
		case model.EventSessionEnded:
			fields = append(fields, zap.Duration("duration", e.Duration), zap.Float64("liters", e.Volume))
		case model.EventLeakDetected, model.EventLeakCleared:
			fields = append(fields, zap.Duration("duration", e.Duration), zap.Float64("flow", e.Flow))
		}
		l.logger.Info("state transition", fields...)

		for _, h := range l.handlers {
			if err := h.HandleEvent(ctx, e); err != nil {
				l.logger.Error("handle event", zap.String("kind", string(e.Kind)), zap.Error(err))
			}
		}
	}
}
