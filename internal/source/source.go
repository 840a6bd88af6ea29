package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FlowSentinel/internal/model"

	"go.uber.org/zap"
)

// Source defines the interface for pulling flow readings. Next blocks until a
// reading is available or ctx is done. The sequence cannot be restarted.
type Source interface {
	Next(ctx context.Context) (model.Reading, error)
	Name() string
	Close() error
}

// ErrMalformedLine is returned for a sensor line that looks like a reading
// but cannot be parsed. The next call continues with the following line.
var ErrMalformedLine = errors.New("malformed sensor line")

// Kinds accepted by Open.
const (
	KindSerial    = "serial"
	KindSynthetic = "synthetic"
)

// Options selects and configures a source.
type Options struct {
	Kind                string
	SerialPort          string
	BaudRate            int
	SettleDelay         time.Duration
	FallbackToSynthetic bool
	Tick                time.Duration
	ProfileSwitch       time.Duration
}

// Open creates the configured source. A serial port that cannot be opened is
// replaced by the synthetic generator when FallbackToSynthetic is set.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Source, error) {
	switch opts.Kind {
	case KindSynthetic:
		return NewSynthetic(opts.Tick, opts.ProfileSwitch, logger), nil
	case KindSerial:
		src, err := OpenSerial(ctx, opts.SerialPort, opts.BaudRate, opts.SettleDelay, logger)
		if err == nil {
			return src, nil
		}
		if !opts.FallbackToSynthetic {
			return nil, fmt.Errorf("open serial source: %w", err)
		}
		logger.Warn("could not open serial port, falling back to synthetic source",
			zap.String("port", opts.SerialPort), zap.Error(err))
		return NewSynthetic(opts.Tick, opts.ProfileSwitch, logger), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", opts.Kind)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
