package source

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"FlowSentinel/internal/model"

	"go.uber.org/zap"
)

// Profile is a traffic pattern the synthetic generator can emit.
type Profile struct {
	Name     string
	Min, Max float64 // L/min
}

// Profiles lists the synthetic traffic patterns.
var Profiles = []Profile{
	{Name: "IDLE", Min: 0, Max: 0},
	{Name: "FLOWING", Min: 1.5, Max: 4.5},
	{Name: "LEAK", Min: 0.25, Max: 0.4},
}

// Synthetic generates controllable readings for development and testing.
// One reading is produced per Tick; every SwitchEvery a profile is drawn at
// random (the same profile may be drawn again).
type Synthetic struct {
	Tick        time.Duration
	SwitchEvery time.Duration

	Rand  *rand.Rand
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	logger     *zap.Logger
	current    int
	switchedAt time.Time
}

// NewSynthetic creates a generator starting in the idle profile.
func NewSynthetic(tick, switchEvery time.Duration, logger *zap.Logger) *Synthetic {
	seed := uint64(time.Now().UnixNano())
	return &Synthetic{
		Tick:        tick,
		SwitchEvery: switchEvery,
		Rand:        rand.New(rand.NewPCG(seed, seed>>1)),
		Now:         time.Now,
		Sleep:       sleepCtx,
		logger:      logger.Named("synthetic"),
	}
}

func (s *Synthetic) Name() string { return KindSynthetic }

func (s *Synthetic) Close() error { return nil }

// Profile returns the profile currently being emitted.
func (s *Synthetic) Profile() Profile { return Profiles[s.current] }

func (s *Synthetic) Next(ctx context.Context) (model.Reading, error) {
	if err := s.Sleep(ctx, s.Tick); err != nil {
		return model.Reading{}, err
	}
	now := s.Now()
	if s.switchedAt.IsZero() {
		s.switchedAt = now
	}
	if now.Sub(s.switchedAt) > s.SwitchEvery {
		s.current = s.Rand.IntN(len(Profiles))
		s.switchedAt = now
		s.logger.Info("simulating profile", zap.String("profile", Profiles[s.current].Name))
	}

	p := Profiles[s.current]
	rate := p.Min
	if p.Max > p.Min {
		rate = math.Round((p.Min+s.Rand.Float64()*(p.Max-p.Min))*100) / 100
	}
	return model.Reading{Time: now, FlowPerMinute: rate}, nil
}
