package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRate(t *testing.T) {
	tests := []struct {
		rate float64
		ok   bool
	}{
		{0, true},
		{0.2, true},
		{4.5, true},
		{-0.01, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for _, tt := range tests {
		err := ValidateRate(tt.rate)
		if tt.ok {
			assert.NoError(t, err, "rate %v", tt.rate)
		} else {
			assert.ErrorIs(t, err, ErrInvalidRate, "rate %v", tt.rate)
		}
	}
}

func TestIntegrateVolume(t *testing.T) {
	assert.InDelta(t, 0.05, IntegrateVolume(3.0, time.Second), 1e-12)
	assert.InDelta(t, 1.5, IntegrateVolume(3.0, 30*time.Second), 1e-12)
	assert.Zero(t, IntegrateVolume(3.0, 0))
	assert.Zero(t, IntegrateVolume(3.0, -time.Second))
	assert.Zero(t, IntegrateVolume(0, time.Minute))
}

func TestCalculateCost_Exact(t *testing.T) {
	price := decimal.RequireFromString("0.35")
	cost := CalculateCost(10.0, price)
	require.True(t, cost.Equal(decimal.RequireFromString("3.50")), "got %s", cost)

	// 0.1 + 0.2 style inputs stay exact once converted.
	cost = CalculateCost(0.3, price)
	assert.Equal(t, "0.105", cost.String())

	assert.True(t, CalculateCost(0, price).IsZero())
}
