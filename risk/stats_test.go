package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrawdown(t *testing.T) {
	assert.InDelta(t, 0.25, Drawdown([]float64{100, 200, 150, 180}), 1e-9)
	assert.InDelta(t, 0.30, Drawdown([]float64{100, 200, 300, 210, 280, 290}), 1e-9)
	assert.Zero(t, Drawdown([]float64{100, 150, 200}))
	assert.Zero(t, Drawdown([]float64{100}))
	assert.Zero(t, Drawdown(nil))
}

func TestSharpeRatio(t *testing.T) {
	// mean 0.15, population sd 0.05
	assert.InDelta(t, 3.0, SharpeRatio([]float64{0.1, 0.2}, 0), 1e-9)

	assert.Zero(t, SharpeRatio([]float64{0.1}, 0), "fewer than 2 points")
	assert.Zero(t, SharpeRatio([]float64{0.1, 0.1, 0.1}, 0), "zero variance")
}

func TestSharpeRatioWithRiskFreeRate(t *testing.T) {
	// Excess returns 0.05 and 0.15: mean 0.10, population sd 0.05.
	assert.InDelta(t, 2.0, SharpeRatio([]float64{0.1, 0.2}, 0.05), 1e-9)
}

func TestSortinoRatio(t *testing.T) {
	// mean excess 0.4/3; downside deviation sqrt(0.01/3) over the full
	// series length.
	got := SortinoRatio([]float64{-0.1, 0.2, 0.3}, 0)
	assert.InDelta(t, 2.309401, got, 1e-6)

	assert.Zero(t, SortinoRatio([]float64{0.1, 0.2}, 0), "no downside observations")
	assert.Zero(t, SortinoRatio(nil, 0))
}

func TestValueAtRisk(t *testing.T) {
	returns := []float64{-0.05, 0.01, 0.02, -0.02, 0.03}
	assert.InDelta(t, 0.05, ValueAtRisk(returns, 0.95), 1e-9)

	// Index clamps to the top of the range at zero confidence.
	assert.InDelta(t, -0.03, ValueAtRisk(returns, 0), 1e-9)
	assert.Zero(t, ValueAtRisk(nil, 0.95))
}

func TestConcentrationIndex(t *testing.T) {
	assert.InDelta(t, 0.46, ConcentrationIndex([]float64{0.6, 0.3, 0.1}), 1e-9)
	assert.InDelta(t, 0.5, ConcentrationIndex([]float64{0.5, 0.5}), 1e-9)
	assert.InDelta(t, 1.0, ConcentrationIndex([]float64{1}), 1e-9)
	assert.Zero(t, ConcentrationIndex(nil))
}
