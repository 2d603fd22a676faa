package risk

import (
	"math"
	"sort"
)

// Drawdown returns the maximum peak-to-trough fractional decline over the
// whole equity curve. 0 for series shorter than 2 points or series that
// never decline.
func Drawdown(equityCurve []float64) float64 {
	if len(equityCurve) < 2 {
		return 0
	}
	peak := equityCurve[0]
	maxDD := 0.0
	for _, v := range equityCurve[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio is the mean excess return over the population standard
// deviation of excess returns. 0 for fewer than 2 points or zero variance.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	n := float64(len(returns))
	mean := 0.0
	for _, r := range returns {
		mean += r - riskFreeRate
	}
	mean /= n

	variance := 0.0
	for _, r := range returns {
		d := (r - riskFreeRate) - mean
		variance += d * d
	}
	variance /= n
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// SortinoRatio is the mean excess return over the downside deviation.
// The downside deviation squares only negative excess returns but divides
// by the full series length. 0 when there are no downside observations.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	n := float64(len(returns))
	mean := 0.0
	downside := 0.0
	hasDownside := false
	for _, r := range returns {
		excess := r - riskFreeRate
		mean += excess
		if excess < 0 {
			downside += excess * excess
			hasDownside = true
		}
	}
	mean /= n
	if !hasDownside {
		return 0
	}
	dev := math.Sqrt(downside / n)
	if dev == 0 {
		return 0
	}
	return mean / dev
}

// ValueAtRisk estimates historical VaR at the given confidence level,
// reported as a positive loss magnitude.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return -sorted[idx]
}

// ConcentrationIndex is the Herfindahl-Hirschman index of the portfolio
// weights: 0 for an empty portfolio, 1 for a single full-weight position.
func ConcentrationIndex(weights []float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w * w
	}
	return sum
}
