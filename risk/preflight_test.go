package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmsman-ai/helmsman/core"
)

func testLimits() RiskLimits {
	return RiskLimits{
		MaxPositionSizeUSD:      1000,
		MaxPortfolioExposurePct: 50,
		MaxSlippageBps:          100,
		MaxGasCostPct:           2,
		MaxDailyLossPct:         5,
		MaxDrawdownPct:          15,
		MaxOpenPositions:        5,
		MaxDailyTrades:          20,
	}
}

func healthyPortfolio() core.PortfolioSnapshot {
	return core.PortfolioSnapshot{
		TotalValueUSD:    10000,
		OpenPositions:    1,
		DailyTradeCount:  2,
		DayStartEquity:   10000,
		CurrentEquityUSD: 10000,
	}
}

func TestPreflightAllowsHealthyAction(t *testing.T) {
	params := ActionParams{
		Action:               "swap",
		TradeValueUSD:        500,
		EstimatedSlippageBps: 50,
		GasCostUSD:           5,
		ChainID:              "ethereum",
	}
	decision := Preflight(params, healthyPortfolio(), testLimits())

	assert.True(t, decision.Allowed)
	assert.Equal(t, "all checks passed", decision.Reason)
	assert.Empty(t, decision.Warnings)
	// position 5 + exposure 0.5 + gas 2.5 + slippage 2.5
	assert.InDelta(t, 10.5, decision.RiskScore, 1e-9)
}

func TestPreflightDeniesOversizedPosition(t *testing.T) {
	params := ActionParams{Action: "swap", TradeValueUSD: 5000, GasCostUSD: 5, EstimatedSlippageBps: 10}
	decision := Preflight(params, healthyPortfolio(), testLimits())

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Position size")
	require.Contains(t, decision.Modifications, "suggestedTradeValueUsd")
	assert.InDelta(t, 1000, decision.Modifications["suggestedTradeValueUsd"], 1e-9)
}

func TestPreflightWarnsNearPositionLimit(t *testing.T) {
	params := ActionParams{Action: "swap", TradeValueUSD: 900, GasCostUSD: 1, EstimatedSlippageBps: 10}
	decision := Preflight(params, healthyPortfolio(), testLimits())

	assert.True(t, decision.Allowed)
	require.NotEmpty(t, decision.Warnings)
	assert.Contains(t, decision.Warnings[0], "Position size")
}

func TestPreflightDeniesNonPositiveTradeValue(t *testing.T) {
	params := ActionParams{Action: "swap", TradeValueUSD: 0}
	decision := Preflight(params, healthyPortfolio(), testLimits())

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "trade value must be positive")
}

func TestPreflightDeniesExcessiveExposure(t *testing.T) {
	pf := healthyPortfolio()
	pf.PositionValues = []float64{4000, 900}
	params := ActionParams{Action: "swap", TradeValueUSD: 500, GasCostUSD: 1, EstimatedSlippageBps: 10}
	decision := Preflight(params, pf, testLimits())

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Portfolio exposure")
}

func TestPreflightSkipsExposureForEmptyPortfolio(t *testing.T) {
	pf := healthyPortfolio()
	pf.TotalValueUSD = 0
	params := ActionParams{Action: "swap", TradeValueUSD: 100, GasCostUSD: 1, EstimatedSlippageBps: 10}
	decision := Preflight(params, pf, testLimits())

	assert.True(t, decision.Allowed)
	assert.NotContains(t, decision.Reason, "exposure")
}

func TestPreflightDeniesSlippageWithSuggestion(t *testing.T) {
	params := ActionParams{Action: "swap", TradeValueUSD: 100, GasCostUSD: 1, EstimatedSlippageBps: 250}
	decision := Preflight(params, healthyPortfolio(), testLimits())

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Slippage")
	assert.InDelta(t, 100, decision.Modifications["suggestedSlippageBps"], 1e-9)
}

func TestPreflightDeniesDailyLossAtLimit(t *testing.T) {
	pf := healthyPortfolio()
	pf.CurrentEquityUSD = 9500 // exactly 5% down
	params := ActionParams{Action: "swap", TradeValueUSD: 100, GasCostUSD: 1, EstimatedSlippageBps: 10}
	decision := Preflight(params, pf, testLimits())

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Daily loss")
}

func TestPreflightSkipsDailyLossWithoutBaseline(t *testing.T) {
	pf := healthyPortfolio()
	pf.DayStartEquity = 0
	pf.CurrentEquityUSD = 0
	params := ActionParams{Action: "swap", TradeValueUSD: 100, GasCostUSD: 1, EstimatedSlippageBps: 10}
	decision := Preflight(params, pf, testLimits())
	assert.True(t, decision.Allowed)
}

func TestPreflightDeniesTradeAndPositionCaps(t *testing.T) {
	pf := healthyPortfolio()
	pf.DailyTradeCount = 20
	pf.OpenPositions = 5
	params := ActionParams{Action: "swap", TradeValueUSD: 100, GasCostUSD: 1, EstimatedSlippageBps: 10}
	decision := Preflight(params, pf, testLimits())

	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Daily trade count")
	assert.Contains(t, decision.Reason, "Open positions")
	assert.Equal(t, 2, strings.Count(decision.Reason, ";")+1, "two failing reasons joined")
}

func TestPreflightScoreClampedForPathologicalInput(t *testing.T) {
	limits := testLimits()
	limits.MaxPositionSizeUSD = 100
	pf := core.PortfolioSnapshot{
		TotalValueUSD:    1000,
		PositionValues:   []float64{900},
		OpenPositions:    10,
		DailyTradeCount:  100,
		DayStartEquity:   1000,
		CurrentEquityUSD: 100,
	}
	params := ActionParams{
		Action:               "swap",
		TradeValueUSD:        50000,
		EstimatedSlippageBps: 10000,
		GasCostUSD:           50000,
		ChainID:              "ethereum",
	}
	decision := Preflight(params, pf, limits)

	assert.False(t, decision.Allowed)
	assert.InDelta(t, 100, decision.RiskScore, 1e-9, "score clamps at 100")
}

func TestPreflightScoreNeverNegative(t *testing.T) {
	// Equity above the day-start baseline yields a negative loss pct;
	// the daily loss contribution floors at zero and so does the total.
	pf := healthyPortfolio()
	pf.CurrentEquityUSD = 12000
	params := ActionParams{Action: "swap", TradeValueUSD: 10, GasCostUSD: 0, EstimatedSlippageBps: 0}
	decision := Preflight(params, pf, testLimits())

	assert.True(t, decision.Allowed)
	assert.GreaterOrEqual(t, decision.RiskScore, 0.0)
	assert.LessOrEqual(t, decision.RiskScore, 100.0)
}

func TestRiskLimitsValidation(t *testing.T) {
	assert.NoError(t, testLimits().Validate())
	assert.NoError(t, DefaultLimits().Validate())

	bad := testLimits()
	bad.MaxPositionSizeUSD = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid risk limits")

	assert.Error(t, RiskLimits{}.Validate())
}
