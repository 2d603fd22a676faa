package risk

import (
	"fmt"
	"strings"

	"github.com/helmsman-ai/helmsman/core"
)

// allChecksPassed is the fixed reason for an approved action.
const allChecksPassed = "all checks passed"

// checkResult is the outcome of one pre-flight check.
type checkResult struct {
	passed        bool
	reason        string
	warning       string
	contribution  float64
	modifications map[string]float64
}

type checkFn func(params ActionParams, pf core.PortfolioSnapshot, limits RiskLimits) checkResult

var preflightChecks = []checkFn{
	checkPositionSize,
	checkPortfolioExposure,
	checkGasCost,
	checkSlippage,
	checkDailyLoss,
	checkDailyTrades,
	checkOpenPositions,
}

// Preflight runs the seven deterministic checks against the limits and
// folds them into a single decision. Deny-by-default: one failing check
// vetoes the action. The risk score is the sum of all contributions,
// clamped to [0, 100].
func Preflight(params ActionParams, pf core.PortfolioSnapshot, limits RiskLimits) RiskDecision {
	var (
		reasons       []string
		warnings      []string
		score         float64
		modifications map[string]float64
	)
	for _, check := range preflightChecks {
		res := check(params, pf, limits)
		if !res.passed {
			reasons = append(reasons, res.reason)
		}
		if res.warning != "" {
			warnings = append(warnings, res.warning)
		}
		score += res.contribution
		for k, v := range res.modifications {
			if modifications == nil {
				modifications = make(map[string]float64)
			}
			modifications[k] = v
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	decision := RiskDecision{
		Allowed:       len(reasons) == 0,
		RiskScore:     score,
		Reason:        allChecksPassed,
		Warnings:      warnings,
		Modifications: modifications,
	}
	if !decision.Allowed {
		decision.Reason = strings.Join(reasons, "; ")
	}
	return decision
}

func checkPositionSize(params ActionParams, _ core.PortfolioSnapshot, limits RiskLimits) checkResult {
	util := params.TradeValueUSD / limits.MaxPositionSizeUSD
	if params.TradeValueUSD > limits.MaxPositionSizeUSD {
		return checkResult{
			reason:        fmt.Sprintf("Position size $%.2f exceeds limit $%.2f", params.TradeValueUSD, limits.MaxPositionSizeUSD),
			contribution:  30,
			modifications: map[string]float64{"suggestedTradeValueUsd": limits.MaxPositionSizeUSD},
		}
	}
	if util > 0.8 {
		contribution := util * 20
		if contribution > 20 {
			contribution = 20
		}
		return checkResult{
			passed:       true,
			warning:      fmt.Sprintf("Position size at %.0f%% of limit", util*100),
			contribution: contribution,
		}
	}
	return checkResult{passed: true, contribution: util * 10}
}

func checkPortfolioExposure(params ActionParams, pf core.PortfolioSnapshot, limits RiskLimits) checkResult {
	if pf.TotalValueUSD <= 0 {
		return checkResult{passed: true}
	}
	deployed := 0.0
	for _, v := range pf.PositionValues {
		deployed += v
	}
	exposurePct := (deployed + params.TradeValueUSD) / pf.TotalValueUSD * 100
	util := exposurePct / limits.MaxPortfolioExposurePct
	if exposurePct > limits.MaxPortfolioExposurePct {
		return checkResult{
			reason:       fmt.Sprintf("Portfolio exposure %.1f%% exceeds limit %.1f%%", exposurePct, limits.MaxPortfolioExposurePct),
			contribution: 25,
		}
	}
	if util > 0.9 {
		contribution := util * 15
		if contribution > 15 {
			contribution = 15
		}
		return checkResult{
			passed:       true,
			warning:      fmt.Sprintf("Portfolio exposure at %.0f%% of limit", util*100),
			contribution: contribution,
		}
	}
	return checkResult{passed: true, contribution: util * 5}
}

func checkGasCost(params ActionParams, _ core.PortfolioSnapshot, limits RiskLimits) checkResult {
	if params.TradeValueUSD <= 0 {
		return checkResult{reason: "trade value must be positive", contribution: 10}
	}
	gasPct := params.GasCostUSD / params.TradeValueUSD * 100
	util := gasPct / limits.MaxGasCostPct
	if gasPct > limits.MaxGasCostPct {
		return checkResult{
			reason:       fmt.Sprintf("Gas cost %.2f%% of trade exceeds limit %.2f%%", gasPct, limits.MaxGasCostPct),
			contribution: 15,
		}
	}
	if util > 0.75 {
		contribution := util * 10
		if contribution > 10 {
			contribution = 10
		}
		return checkResult{
			passed:       true,
			warning:      fmt.Sprintf("Gas cost at %.0f%% of limit", util*100),
			contribution: contribution,
		}
	}
	return checkResult{passed: true, contribution: util * 5}
}

func checkSlippage(params ActionParams, _ core.PortfolioSnapshot, limits RiskLimits) checkResult {
	util := params.EstimatedSlippageBps / limits.MaxSlippageBps
	if params.EstimatedSlippageBps > limits.MaxSlippageBps {
		return checkResult{
			reason:        fmt.Sprintf("Slippage %.0f bps exceeds limit %.0f bps", params.EstimatedSlippageBps, limits.MaxSlippageBps),
			contribution:  20,
			modifications: map[string]float64{"suggestedSlippageBps": limits.MaxSlippageBps},
		}
	}
	if util > 0.8 {
		contribution := util * 10
		if contribution > 10 {
			contribution = 10
		}
		return checkResult{
			passed:       true,
			warning:      fmt.Sprintf("Slippage at %.0f%% of limit", util*100),
			contribution: contribution,
		}
	}
	return checkResult{passed: true, contribution: util * 5}
}

func checkDailyLoss(_ ActionParams, pf core.PortfolioSnapshot, limits RiskLimits) checkResult {
	if pf.DayStartEquity <= 0 {
		return checkResult{passed: true}
	}
	lossPct := (pf.DayStartEquity - pf.CurrentEquityUSD) / pf.DayStartEquity * 100
	util := lossPct / limits.MaxDailyLossPct
	if lossPct >= limits.MaxDailyLossPct {
		return checkResult{
			reason:       fmt.Sprintf("Daily loss %.2f%% at or above limit %.2f%%", lossPct, limits.MaxDailyLossPct),
			contribution: 35,
		}
	}
	if util > 0.75 {
		contribution := util * 20
		if contribution > 20 {
			contribution = 20
		}
		return checkResult{
			passed:       true,
			warning:      fmt.Sprintf("Daily loss at %.0f%% of limit", util*100),
			contribution: contribution,
		}
	}
	contribution := util * 10
	if contribution < 0 {
		contribution = 0
	}
	return checkResult{passed: true, contribution: contribution}
}

func checkDailyTrades(_ ActionParams, pf core.PortfolioSnapshot, limits RiskLimits) checkResult {
	if pf.DailyTradeCount >= limits.MaxDailyTrades {
		return checkResult{
			reason:       fmt.Sprintf("Daily trade count %d at limit %d", pf.DailyTradeCount, limits.MaxDailyTrades),
			contribution: 10,
		}
	}
	return checkResult{passed: true}
}

func checkOpenPositions(_ ActionParams, pf core.PortfolioSnapshot, limits RiskLimits) checkResult {
	if pf.OpenPositions >= limits.MaxOpenPositions {
		return checkResult{
			reason:       fmt.Sprintf("Open positions %d at limit %d", pf.OpenPositions, limits.MaxOpenPositions),
			contribution: 10,
		}
	}
	return checkResult{passed: true}
}
