package risk

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RiskLimits are the operator-supplied limits every action is validated
// against. All fields are required and must be positive.
type RiskLimits struct {
	MaxPositionSizeUSD      float64 `json:"maxPositionSizeUsd" validate:"required,gt=0"`
	MaxPortfolioExposurePct float64 `json:"maxPortfolioExposurePct" validate:"required,gt=0"`
	MaxSlippageBps          float64 `json:"maxSlippageBps" validate:"required,gt=0"`
	MaxGasCostPct           float64 `json:"maxGasCostPct" validate:"required,gt=0"`
	MaxDailyLossPct         float64 `json:"maxDailyLossPct" validate:"required,gt=0"`
	MaxDrawdownPct          float64 `json:"maxDrawdownPct" validate:"required,gt=0"`
	MaxOpenPositions        int     `json:"maxOpenPositions" validate:"required,gt=0"`
	MaxDailyTrades          int     `json:"maxDailyTrades" validate:"required,gt=0"`
}

// DefaultLimits returns conservative stock limits for local runs.
// Operators supply their own in production.
func DefaultLimits() RiskLimits {
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

// Validate rejects incomplete or non-positive limits with a descriptive
// error. Limits are never partially applied.
func (l RiskLimits) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("invalid risk limits: %w", err)
	}
	return nil
}

// ActionParams is the per-action input to the risk layer.
type ActionParams struct {
	Action               string  `json:"action"`
	TradeValueUSD        float64 `json:"tradeValueUsd"`
	EstimatedSlippageBps float64 `json:"estimatedSlippageBps"`
	GasCostUSD           float64 `json:"gasCostUsd"`
	ChainID              string  `json:"chainId"`
}

// RiskDecision is the validator's verdict. Allowed=false is
// authoritative: the action must not proceed.
type RiskDecision struct {
	Allowed       bool               `json:"allowed"`
	RiskScore     float64            `json:"riskScore"`
	Reason        string             `json:"reason"`
	Warnings      []string           `json:"warnings,omitempty"`
	Modifications map[string]float64 `json:"modifications,omitempty"`
}
