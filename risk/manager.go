// Package risk is the deterministic safety layer that holds veto power
// over every action the lifecycle engine produces. Denial is routine, not
// exceptional: it is communicated through return values, never errors.
package risk

import (
	"fmt"
	"strings"
	"sync"

	"github.com/helmsman-ai/helmsman/core"
)

// Manager composes the pre-flight validator and the circuit breaker
// manager into one veto authority, and exposes portfolio-level risk
// statistics for reporting.
type Manager struct {
	mu       sync.RWMutex
	limits   RiskLimits
	breakers *BreakerManager
}

// NewManager validates the limits eagerly and wires the breaker manager.
// A nil breaker manager gets a fresh one with default configs.
func NewManager(limits RiskLimits, breakers *BreakerManager) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if breakers == nil {
		breakers = NewBreakerManager(nil)
	}
	return &Manager{limits: limits, breakers: breakers}, nil
}

// Limits returns the limits currently in effect.
func (m *Manager) Limits() RiskLimits {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits
}

// SetLimits replaces the limits at runtime. Invalid limits are rejected
// and the previous valid limits stay in effect.
func (m *Manager) SetLimits(limits RiskLimits) error {
	if err := limits.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.limits = limits
	m.mu.Unlock()
	return nil
}

// Breakers exposes the breaker manager for tripping and operator resets.
func (m *Manager) Breakers() *BreakerManager {
	return m.breakers
}

// ValidateAction is the single gate every action passes through. Any
// non-CLOSED breaker short-circuits to an unconditional denial; otherwise
// the seven pre-flight checks decide.
func (m *Manager) ValidateAction(params ActionParams, pf core.PortfolioSnapshot) RiskDecision {
	if tripped := m.breakers.Tripped(); len(tripped) > 0 {
		parts := make([]string, 0, len(tripped))
		for _, b := range tripped {
			if b.LastError != "" {
				parts = append(parts, fmt.Sprintf("%s (%s)", b.Type, b.LastError))
			} else {
				parts = append(parts, string(b.Type))
			}
		}
		return RiskDecision{
			Allowed:   false,
			RiskScore: 100,
			Reason:    "circuit breakers tripped: " + strings.Join(parts, "; "),
		}
	}
	return Preflight(params, pf, m.Limits())
}

// PortfolioRiskScore blends drawdown, historical VaR, concentration and a
// Sharpe penalty into a 0-100 portfolio-level score for reporting. It
// plays no part in the per-action veto.
func (m *Manager) PortfolioRiskScore(equityCurve, returns, weights []float64) float64 {
	score := 0.0

	if c := Drawdown(equityCurve) * 100; c > 35 {
		score += 35
	} else {
		score += c
	}
	if c := ValueAtRisk(returns, 0.95) * 100; c > 25 {
		score += 25
	} else if c > 0 {
		score += c
	}
	if c := ConcentrationIndex(weights) * 20; c > 20 {
		score += 20
	} else {
		score += c
	}
	if sharpe := SharpeRatio(returns, 0); sharpe < 1 {
		penalty := (1 - sharpe) * 10
		if penalty > 20 {
			penalty = 20
		}
		score += penalty
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
