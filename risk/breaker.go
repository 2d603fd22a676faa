package risk

import (
	"log"
	"sort"
	"sync"
	"time"
)

// BreakerType is a failure category guarded by its own circuit breaker.
type BreakerType string

const (
	BreakerPortfolioDrawdown BreakerType = "PORTFOLIO_DRAWDOWN"
	BreakerFlashCrash        BreakerType = "FLASH_CRASH"
	BreakerGasSpike          BreakerType = "GAS_SPIKE"
	BreakerRPCFailure        BreakerType = "RPC_FAILURE"
	BreakerOracleStale       BreakerType = "ORACLE_STALE"
	BreakerContractAnomaly   BreakerType = "CONTRACT_ANOMALY"
)

// BreakerStatus is the classic three-state breaker status.
type BreakerStatus string

const (
	BreakerClosed   BreakerStatus = "CLOSED"
	BreakerOpen     BreakerStatus = "OPEN"
	BreakerHalfOpen BreakerStatus = "HALF_OPEN"
)

// BreakerState is the externally visible state of one breaker.
type BreakerState struct {
	Type          BreakerType   `json:"type"`
	Status        BreakerStatus `json:"status"`
	TrippedAt     *time.Time    `json:"tripped_at,omitempty"`
	CooldownUntil *time.Time    `json:"cooldown_until,omitempty"`
	TripCount     int           `json:"trip_count"`
	LastError     string        `json:"last_error,omitempty"`
}

// BreakerConfig controls recovery timing for one breaker type.
type BreakerConfig struct {
	Cooldown       time.Duration `json:"cooldown"`
	HalfOpenProbes int           `json:"half_open_probes"`
}

// DefaultBreakerConfigs returns the stock cooldown/probe settings.
func DefaultBreakerConfigs() map[BreakerType]BreakerConfig {
	return map[BreakerType]BreakerConfig{
		BreakerPortfolioDrawdown: {Cooldown: 30 * time.Minute, HalfOpenProbes: 3},
		BreakerFlashCrash:        {Cooldown: 15 * time.Minute, HalfOpenProbes: 5},
		BreakerGasSpike:          {Cooldown: 5 * time.Minute, HalfOpenProbes: 2},
		BreakerRPCFailure:        {Cooldown: 2 * time.Minute, HalfOpenProbes: 3},
		BreakerOracleStale:       {Cooldown: 5 * time.Minute, HalfOpenProbes: 2},
		BreakerContractAnomaly:   {Cooldown: 60 * time.Minute, HalfOpenProbes: 5},
	}
}

// BreakerManager tracks one breaker per failure category. It may be
// shared by concurrently running agents, so every state mutation runs
// under a single mutex. Recovery is lazy: an OPEN breaker moves to
// HALF_OPEN only when queried after its cooldown elapsed; there is no
// background timer.
type BreakerManager struct {
	mu      sync.Mutex
	now     func() time.Time
	configs map[BreakerType]BreakerConfig
	states  map[BreakerType]*BreakerState
	probes  map[BreakerType]int
}

// NewBreakerManager creates a manager with every breaker CLOSED. A nil
// configs map uses DefaultBreakerConfigs; types missing from a supplied
// map fall back to their defaults.
func NewBreakerManager(configs map[BreakerType]BreakerConfig) *BreakerManager {
	merged := DefaultBreakerConfigs()
	for t, c := range configs {
		merged[t] = c
	}
	states := make(map[BreakerType]*BreakerState, len(merged))
	for t := range merged {
		states[t] = &BreakerState{Type: t, Status: BreakerClosed}
	}
	return &BreakerManager{
		now:     time.Now,
		configs: merged,
		states:  states,
		probes:  make(map[BreakerType]int),
	}
}

// Trip opens the breaker unconditionally, regardless of its prior status.
func (m *BreakerManager) Trip(t BreakerType, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[t]
	if !ok {
		return
	}
	now := m.now()
	until := now.Add(m.configs[t].Cooldown)
	st.Status = BreakerOpen
	st.TrippedAt = &now
	st.CooldownUntil = &until
	st.TripCount++
	st.LastError = errMsg
	delete(m.probes, t)
	log.Printf("circuit breaker %s tripped (count %d): %s", t, st.TripCount, errMsg)
}

// Reset closes the breaker manually. The trip count is preserved.
func (m *BreakerManager) Reset(t BreakerType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[t]
	if !ok {
		return
	}
	st.Status = BreakerClosed
	st.TrippedAt = nil
	st.CooldownUntil = nil
	delete(m.probes, t)
}

// maybeRecoverLocked applies the lazy OPEN -> HALF_OPEN transition.
func (m *BreakerManager) maybeRecoverLocked(st *BreakerState) {
	if st.Status == BreakerOpen && st.CooldownUntil != nil && !m.now().Before(*st.CooldownUntil) {
		st.Status = BreakerHalfOpen
	}
}

// Check returns the breaker's status, applying lazy recovery first.
func (m *BreakerManager) Check(t BreakerType) BreakerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[t]
	if !ok {
		return BreakerClosed
	}
	m.maybeRecoverLocked(st)
	return st.Status
}

// AllClear reports whether every breaker is CLOSED after lazy recovery
// checks. A HALF_OPEN breaker still blocks.
func (m *BreakerManager) AllClear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.states {
		m.maybeRecoverLocked(st)
		if st.Status != BreakerClosed {
			return false
		}
	}
	return true
}

// RecordProbeSuccess counts one successful probe on a HALF_OPEN breaker.
// Once the configured probe count is reached the breaker closes and the
// call returns true; any other call returns false.
func (m *BreakerManager) RecordProbeSuccess(t BreakerType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[t]
	if !ok {
		return false
	}
	m.maybeRecoverLocked(st)
	if st.Status != BreakerHalfOpen {
		return false
	}
	m.probes[t]++
	if m.probes[t] >= m.configs[t].HalfOpenProbes {
		st.Status = BreakerClosed
		st.TrippedAt = nil
		st.CooldownUntil = nil
		delete(m.probes, t)
		return true
	}
	return false
}

// Tripped returns every breaker whose status is not CLOSED, after lazy
// recovery checks.
func (m *BreakerManager) Tripped() []BreakerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BreakerState
	for _, st := range m.states {
		m.maybeRecoverLocked(st)
		if st.Status != BreakerClosed {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// States returns a copy of every breaker's state for reporting.
func (m *BreakerManager) States() []BreakerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BreakerState, 0, len(m.states))
	for _, st := range m.states {
		m.maybeRecoverLocked(st)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
