package core

import "time"

// Strategy describes what an agent is trying to achieve. It is bound to an
// agent before start and can be hot-swapped between cycles.
type Strategy struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Constraints []string `json:"constraints,omitempty"`
}

// PortfolioSnapshot is the caller-supplied view of the portfolio at
// validation time. The risk layer holds no portfolio state of its own.
type PortfolioSnapshot struct {
	TotalValueUSD    float64   `json:"total_value_usd"`
	PositionValues   []float64 `json:"position_values,omitempty"`
	OpenPositions    int       `json:"open_positions"`
	DailyTradeCount  int       `json:"daily_trade_count"`
	DayStartEquity   float64   `json:"day_start_equity_usd"`
	CurrentEquityUSD float64   `json:"current_equity_usd"`
}

// MarketSnapshot is what the sense collaborator gathers each cycle.
type MarketSnapshot struct {
	AgentID      string                 `json:"agent_id"`
	Timestamp    time.Time              `json:"timestamp"`
	Chains       []string               `json:"chains,omitempty"`
	Prices       map[string]float64     `json:"prices,omitempty"`
	Observations map[string]interface{} `json:"observations,omitempty"`
	Portfolio    PortfolioSnapshot      `json:"portfolio"`
}

// Decision is the per-cycle output of the think phase. It lives only for
// the duration of one cycle; reflect folds it into a DecisionRecord.
type Decision struct {
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Reasoning string                 `json:"reasoning"`
	ChainID   string                 `json:"chainId"`
}

// TxResult is what the act collaborator returns for an executed action.
// A nil result is a valid no-op outcome.
type TxResult struct {
	Hash    string `json:"hash"`
	ChainID string `json:"chain_id"`
	Status  string `json:"status"`
	DryRun  bool   `json:"dry_run"`
}

// DecisionRecord is the durable record of one completed (or attempted)
// cycle, handed to the memory collaborator during reflect.
type DecisionRecord struct {
	ID        string                 `json:"id"`
	AgentID   string                 `json:"agent_id"`
	Timestamp time.Time              `json:"timestamp"`
	State     string                 `json:"state"`
	Reasoning string                 `json:"reasoning"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	ChainID   string                 `json:"chain_id"`
	Outcome   string                 `json:"outcome,omitempty"`
	Reward    float64                `json:"reward,omitempty"`
	Learnings string                 `json:"learnings,omitempty"`
}
