// Package paper provides sense and act collaborators for paper trading:
// a simulated portfolio that tracks the actions the agent takes without
// touching any real venue. Used by local runs and as the default when no
// market-data endpoint is configured.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helmsman-ai/helmsman/agent"
	"github.com/helmsman-ai/helmsman/core"
)

// Book is the shared simulated portfolio behind the paper sensor and
// actor pair.
type Book struct {
	mu          sync.Mutex
	totalValue  float64
	positions   []float64
	dayStart    float64
	dailyTrades int
}

// NewBook starts a portfolio holding startingEquity in cash.
func NewBook(startingEquity float64) *Book {
	return &Book{
		totalValue: startingEquity,
		dayStart:   startingEquity,
	}
}

func (b *Book) snapshot() core.PortfolioSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	positions := make([]float64, len(b.positions))
	copy(positions, b.positions)
	return core.PortfolioSnapshot{
		TotalValueUSD:    b.totalValue,
		PositionValues:   positions,
		OpenPositions:    len(positions),
		DailyTradeCount:  b.dailyTrades,
		DayStartEquity:   b.dayStart,
		CurrentEquityUSD: b.totalValue,
	}
}

func (b *Book) recordTrade(valueUSD float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if valueUSD > 0 {
		b.positions = append(b.positions, valueUSD)
	}
	b.dailyTrades++
}

// Sensor is a paper-trading agent.Sensor backed by a Book.
type Sensor struct {
	book *Book
}

var _ agent.Sensor = (*Sensor)(nil)

// NewSensor wraps the book as a sense collaborator.
func NewSensor(book *Book) *Sensor {
	return &Sensor{book: book}
}

// Gather returns a snapshot of the simulated portfolio.
func (s *Sensor) Gather(ctx context.Context, agentID string, chains []string) (*core.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &core.MarketSnapshot{
		AgentID:   agentID,
		Timestamp: time.Now(),
		Chains:    chains,
		Portfolio: s.book.snapshot(),
	}, nil
}

// Actor is a paper-trading agent.Actor backed by the same Book.
type Actor struct {
	book *Book
}

var _ agent.Actor = (*Actor)(nil)

// NewActor wraps the book as an act collaborator.
func NewActor(book *Book) *Actor {
	return &Actor{book: book}
}

// Execute simulates the action against the book and returns a synthetic
// transaction result. Dry runs do not move the book.
func (a *Actor) Execute(ctx context.Context, action string, params map[string]interface{}, chainID string, dryRun bool) (*core.TxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !dryRun {
		value, _ := params["tradeValueUsd"].(float64)
		a.book.recordTrade(value)
	}
	return &core.TxResult{
		Hash:    fmt.Sprintf("paper-%s", uuid.New().String()),
		ChainID: chainID,
		Status:  "simulated",
		DryRun:  dryRun,
	}, nil
}
