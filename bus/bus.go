// Package bus is the in-process decoupling mechanism between an agent and
// its observers. Delivery is synchronous and ordered; there is no
// buffering, replay, or cross-process transport (communication wires bus
// events onto NATS and WebSocket for anything outside the process).
package bus

import (
	"log"
	"sync"
	"time"

	"github.com/helmsman-ai/helmsman/core"
)

// EventType names one event in the closed vocabulary the core publishes.
type EventType string

const (
	AgentStateChange   EventType = "agent:stateChange"
	AgentDecision      EventType = "agent:decision"
	AgentTrade         EventType = "agent:trade"
	AgentError         EventType = "agent:error"
	AgentPaused        EventType = "agent:paused"
	AgentResumed       EventType = "agent:resumed"
	AgentKilled        EventType = "agent:killed"
	AgentCycleComplete EventType = "agent:cycleComplete"
	StrategyLoaded     EventType = "strategy:loaded"
	MarketSnapshot     EventType = "market:snapshot"
)

// AllEventTypes lists the full vocabulary, for observers that mirror
// every event (WebSocket hub, NATS relay).
func AllEventTypes() []EventType {
	return []EventType{
		AgentStateChange, AgentDecision, AgentTrade, AgentError,
		AgentPaused, AgentResumed, AgentKilled, AgentCycleComplete,
		StrategyLoaded, MarketSnapshot,
	}
}

// Payload shapes, one per event type.

type StateChangePayload struct {
	From core.State `json:"from"`
	To   core.State `json:"to"`
}

type DecisionPayload struct {
	Record core.DecisionRecord `json:"record"`
}

type TradePayload struct {
	Action string        `json:"action"`
	Result core.TxResult `json:"result"`
}

type ErrorPayload struct {
	Phase       string `json:"phase"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

type PausedPayload struct {
	Reason string `json:"reason"`
}

type CycleCompletePayload struct {
	Cycle    int           `json:"cycle"`
	Duration time.Duration `json:"duration"`
}

type StrategyLoadedPayload struct {
	Strategy core.Strategy `json:"strategy"`
}

type SnapshotPayload struct {
	Snapshot core.MarketSnapshot `json:"snapshot"`
}

// Event is one emission on the bus.
type Event struct {
	Type      EventType   `json:"type"`
	AgentID   string      `json:"agent_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Handler receives events. A handler that panics is isolated: the panic
// is logged and the remaining handlers for the emission still run.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
	once    bool
}

// Bus is a typed publish/subscribe hub keyed by the closed event
// vocabulary. Safe for concurrent use; dispatch runs on the emitter's
// goroutine in registration order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[EventType][]*subscription
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[EventType][]*subscription)}
}

// On registers a handler and returns its unsubscribe function.
func (b *Bus) On(t EventType, h Handler) func() {
	return b.add(t, h, false)
}

// Once registers a handler that is removed after its first invocation.
func (b *Bus) Once(t EventType, h Handler) func() {
	return b.add(t, h, true)
}

func (b *Bus) add(t EventType, h Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscription{id: b.nextID, handler: h, once: once}
	b.subs[t] = append(b.subs[t], sub)
	id := sub.id
	return func() { b.remove(t, id) }
}

func (b *Bus) remove(t EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[t]
	for i, s := range subs {
		if s.id == id {
			b.subs[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every handler for the given event type.
func (b *Bus) RemoveAll(t EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, t)
}

// Emit invokes all handlers registered for t, synchronously and in
// registration order. Once-handlers are removed before they run.
func (b *Bus) Emit(t EventType, agentID string, payload interface{}) {
	ev := Event{Type: t, AgentID: agentID, Timestamp: time.Now(), Payload: payload}

	b.mu.Lock()
	subs := b.subs[t]
	run := make([]*subscription, len(subs))
	copy(run, subs)
	remaining := subs[:0]
	for _, s := range subs {
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	b.subs[t] = remaining
	b.mu.Unlock()

	for _, s := range run {
		invoke(s.handler, ev)
	}
}

func invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic on %s: %v", ev.Type, r)
		}
	}()
	h(ev)
}
