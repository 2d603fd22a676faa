package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitInRegistrationOrder(t *testing.T) {
	b := New()
	var order []int
	b.On(AgentCycleComplete, func(Event) { order = append(order, 1) })
	b.On(AgentCycleComplete, func(Event) { order = append(order, 2) })
	b.On(AgentCycleComplete, func(Event) { order = append(order, 3) })

	b.Emit(AgentCycleComplete, "a1", nil)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestEmitOnlyMatchingType(t *testing.T) {
	b := New()
	var got int
	b.On(AgentTrade, func(Event) { got++ })

	b.Emit(AgentDecision, "a1", nil)
	assert.Zero(t, got)

	b.Emit(AgentTrade, "a1", nil)
	assert.Equal(t, 1, got)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	var got int
	unsub := b.On(AgentPaused, func(Event) { got++ })

	b.Emit(AgentPaused, "a1", nil)
	unsub()
	b.Emit(AgentPaused, "a1", nil)
	assert.Equal(t, 1, got)
}

func TestOnceRunsOnce(t *testing.T) {
	b := New()
	var once, always int
	b.Once(AgentKilled, func(Event) { once++ })
	b.On(AgentKilled, func(Event) { always++ })

	b.Emit(AgentKilled, "a1", nil)
	b.Emit(AgentKilled, "a1", nil)
	assert.Equal(t, 1, once)
	assert.Equal(t, 2, always)
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	b := New()
	var after int
	b.On(AgentError, func(Event) { panic("handler bug") })
	b.On(AgentError, func(Event) { after++ })

	assert.NotPanics(t, func() {
		b.Emit(AgentError, "a1", nil)
	})
	assert.Equal(t, 1, after, "handlers after a panicking one must still run")
}

func TestRemoveAll(t *testing.T) {
	b := New()
	var got int
	b.On(MarketSnapshot, func(Event) { got++ })
	b.On(MarketSnapshot, func(Event) { got++ })

	b.RemoveAll(MarketSnapshot)
	b.Emit(MarketSnapshot, "a1", nil)
	assert.Zero(t, got)
}

func TestEventCarriesAgentAndPayload(t *testing.T) {
	b := New()
	var got Event
	b.On(AgentPaused, func(ev Event) { got = ev })

	b.Emit(AgentPaused, "a1", PausedPayload{Reason: "manual"})
	assert.Equal(t, AgentPaused, got.Type)
	assert.Equal(t, "a1", got.AgentID)
	assert.Equal(t, PausedPayload{Reason: "manual"}, got.Payload)
	assert.False(t, got.Timestamp.IsZero())
}
