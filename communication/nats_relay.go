// Package communication mirrors in-process bus events to out-of-process
// observers over NATS and WebSocket. The bus stays the source of truth;
// nothing here feeds back into the agents.
package communication

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/helmsman-ai/helmsman/bus"
)

// Relay republishes every bus event as JSON on a per-agent NATS subject.
type Relay struct {
	nc     *nats.Conn
	unsubs []func()
}

// NewRelay connects to the NATS server at url.
func NewRelay(url string) (*Relay, error) {
	nc, err := nats.Connect(url,
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Printf("Connected to NATS at %s", url)
	return &Relay{nc: nc}, nil
}

// subjectFor maps an event type to its NATS subject:
// agent:cycleComplete for agent abc becomes agent.abc.events.cycleComplete.
func subjectFor(t bus.EventType, agentID string) string {
	name := string(t)
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	return fmt.Sprintf("agent.%s.events.%s", agentID, name)
}

// Attach subscribes the relay to every event type on the bus.
func (r *Relay) Attach(b *bus.Bus) {
	for _, t := range bus.AllEventTypes() {
		r.unsubs = append(r.unsubs, b.On(t, r.forward))
	}
}

func (r *Relay) forward(ev bus.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("NATS relay: failed to marshal %s: %v", ev.Type, err)
		return
	}
	if err := r.nc.Publish(subjectFor(ev.Type, ev.AgentID), data); err != nil {
		log.Printf("NATS relay: failed to publish %s: %v", ev.Type, err)
	}
}

// Close detaches from the bus and closes the connection.
func (r *Relay) Close() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
	r.nc.Close()
}
