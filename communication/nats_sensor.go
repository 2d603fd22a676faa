package communication

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/helmsman-ai/helmsman/agent"
	"github.com/helmsman-ai/helmsman/core"
)

// NATSSensor is an agent.Sensor that requests a market snapshot from a
// data provider over NATS request/reply. The provider listens on
// market.snapshot and answers with a JSON core.MarketSnapshot.
type NATSSensor struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

var _ agent.Sensor = (*NATSSensor)(nil)

type snapshotRequest struct {
	AgentID string   `json:"agent_id"`
	Chains  []string `json:"chains"`
}

// NewNATSSensor connects to url. An empty subject defaults to
// market.snapshot.
func NewNATSSensor(url, subject string, timeout time.Duration) (*NATSSensor, error) {
	nc, err := nats.Connect(url, nats.Timeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	if subject == "" {
		subject = "market.snapshot"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NATSSensor{nc: nc, subject: subject, timeout: timeout}, nil
}

// Gather requests a fresh snapshot. A missing or slow provider surfaces
// as a phase error, putting the agent into cooldown.
func (s *NATSSensor) Gather(ctx context.Context, agentID string, chains []string) (*core.MarketSnapshot, error) {
	payload, err := json.Marshal(snapshotRequest{AgentID: agentID, Chains: chains})
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	msg, err := s.nc.RequestWithContext(reqCtx, s.subject, payload)
	if err != nil {
		return nil, fmt.Errorf("market data request failed: %w", err)
	}

	var snapshot core.MarketSnapshot
	if err := json.Unmarshal(msg.Data, &snapshot); err != nil {
		return nil, fmt.Errorf("invalid market snapshot: %w", err)
	}
	snapshot.AgentID = agentID
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now()
	}
	return &snapshot, nil
}

// Close closes the NATS connection.
func (s *NATSSensor) Close() {
	s.nc.Close()
}
