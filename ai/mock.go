package ai

import (
	"context"
	"encoding/json"

	"github.com/helmsman-ai/helmsman/agent"
	"github.com/helmsman-ai/helmsman/core"
)

// MockThinker is a deterministic Thinker used when no API key is
// configured and in local dry runs. It always decides to hold.
type MockThinker struct{}

var _ agent.Thinker = MockThinker{}

// Reason returns a canned hold decision.
func (MockThinker) Reason(_ context.Context, _ agent.ThinkRequest) (*agent.ThinkResponse, error) {
	decision := core.Decision{
		Action:    "hold",
		Reasoning: "mock thinker: no model configured, holding position",
	}
	content, err := json.Marshal(decision)
	if err != nil {
		return nil, err
	}
	return &agent.ThinkResponse{Content: string(content)}, nil
}
