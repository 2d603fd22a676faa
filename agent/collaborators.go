package agent

import (
	"context"

	"github.com/helmsman-ai/helmsman/core"
)

// The four collaborator roles the agent drives. Implementations live
// outside this package (ai, storage, or test fakes) and are injected at
// construction; the agent never constructs one itself.

// Sensor reads the environment for one cycle.
type Sensor interface {
	Gather(ctx context.Context, agentID string, chains []string) (*core.MarketSnapshot, error)
}

// ThinkRequest is the prompt handed to the think collaborator.
type ThinkRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
}

// ThinkResponse carries the raw model output; the agent parses Content
// as a JSON Decision.
type ThinkResponse struct {
	Content string
}

// Thinker produces a proposed decision from a prompt.
type Thinker interface {
	Reason(ctx context.Context, req ThinkRequest) (*ThinkResponse, error)
}

// Actor carries out an approved action. A nil TxResult is a valid no-op.
type Actor interface {
	Execute(ctx context.Context, action string, params map[string]interface{}, chainID string, dryRun bool) (*core.TxResult, error)
}

// Memory persists decision records across cycles.
type Memory interface {
	Store(ctx context.Context, record core.DecisionRecord) error
	GetRecent(ctx context.Context, agentID string, limit int) ([]core.DecisionRecord, error)
}

// Collaborators bundles the four roles for construction.
type Collaborators struct {
	Sensor  Sensor
	Thinker Thinker
	Actor   Actor
	Memory  Memory
}
