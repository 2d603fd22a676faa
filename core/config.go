package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// AgentConfig is the only construction-time input for an Agent. It is
// validated eagerly and never mutated afterwards.
type AgentConfig struct {
	Name           string   `json:"name" validate:"required"`
	ID             string   `json:"id,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty"`
	Chains         []string `json:"chains,omitempty"`
	TickIntervalMs int      `json:"tick_interval_ms" validate:"gte=0"`
	MaxCycles      int      `json:"max_cycles" validate:"gte=0"`
	DryRun         bool     `json:"dry_run"`
	CooldownMs     int      `json:"cooldown_ms" validate:"gte=0"`
}

// Validate checks the config and assigns a generated ID when absent.
// An Agent must never be constructed from a config that fails here.
func (c *AgentConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid agent config: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TickInterval is the delay between successful cycles.
func (c AgentConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Cooldown is the delay after a phase failure before the cycle is retried.
func (c AgentConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}
