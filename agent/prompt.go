package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helmsman-ai/helmsman/core"
)

// buildPrompt assembles the think-phase prompt from the bound strategy,
// the current market snapshot and the cycle count.
func buildPrompt(strategy core.Strategy, snapshot *core.MarketSnapshot, cycle int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are executing the strategy %q.\n", strategy.Name)
	if strategy.Description != "" {
		fmt.Fprintf(&b, "Strategy description: %s\n", strategy.Description)
	}
	if len(strategy.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range strategy.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	fmt.Fprintf(&b, "\nThis is cycle %d.\n", cycle)

	if snapshot != nil {
		if data, err := json.MarshalIndent(snapshot, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nCurrent market snapshot:\n%s\n", data)
		}
	}

	b.WriteString(`
Decide the single next action. Respond with valid JSON only, no additional text:
{
  "action": "the action to take, or \"hold\" to do nothing",
  "params": {"tradeValueUsd": 0, "estimatedSlippageBps": 0, "gasCostUsd": 0},
  "reasoning": "why you chose this action",
  "chainId": "target chain"
}`)

	return b.String()
}

// parseDecision extracts the per-cycle decision from model output,
// tolerating markdown code fences around the JSON body.
func parseDecision(content string) (*core.Decision, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var decision core.Decision
	if err := json.Unmarshal([]byte(trimmed), &decision); err != nil {
		return nil, fmt.Errorf("decision is not valid JSON: %w", err)
	}
	if decision.Action == "" {
		return nil, fmt.Errorf("decision has no action")
	}
	return &decision, nil
}

// floatParam reads a numeric decision param, defaulting to 0 when absent
// or non-numeric.
func floatParam(params map[string]interface{}, key string) float64 {
	if params == nil {
		return 0
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}
