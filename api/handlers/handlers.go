package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/helmsman-ai/helmsman/agent"
	"github.com/helmsman-ai/helmsman/communication"
	"github.com/helmsman-ai/helmsman/core"
	"github.com/helmsman-ai/helmsman/risk"
)

// AgentFactory builds a fully wired agent for a validated config. The
// command wiring supplies it so handlers stay collaborator-agnostic.
type AgentFactory func(cfg core.AgentConfig) (*agent.Agent, error)

// Env carries the shared dependencies handlers operate on.
type Env struct {
	Risk     *risk.Manager
	WS       *communication.WebSocketManager
	NewAgent AgentFactory
}

var (
	env *Env

	registryMu sync.RWMutex
	registry   = make(map[string]*agent.Agent)
)

// Setup installs the handler environment. Call once at startup.
func Setup(e *Env) {
	env = e
}

func lookupAgent(c *gin.Context) (*agent.Agent, bool) {
	registryMu.RLock()
	a, ok := registry[c.Param("id")]
	registryMu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return nil, false
	}
	return a, true
}

type createAgentRequest struct {
	Config   core.AgentConfig `json:"config"`
	Strategy *core.Strategy   `json:"strategy,omitempty"`
}

type agentStatus struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	State  core.State `json:"state"`
	Cycles int        `json:"cycles"`
}

func statusOf(a *agent.Agent) agentStatus {
	return agentStatus{
		ID:     a.ID(),
		Name:   a.Config().Name,
		State:  a.State(),
		Cycles: a.Cycles(),
	}
}

// CreateAgent registers a new agent from a validated config.
func CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent payload"})
		return
	}
	a, err := env.NewAgent(req.Config)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Strategy != nil {
		a.SetStrategy(*req.Strategy)
	}
	registryMu.Lock()
	registry[a.ID()] = a
	registryMu.Unlock()
	c.JSON(http.StatusCreated, statusOf(a))
}

// ListAgents returns the status of every registered agent.
func ListAgents(c *gin.Context) {
	registryMu.RLock()
	statuses := make([]agentStatus, 0, len(registry))
	for _, a := range registry {
		statuses = append(statuses, statusOf(a))
	}
	registryMu.RUnlock()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	c.JSON(http.StatusOK, statuses)
}

// GetAgentStatus returns one agent's status.
func GetAgentStatus(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, statusOf(a))
}

// SetStrategy binds or hot-swaps an agent's strategy.
func SetStrategy(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	var strategy core.Strategy
	if err := c.ShouldBindJSON(&strategy); err != nil || strategy.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy payload"})
		return
	}
	a.SetStrategy(strategy)
	c.JSON(http.StatusOK, statusOf(a))
}

// StartAgent starts an agent's cycle loop.
func StartAgent(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	if err := a.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statusOf(a))
}

// PauseAgent pauses an agent.
func PauseAgent(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	if err := a.Pause(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statusOf(a))
}

// ResumeAgent resumes a paused agent.
func ResumeAgent(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	if err := a.Resume(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statusOf(a))
}

// KillAgent terminates an agent permanently.
func KillAgent(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	a.Kill()
	c.JSON(http.StatusOK, statusOf(a))
}

// GetRecentDecisions returns the agent's latest decision records.
func GetRecentDecisions(c *gin.Context) {
	a, ok := lookupAgent(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	records, err := a.RecentDecisions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetBreakers returns every circuit breaker's state.
func GetBreakers(c *gin.Context) {
	c.JSON(http.StatusOK, env.Risk.Breakers().States())
}

// ResetBreaker closes a breaker manually.
func ResetBreaker(c *gin.Context) {
	env.Risk.Breakers().Reset(risk.BreakerType(c.Param("type")))
	c.JSON(http.StatusOK, env.Risk.Breakers().States())
}

type tripRequest struct {
	Reason string `json:"reason"`
}

// TripBreaker opens a breaker manually.
func TripBreaker(c *gin.Context) {
	var req tripRequest
	_ = c.ShouldBindJSON(&req)
	env.Risk.Breakers().Trip(risk.BreakerType(c.Param("type")), req.Reason)
	c.JSON(http.StatusOK, env.Risk.Breakers().States())
}

// GetLimits returns the risk limits in effect.
func GetLimits(c *gin.Context) {
	c.JSON(http.StatusOK, env.Risk.Limits())
}

// SetLimits replaces the risk limits. Invalid limits are rejected and the
// previous ones stay in effect.
func SetLimits(c *gin.Context) {
	var limits risk.RiskLimits
	if err := c.ShouldBindJSON(&limits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limits payload"})
		return
	}
	if err := env.Risk.SetLimits(limits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, env.Risk.Limits())
}
