// Package agent drives the sense-think-act-reflect cycle. One Agent owns
// one lifecycle machine and is the only caller of the risk layer; every
// phase outcome is broadcast on the event bus for external observers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helmsman-ai/helmsman/bus"
	"github.com/helmsman-ai/helmsman/core"
	"github.com/helmsman-ai/helmsman/risk"
)

var (
	// ErrNoStrategy is returned by Start when no strategy is bound.
	ErrNoStrategy = errors.New("no strategy bound")
	// ErrAlreadyRunning is returned by Start while the loop is active.
	ErrAlreadyRunning = errors.New("agent already running")
)

const defaultSystemPrompt = "You are an autonomous on-chain agent. " +
	"You decide exactly one action per cycle and always answer with valid JSON."

// phaseError marks a recoverable sense/think/act/reflect failure. The
// loop catches it at the phase boundary, cools down and retries the full
// cycle from sense. Anything else escaping a cycle is fatal.
type phaseError struct {
	phase string
	err   error
}

func (e *phaseError) Error() string { return e.phase + ": " + e.err.Error() }
func (e *phaseError) Unwrap() error { return e.err }

// Agent is the lifecycle driver.
type Agent struct {
	cfg    core.AgentConfig
	events *bus.Bus
	risk   *risk.Manager
	collab Collaborators

	mu       sync.Mutex
	machine  *core.Machine
	strategy *core.Strategy
	cancel   context.CancelFunc
	done     chan struct{}

	// Per-cycle transient state, touched only by the loop goroutine and
	// discarded at the end of reflect.
	snapshot *core.MarketSnapshot
	decision *core.Decision
}

// New validates the config and builds an idle agent. Every collaborator,
// the risk manager and the bus are required; the agent never exists in a
// half-valid state.
func New(cfg core.AgentConfig, collab Collaborators, riskMgr *risk.Manager, events *bus.Bus) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collab.Sensor == nil || collab.Thinker == nil || collab.Actor == nil || collab.Memory == nil {
		return nil, fmt.Errorf("agent %s: all four collaborators are required", cfg.Name)
	}
	if riskMgr == nil {
		return nil, fmt.Errorf("agent %s: risk manager is required", cfg.Name)
	}
	if events == nil {
		return nil, fmt.Errorf("agent %s: event bus is required", cfg.Name)
	}
	return &Agent{
		cfg:     cfg,
		events:  events,
		risk:    riskMgr,
		collab:  collab,
		machine: core.NewMachine(),
	}, nil
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.cfg.ID }

// Config returns the immutable construction-time config.
func (a *Agent) Config() core.AgentConfig { return a.cfg }

// State returns the externally visible lifecycle state. A killed agent
// reports KILLED, not IDLE, so observers can tell it from an idle one.
func (a *Agent) State() core.State { return a.machine.State() }

// Cycles returns the number of completed cycles.
func (a *Agent) Cycles() int { return a.machine.Cycles() }

// SetStrategy binds (or hot-swaps) the strategy definition.
func (a *Agent) SetStrategy(strategy core.Strategy) {
	a.mu.Lock()
	a.strategy = &strategy
	a.mu.Unlock()
	a.events.Emit(bus.StrategyLoaded, a.cfg.ID, bus.StrategyLoadedPayload{Strategy: strategy})
}

// Start launches the cycle loop. It fails with ErrNoStrategy before a
// strategy is bound and leaves the machine untouched on failure.
func (a *Agent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.strategy == nil {
		return ErrNoStrategy
	}
	if a.cancel != nil {
		return ErrAlreadyRunning
	}
	switch a.machine.State() {
	case core.StateKilled:
		return core.ErrMachineKilled
	case core.StateIdle:
	default:
		return fmt.Errorf("cannot start from %s", a.machine.State())
	}
	a.launchLocked()
	return nil
}

func (a *Agent) launchLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

// Pause stops the loop at its next suspension point, cancelling any
// pending timer. Idempotent.
func (a *Agent) Pause() error {
	a.stopLoop()
	switch a.machine.State() {
	case core.StatePaused, core.StateKilled:
		return nil
	}
	if err := a.fire(core.EventPause, ""); err != nil {
		return err
	}
	a.events.Emit(bus.AgentPaused, a.cfg.ID, bus.PausedPayload{Reason: "manual"})
	return nil
}

// Resume restarts a paused agent's loop.
func (a *Agent) Resume() error {
	a.mu.Lock()
	running := a.cancel != nil
	a.mu.Unlock()
	if running {
		return ErrAlreadyRunning
	}
	if err := a.fire(core.EventResume, ""); err != nil {
		return err
	}
	a.events.Emit(bus.AgentResumed, a.cfg.ID, nil)
	a.mu.Lock()
	a.launchLocked()
	a.mu.Unlock()
	return nil
}

// Kill terminates the agent from any state, including before Start was
// ever called. The machine accepts no further events afterwards.
func (a *Agent) Kill() {
	a.stopLoop()
	from := a.machine.State()
	if err := a.machine.Fire(core.EventKill, ""); err == nil {
		a.events.Emit(bus.AgentStateChange, a.cfg.ID, bus.StateChangePayload{From: from, To: core.StateKilled})
	}
	a.events.Emit(bus.AgentKilled, a.cfg.ID, nil)
}

// stopLoop cancels the loop context and waits for the goroutine to exit.
func (a *Agent) stopLoop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Checkpoint serializes the lifecycle machine for external persistence.
func (a *Agent) Checkpoint() ([]byte, error) {
	return a.machine.Snapshot()
}

// RestoreCheckpoint resumes the agent in the exact state and cycle count
// captured by a prior Checkpoint. Rejected while the loop is running.
func (a *Agent) RestoreCheckpoint(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return ErrAlreadyRunning
	}
	machine, err := core.RestoreMachine(data)
	if err != nil {
		return err
	}
	a.machine = machine
	return nil
}

// RecentDecisions reads the agent's latest records from memory.
func (a *Agent) RecentDecisions(ctx context.Context, limit int) ([]core.DecisionRecord, error) {
	return a.collab.Memory.GetRecent(ctx, a.cfg.ID, limit)
}

// fire applies a lifecycle event and broadcasts the state change.
func (a *Agent) fire(ev core.LifecycleEvent, detail string) error {
	from := a.machine.State()
	if err := a.machine.Fire(ev, detail); err != nil {
		return err
	}
	if to := a.machine.State(); to != from {
		a.events.Emit(bus.AgentStateChange, a.cfg.ID, bus.StateChangePayload{From: from, To: to})
	}
	return nil
}

// run is the cycle loop. Phase errors cool down and retry the full cycle
// from sense; everything else is fatal and stops the loop for good.
func (a *Agent) run(ctx context.Context, done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("agent %s: cycle loop panic: %v", a.cfg.ID, r)
			a.events.Emit(bus.AgentError, a.cfg.ID, bus.ErrorPayload{
				Phase:       "loop",
				Message:     fmt.Sprintf("panic: %v", r),
				Recoverable: false,
			})
		}
		a.mu.Lock()
		a.cancel = nil
		a.done = nil
		a.mu.Unlock()
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		cycleStart := time.Now()
		err := a.runCycle(ctx)
		if ctx.Err() != nil {
			// Pause or kill cut the cycle short; their callers own the
			// machine from here.
			return
		}
		if err != nil {
			var pe *phaseError
			if !errors.As(err, &pe) {
				// Not a collaborator failure: a bug in the loop's own
				// control logic. Never retried automatically.
				log.Printf("agent %s: fatal loop error: %v", a.cfg.ID, err)
				a.events.Emit(bus.AgentError, a.cfg.ID, bus.ErrorPayload{
					Phase:       "loop",
					Message:     err.Error(),
					Recoverable: false,
				})
				return
			}
			log.Printf("agent %s: %s phase failed: %v", a.cfg.ID, pe.phase, pe.err)
			a.events.Emit(bus.AgentError, a.cfg.ID, bus.ErrorPayload{
				Phase:       pe.phase,
				Message:     pe.err.Error(),
				Recoverable: true,
			})
			if ferr := a.fire(core.EventCooldownComplete, ""); ferr != nil {
				a.fatal(ferr)
				return
			}
			if !a.sleep(ctx, a.cfg.Cooldown()) {
				return
			}
			if ferr := a.fire(core.EventStart, ""); ferr != nil {
				a.fatal(ferr)
				return
			}
			// COOLDOWN -> IDLE; the next iteration restarts from sense.
			continue
		}

		cycles := a.machine.Cycles()
		a.events.Emit(bus.AgentCycleComplete, a.cfg.ID, bus.CycleCompletePayload{
			Cycle:    cycles,
			Duration: time.Since(cycleStart),
		})
		if a.cfg.MaxCycles > 0 && cycles >= a.cfg.MaxCycles {
			if ferr := a.fire(core.EventPause, ""); ferr != nil {
				a.fatal(ferr)
				return
			}
			a.events.Emit(bus.AgentPaused, a.cfg.ID, bus.PausedPayload{Reason: "max cycles reached"})
			return
		}
		if !a.sleep(ctx, a.cfg.TickInterval()) {
			return
		}
	}
}

func (a *Agent) fatal(err error) {
	log.Printf("agent %s: fatal loop error: %v", a.cfg.ID, err)
	a.events.Emit(bus.AgentError, a.cfg.ID, bus.ErrorPayload{
		Phase:       "loop",
		Message:     err.Error(),
		Recoverable: false,
	})
}

// runCycle executes one full sense-think-act-reflect pass. The phase
// order is fixed; an act without a decision is a no-op, never a skip.
func (a *Agent) runCycle(ctx context.Context) error {
	if err := a.fire(core.EventStart, ""); err != nil {
		return err
	}

	// Sense.
	snapshot, err := a.collab.Sensor.Gather(ctx, a.cfg.ID, a.cfg.Chains)
	if err != nil {
		return a.phaseFailure("sense", err)
	}
	if snapshot == nil {
		return a.phaseFailure("sense", errors.New("sensor returned no snapshot"))
	}
	a.snapshot = snapshot
	a.events.Emit(bus.MarketSnapshot, a.cfg.ID, bus.SnapshotPayload{Snapshot: *snapshot})
	if err := a.fire(core.EventSenseComplete, ""); err != nil {
		return err
	}

	// Think.
	a.mu.Lock()
	strategy := *a.strategy
	a.mu.Unlock()
	prompt := buildPrompt(strategy, a.snapshot, a.machine.Cycles())
	resp, err := a.collab.Thinker.Reason(ctx, ThinkRequest{
		Prompt:       prompt,
		SystemPrompt: defaultSystemPrompt,
	})
	if err != nil {
		return a.phaseFailure("think", err)
	}
	decision, err := parseDecision(resp.Content)
	if err != nil {
		return a.phaseFailure("think", err)
	}
	a.decision = decision
	if err := a.fire(core.EventThinkComplete, ""); err != nil {
		return err
	}

	// Act.
	outcome, err := a.act(ctx)
	if err != nil {
		return a.phaseFailure("act", err)
	}
	if err := a.fire(core.EventActComplete, ""); err != nil {
		return err
	}

	// Reflect.
	record := a.buildRecord(outcome)
	if err := a.collab.Memory.Store(ctx, record); err != nil {
		return a.phaseFailure("reflect", err)
	}
	a.events.Emit(bus.AgentDecision, a.cfg.ID, bus.DecisionPayload{Record: record})
	if err := a.fire(core.EventReflectComplete, ""); err != nil {
		return err
	}
	a.snapshot = nil
	a.decision = nil
	return nil
}

// phaseFailure moves the machine to ERROR and wraps the collaborator
// error so the loop can tell it apart from control-logic failures.
func (a *Agent) phaseFailure(phase string, err error) error {
	if ferr := a.fire(core.EventError, err.Error()); ferr != nil {
		return ferr
	}
	return &phaseError{phase: phase, err: err}
}

// act gates the decision through the risk layer and executes it. A risk
// denial is a normal outcome to record, not an error.
func (a *Agent) act(ctx context.Context) (string, error) {
	d := a.decision
	if d == nil || d.Action == "" || strings.EqualFold(d.Action, "hold") {
		return "no action", nil
	}

	params := risk.ActionParams{
		Action:               d.Action,
		TradeValueUSD:        floatParam(d.Params, "tradeValueUsd"),
		EstimatedSlippageBps: floatParam(d.Params, "estimatedSlippageBps"),
		GasCostUSD:           floatParam(d.Params, "gasCostUsd"),
		ChainID:              d.ChainID,
	}
	verdict := a.risk.ValidateAction(params, a.snapshot.Portfolio)
	if !verdict.Allowed {
		log.Printf("agent %s: action %s denied: %s", a.cfg.ID, d.Action, verdict.Reason)
		return "denied: " + verdict.Reason, nil
	}

	result, err := a.collab.Actor.Execute(ctx, d.Action, d.Params, d.ChainID, a.cfg.DryRun)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "no-op", nil
	}
	a.events.Emit(bus.AgentTrade, a.cfg.ID, bus.TradePayload{Action: d.Action, Result: *result})
	return "executed " + result.Hash, nil
}

// buildRecord folds the cycle's transient state into a DecisionRecord.
func (a *Agent) buildRecord(outcome string) core.DecisionRecord {
	record := core.DecisionRecord{
		ID:        uuid.New().String(),
		AgentID:   a.cfg.ID,
		Timestamp: time.Now(),
		State:     string(a.machine.State()),
		Outcome:   outcome,
	}
	if a.decision != nil {
		record.Action = a.decision.Action
		record.Params = a.decision.Params
		record.Reasoning = a.decision.Reasoning
		record.ChainID = a.decision.ChainID
	}
	return record
}

// sleep waits for d unless the loop context is cancelled first. Both the
// inter-cycle tick and the cooldown delay go through here so pause and
// kill can cut them short.
func (a *Agent) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
