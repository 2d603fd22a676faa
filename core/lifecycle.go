package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// State is one phase of the agent lifecycle. Exactly one state is active
// at any instant.
type State string

const (
	StateIdle       State = "IDLE"
	StateSensing    State = "SENSING"
	StateThinking   State = "THINKING"
	StateActing     State = "ACTING"
	StateReflecting State = "REFLECTING"
	StateError      State = "ERROR"
	StateCooldown   State = "COOLDOWN"
	StatePaused     State = "PAUSED"
	StateKilled     State = "KILLED"
)

// LifecycleEvent drives the machine from one state to the next.
type LifecycleEvent string

const (
	EventStart            LifecycleEvent = "START"
	EventSenseComplete    LifecycleEvent = "SENSE_COMPLETE"
	EventThinkComplete    LifecycleEvent = "THINK_COMPLETE"
	EventActComplete      LifecycleEvent = "ACT_COMPLETE"
	EventReflectComplete  LifecycleEvent = "REFLECT_COMPLETE"
	EventError            LifecycleEvent = "ERROR"
	EventCooldownComplete LifecycleEvent = "COOLDOWN_COMPLETE"
	EventPause            LifecycleEvent = "PAUSE"
	EventResume           LifecycleEvent = "RESUME"
	EventKill             LifecycleEvent = "KILL"
)

var (
	// ErrMachineKilled is returned for every event sent after KILL.
	ErrMachineKilled = errors.New("lifecycle machine is killed")
	// ErrInvalidTransition is returned for an event the current state
	// does not accept. The driver only emits legal sequences, so seeing
	// this at runtime indicates a driver bug.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// Machine is the finite-state definition of one agent's phase sequence.
// Safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	state     State
	cycles    int
	lastError string
}

// NewMachine returns a machine in IDLE with zero completed cycles.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// Fire applies an event. detail carries the error message for EventError
// and is ignored otherwise.
func (m *Machine) Fire(ev LifecycleEvent, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateKilled {
		return ErrMachineKilled
	}

	if ev == EventKill {
		m.state = StateKilled
		return nil
	}
	if ev == EventPause {
		switch m.state {
		case StateIdle, StateSensing, StateThinking, StateActing,
			StateReflecting, StateError, StateCooldown:
			m.state = StatePaused
			return nil
		}
		return m.reject(ev)
	}

	switch m.state {
	case StateIdle:
		if ev == EventStart {
			m.state = StateSensing
			return nil
		}
	case StateSensing:
		switch ev {
		case EventSenseComplete:
			m.state = StateThinking
			return nil
		case EventError:
			m.toError(detail)
			return nil
		}
	case StateThinking:
		switch ev {
		case EventThinkComplete:
			m.state = StateActing
			return nil
		case EventError:
			m.toError(detail)
			return nil
		}
	case StateActing:
		switch ev {
		case EventActComplete:
			m.state = StateReflecting
			return nil
		case EventError:
			m.toError(detail)
			return nil
		}
	case StateReflecting:
		switch ev {
		case EventReflectComplete:
			m.state = StateIdle
			m.cycles++
			return nil
		case EventError:
			m.toError(detail)
			return nil
		}
	case StateError:
		if ev == EventCooldownComplete {
			m.state = StateCooldown
			return nil
		}
	case StateCooldown:
		if ev == EventStart {
			m.state = StateIdle
			m.lastError = ""
			return nil
		}
	case StatePaused:
		if ev == EventResume {
			m.state = StateIdle
			return nil
		}
	}
	return m.reject(ev)
}

func (m *Machine) toError(detail string) {
	m.state = StateError
	m.lastError = detail
}

func (m *Machine) reject(ev LifecycleEvent) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, m.state)
}

// State returns the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Cycles returns the number of completed cycles.
func (m *Machine) Cycles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles
}

// LastError returns the message recorded by the most recent EventError,
// cleared when the machine leaves COOLDOWN.
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// MachineSnapshot is the opaque-serializable checkpoint of a machine.
type MachineSnapshot struct {
	State     State  `json:"state"`
	Cycles    int    `json:"cycles"`
	LastError string `json:"last_error,omitempty"`
}

// Snapshot serializes the machine for external checkpointing.
func (m *Machine) Snapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(MachineSnapshot{
		State:     m.state,
		Cycles:    m.cycles,
		LastError: m.lastError,
	})
}

var validStates = map[State]bool{
	StateIdle: true, StateSensing: true, StateThinking: true,
	StateActing: true, StateReflecting: true, StateError: true,
	StateCooldown: true, StatePaused: true, StateKilled: true,
}

// RestoreMachine rebuilds a machine from a Snapshot payload, resuming its
// exact prior state and cycle count.
func RestoreMachine(data []byte) (*Machine, error) {
	var snap MachineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid machine snapshot: %w", err)
	}
	if !validStates[snap.State] {
		return nil, fmt.Errorf("invalid machine snapshot: unknown state %q", snap.State)
	}
	if snap.Cycles < 0 {
		return nil, fmt.Errorf("invalid machine snapshot: negative cycle count %d", snap.Cycles)
	}
	return &Machine{
		state:     snap.State,
		cycles:    snap.Cycles,
		lastError: snap.LastError,
	}, nil
}
