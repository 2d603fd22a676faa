package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMachineStartsIdle(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 0, m.Cycles())
	assert.Empty(t, m.LastError())
}

func TestFullCycleIncrementsCycles(t *testing.T) {
	m := NewMachine()
	steps := []struct {
		event LifecycleEvent
		want  State
	}{
		{EventStart, StateSensing},
		{EventSenseComplete, StateThinking},
		{EventThinkComplete, StateActing},
		{EventActComplete, StateReflecting},
		{EventReflectComplete, StateIdle},
	}
	for _, step := range steps {
		require.NoError(t, m.Fire(step.event, ""))
		assert.Equal(t, step.want, m.State())
	}
	assert.Equal(t, 1, m.Cycles())
}

func TestErrorCooldownRecovery(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Fire(EventStart, ""))
	require.NoError(t, m.Fire(EventError, "rpc timed out"))
	assert.Equal(t, StateError, m.State())
	assert.Equal(t, "rpc timed out", m.LastError())

	require.NoError(t, m.Fire(EventCooldownComplete, ""))
	assert.Equal(t, StateCooldown, m.State())

	// START out of cooldown clears the recorded error.
	require.NoError(t, m.Fire(EventStart, ""))
	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.LastError())
}

func TestErrorAcceptedFromEveryActivePhase(t *testing.T) {
	advance := map[State]LifecycleEvent{
		StateSensing:  EventSenseComplete,
		StateThinking: EventThinkComplete,
		StateActing:   EventActComplete,
	}
	for _, target := range []State{StateSensing, StateThinking, StateActing, StateReflecting} {
		m := NewMachine()
		require.NoError(t, m.Fire(EventStart, ""))
		for m.State() != target {
			require.NoError(t, m.Fire(advance[m.State()], ""))
		}
		require.NoError(t, m.Fire(EventError, "boom"))
		assert.Equal(t, StateError, m.State())
	}
}

func TestPauseAndResume(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Fire(EventStart, ""))
	require.NoError(t, m.Fire(EventPause, ""))
	assert.Equal(t, StatePaused, m.State())

	require.NoError(t, m.Fire(EventResume, ""))
	assert.Equal(t, StateIdle, m.State())
}

func TestKillIsTerminal(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Fire(EventStart, ""))
	require.NoError(t, m.Fire(EventKill, ""))
	assert.Equal(t, StateKilled, m.State())

	for _, ev := range []LifecycleEvent{EventStart, EventPause, EventResume, EventKill, EventError} {
		assert.ErrorIs(t, m.Fire(ev, ""), ErrMachineKilled)
	}
	assert.Equal(t, StateKilled, m.State())
}

func TestInvalidTransitionRejected(t *testing.T) {
	m := NewMachine()
	err := m.Fire(EventSenseComplete, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, m.State())
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Fire(EventStart, ""))
	require.NoError(t, m.Fire(EventSenseComplete, ""))
	require.NoError(t, m.Fire(EventThinkComplete, ""))
	require.NoError(t, m.Fire(EventActComplete, ""))
	require.NoError(t, m.Fire(EventReflectComplete, ""))
	require.NoError(t, m.Fire(EventStart, ""))
	require.NoError(t, m.Fire(EventError, "stale oracle"))

	data, err := m.Snapshot()
	require.NoError(t, err)

	restored, err := RestoreMachine(data)
	require.NoError(t, err)
	assert.Equal(t, StateError, restored.State())
	assert.Equal(t, 1, restored.Cycles())
	assert.Equal(t, "stale oracle", restored.LastError())
}

func TestRestoreMachineRejectsGarbage(t *testing.T) {
	_, err := RestoreMachine([]byte("not json"))
	assert.Error(t, err)

	_, err = RestoreMachine([]byte(`{"state":"FLYING","cycles":1}`))
	assert.Error(t, err)

	_, err = RestoreMachine([]byte(`{"state":"IDLE","cycles":-3}`))
	assert.Error(t, err)
}
