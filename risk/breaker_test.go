package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBreakerManager pins the clock so cooldown boundaries are exact.
func testBreakerManager() (*BreakerManager, *time.Time) {
	m := NewBreakerManager(nil)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestBreakersStartClosed(t *testing.T) {
	m, _ := testBreakerManager()
	assert.True(t, m.AllClear())
	assert.Empty(t, m.Tripped())
	assert.Len(t, m.States(), 6)
	for _, st := range m.States() {
		assert.Equal(t, BreakerClosed, st.Status)
		assert.Zero(t, st.TripCount)
	}
}

func TestTripOpensAndCountsUp(t *testing.T) {
	m, _ := testBreakerManager()
	m.Trip(BreakerRPCFailure, "rpc endpoint down")

	assert.Equal(t, BreakerOpen, m.Check(BreakerRPCFailure))
	assert.False(t, m.AllClear())

	tripped := m.Tripped()
	require.Len(t, tripped, 1)
	assert.Equal(t, BreakerRPCFailure, tripped[0].Type)
	assert.Equal(t, 1, tripped[0].TripCount)
	assert.Equal(t, "rpc endpoint down", tripped[0].LastError)

	m.Trip(BreakerRPCFailure, "still down")
	tripped = m.Tripped()
	require.Len(t, tripped, 1)
	assert.Equal(t, 2, tripped[0].TripCount)
	assert.Equal(t, "still down", tripped[0].LastError)
}

func TestLazyCooldownRecovery(t *testing.T) {
	m, now := testBreakerManager()
	m.Trip(BreakerRPCFailure, "down")
	cooldown := DefaultBreakerConfigs()[BreakerRPCFailure].Cooldown

	*now = now.Add(cooldown - time.Nanosecond)
	assert.Equal(t, BreakerOpen, m.Check(BreakerRPCFailure))

	*now = now.Add(time.Nanosecond)
	assert.Equal(t, BreakerHalfOpen, m.Check(BreakerRPCFailure))

	// HALF_OPEN still blocks.
	assert.False(t, m.AllClear())
}

func TestAllClearAppliesLazyRecovery(t *testing.T) {
	m, now := testBreakerManager()
	m.Trip(BreakerGasSpike, "gas at 900 gwei")
	assert.False(t, m.AllClear())

	*now = now.Add(DefaultBreakerConfigs()[BreakerGasSpike].Cooldown)
	assert.False(t, m.AllClear(), "half-open after cooldown, still blocks")
	assert.Equal(t, BreakerHalfOpen, m.Check(BreakerGasSpike))
}

func TestProbeSuccessesCloseTheBreaker(t *testing.T) {
	m, now := testBreakerManager()
	m.Trip(BreakerRPCFailure, "down")

	// Probes before HALF_OPEN are no-ops.
	assert.False(t, m.RecordProbeSuccess(BreakerRPCFailure))

	*now = now.Add(DefaultBreakerConfigs()[BreakerRPCFailure].Cooldown)
	require.Equal(t, BreakerHalfOpen, m.Check(BreakerRPCFailure))

	probes := DefaultBreakerConfigs()[BreakerRPCFailure].HalfOpenProbes
	for i := 0; i < probes-1; i++ {
		assert.False(t, m.RecordProbeSuccess(BreakerRPCFailure), "probe %d", i+1)
	}
	assert.True(t, m.RecordProbeSuccess(BreakerRPCFailure), "final probe closes")
	assert.Equal(t, BreakerClosed, m.Check(BreakerRPCFailure))
	assert.True(t, m.AllClear())
}

func TestTripDuringHalfOpenClearsProbes(t *testing.T) {
	m, now := testBreakerManager()
	m.Trip(BreakerRPCFailure, "down")
	*now = now.Add(DefaultBreakerConfigs()[BreakerRPCFailure].Cooldown)
	require.Equal(t, BreakerHalfOpen, m.Check(BreakerRPCFailure))
	require.False(t, m.RecordProbeSuccess(BreakerRPCFailure))

	// A trip mid-probation reopens and discards probe progress.
	m.Trip(BreakerRPCFailure, "down again")
	assert.Equal(t, BreakerOpen, m.Check(BreakerRPCFailure))

	*now = now.Add(DefaultBreakerConfigs()[BreakerRPCFailure].Cooldown)
	require.Equal(t, BreakerHalfOpen, m.Check(BreakerRPCFailure))
	for i := 0; i < DefaultBreakerConfigs()[BreakerRPCFailure].HalfOpenProbes-1; i++ {
		assert.False(t, m.RecordProbeSuccess(BreakerRPCFailure))
	}
	assert.True(t, m.RecordProbeSuccess(BreakerRPCFailure))
}

func TestResetPreservesTripCount(t *testing.T) {
	m, _ := testBreakerManager()
	m.Trip(BreakerOracleStale, "price feed 10m old")
	m.Trip(BreakerOracleStale, "price feed 20m old")
	m.Reset(BreakerOracleStale)

	assert.Equal(t, BreakerClosed, m.Check(BreakerOracleStale))
	assert.True(t, m.AllClear())
	for _, st := range m.States() {
		if st.Type == BreakerOracleStale {
			assert.Equal(t, 2, st.TripCount)
			assert.Nil(t, st.TrippedAt)
			assert.Nil(t, st.CooldownUntil)
		}
	}
}

func TestCustomConfigOverridesOneType(t *testing.T) {
	m := NewBreakerManager(map[BreakerType]BreakerConfig{
		BreakerFlashCrash: {Cooldown: time.Minute, HalfOpenProbes: 1},
	})
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Trip(BreakerFlashCrash, "-30% in 5m")
	now = now.Add(time.Minute)
	require.Equal(t, BreakerHalfOpen, m.Check(BreakerFlashCrash))
	assert.True(t, m.RecordProbeSuccess(BreakerFlashCrash))
	assert.Equal(t, BreakerClosed, m.Check(BreakerFlashCrash))
}

func TestUnknownBreakerTypeIsIgnored(t *testing.T) {
	m, _ := testBreakerManager()
	m.Trip(BreakerType("NOT_A_BREAKER"), "x")
	assert.True(t, m.AllClear())
	assert.False(t, m.RecordProbeSuccess(BreakerType("NOT_A_BREAKER")))
	assert.Equal(t, BreakerClosed, m.Check(BreakerType("NOT_A_BREAKER")))
}
