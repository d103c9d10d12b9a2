package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker("test", threshold, cooldown)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := testBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	cb, _ := testBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	cb, now := testBreaker(1, time.Minute)

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	*now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cb, now := testBreaker(1, time.Minute)

	cb.RecordFailure()
	*now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	// second cooldown must elapse from the reopen
	*now = now.Add(30 * time.Second)
	assert.False(t, cb.Allow())
	*now = now.Add(time.Minute)
	assert.True(t, cb.Allow())
}

func TestBreakerMinimumThreshold(t *testing.T) {
	cb, _ := testBreaker(0, time.Minute)
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}
