package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker("test", true, threshold, time.Minute, 5*time.Minute, nil)
	cb.SetClock(clock.now)
	return cb, clock
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("trips at threshold", func(t *testing.T) {
		cb, _ := newTestBreaker(3)

		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.IsOpen())
		assert.True(t, cb.RecordFailure())
		assert.True(t, cb.IsOpen())
	})

	t.Run("failures outside window do not accumulate", func(t *testing.T) {
		cb, clock := newTestBreaker(2)

		assert.False(t, cb.RecordFailure())
		clock.advance(2 * time.Minute)
		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.IsOpen())
	})

	t.Run("closes after reset timeout", func(t *testing.T) {
		cb, clock := newTestBreaker(1)

		assert.True(t, cb.RecordFailure())
		clock.advance(4 * time.Minute)
		assert.True(t, cb.IsOpen())
		clock.advance(2 * time.Minute)
		assert.False(t, cb.IsOpen())
	})

	t.Run("success clears failures", func(t *testing.T) {
		cb, _ := newTestBreaker(2)

		cb.RecordFailure()
		cb.RecordSuccess()
		assert.False(t, cb.RecordFailure())

		count, _, _, threshold := cb.GetState()
		assert.Equal(t, 1, count)
		assert.Equal(t, 2, threshold)
	})

	t.Run("manual reset", func(t *testing.T) {
		cb, _ := newTestBreaker(1)

		cb.RecordFailure()
		assert.True(t, cb.IsOpen())
		cb.Reset()
		assert.False(t, cb.IsOpen())
	})

	t.Run("disabled never opens", func(t *testing.T) {
		cb := NewCircuitBreaker("off", false, 1, time.Minute, time.Minute, nil)

		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.IsOpen())
		assert.False(t, cb.IsEnabled())
		assert.Equal(t, "off", cb.Name())
	})
}
