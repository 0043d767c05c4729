package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreakerWithWindow(maxFailures, 10*time.Second, time.Minute)
	cb.now = clock.Now
	return cb, clock
}

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestOpensAfterTooManyFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail, nil), errBoom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestFallbackRunsWhileOpen(t *testing.T) {
	cb, _ := newTestBreaker(0)
	assert.ErrorIs(t, cb.Execute(fail, nil), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	fallbackCalled := false
	err := cb.Execute(succeed, func() error { fallbackCalled = true; return nil })
	assert.NoError(t, err)
	assert.True(t, fallbackCalled)
}

func TestHalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name  string
		trial func() error
		want  State
	}{
		{name: "trial succeeds", trial: succeed, want: StateClosed},
		{name: "trial fails", trial: fail, want: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(0)
			_ = cb.Execute(fail, nil)
			assert.Equal(t, StateOpen, cb.GetState())

			clock.Advance(11 * time.Second)
			_ = cb.Execute(tt.trial, nil)
			assert.Equal(t, tt.want, cb.GetState())
		})
	}
}

func TestOldFailuresLeaveTheWindow(t *testing.T) {
	cb, clock := newTestBreaker(1)
	_ = cb.Execute(fail, nil)
	clock.Advance(2 * time.Minute)
	_ = cb.Execute(fail, nil)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
