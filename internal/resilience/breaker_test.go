package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(_ context.Context) error { return errBoom }
func ok(_ context.Context) error      { return nil }

func newTestBreaker(threshold int) (*Breaker, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewBreaker("anthropic", BreakerConfig{FailureThreshold: threshold, ResetTimeout: time.Minute}, clock), clock
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b, _ := newTestBreaker(3)

	v, err := Do(context.Background(), b, func(_ context.Context) (string, error) {
		return "hello", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, "anthropic", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Call(context.Background(), failing), errBoom)
	}
	assert.Equal(t, Open, b.State())
	assert.Equal(t, 3, b.Failures())

	called := false
	err := b.Call(context.Background(), func(_ context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3)

	require.Error(t, b.Call(context.Background(), failing))
	require.Error(t, b.Call(context.Background(), failing))
	require.NoError(t, b.Call(context.Background(), ok))
	require.Error(t, b.Call(context.Background(), failing))

	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 1, b.Failures())
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b, clock := newTestBreaker(1)

	require.Error(t, b.Call(context.Background(), failing))
	assert.Equal(t, Open, b.State())

	clock.Advance(59 * time.Second)
	assert.ErrorIs(t, b.Call(context.Background(), ok), ErrOpen)

	clock.Advance(time.Second)
	assert.Equal(t, HalfOpen, b.State())
	require.NoError(t, b.Call(context.Background(), ok))
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(2)

	require.Error(t, b.Call(context.Background(), failing))
	require.Error(t, b.Call(context.Background(), failing))
	clock.Advance(time.Minute)

	require.Error(t, b.Call(context.Background(), failing))
	assert.Equal(t, Open, b.State())

	// The reset window restarts from the failed probe.
	clock.Advance(30 * time.Second)
	assert.ErrorIs(t, b.Call(context.Background(), ok), ErrOpen)
}

func TestBreaker_SingleProbeInFlight(t *testing.T) {
	b, clock := newTestBreaker(1)
	require.Error(t, b.Call(context.Background(), failing))
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Call(context.Background(), func(_ context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.ErrorIs(t, b.Call(context.Background(), ok), ErrOpen)
	close(release)
	wg.Wait()
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_CustomTrips(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBreaker("api", BreakerConfig{FailureThreshold: 1, Trips: IsTransient}, clock)

	require.Error(t, b.Call(context.Background(), failing))
	assert.Equal(t, Closed, b.State(), "non-transient errors do not trip")

	require.Error(t, b.Call(context.Background(), func(_ context.Context) error {
		return NewTransientError(errors.New("overloaded"), 529)
	}))
	assert.Equal(t, Open, b.State())
}

func TestBreaker_ContextCanceledDoesNotTrip(t *testing.T) {
	b, _ := newTestBreaker(1)
	err := b.Call(context.Background(), func(_ context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	clock := clockwork.NewFakeClock()
	b := NewBreaker("api", BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	}, clock)

	require.Error(t, b.Call(context.Background(), failing))
	clock.Advance(time.Second)
	require.NoError(t, b.Call(context.Background(), ok))
	b.Reset()

	assert.Equal(t, []string{
		"api:closed->open",
		"api:open->half-open",
		"api:half-open->closed",
	}, transitions)
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(0, 0)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.ResetTimeout)

	cfg = FromSettings(2, 10)
	assert.Equal(t, 2, cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.ResetTimeout)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
