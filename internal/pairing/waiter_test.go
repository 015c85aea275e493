package pairing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// delayedSource yields its payload once it has been polled readyAfter times.
type delayedSource struct {
	mu         sync.Mutex
	polls      int
	readyAfter int
	payload    string
}

func (s *delayedSource) QRPayload() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.readyAfter >= 0 && s.polls > s.readyAfter {
		return s.payload, true
	}
	return "", false
}

type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func newTestWaiter(max int) (*Waiter, *fakeClock) {
	clock := &fakeClock{}
	w := NewWaiter(max, time.Second)
	w.After = clock.After
	return w, clock
}

func TestWaiterWait(t *testing.T) {
	t.Run("returns immediately when payload is already present", func(t *testing.T) {
		w, clock := newTestWaiter(30)
		src := &delayedSource{readyAfter: 0, payload: "code"}

		payload, err := w.Wait(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "code", payload)
		assert.Equal(t, 1, src.polls)
		assert.Empty(t, clock.waits)
	})

	t.Run("payload after two empty polls costs two intervals", func(t *testing.T) {
		w, clock := newTestWaiter(30)
		src := &delayedSource{readyAfter: 2, payload: "code"}

		payload, err := w.Wait(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "code", payload)
		assert.Equal(t, 3, src.polls)
		assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.waits)
	})

	t.Run("times out after exactly max attempts", func(t *testing.T) {
		w, clock := newTestWaiter(5)
		src := &delayedSource{readyAfter: -1}

		_, err := w.Wait(context.Background(), src)
		assert.ErrorIs(t, err, ErrQRTimeout)
		assert.Equal(t, 5, src.polls)
		assert.Len(t, clock.waits, 4)
	})

	t.Run("payload on the final attempt still succeeds", func(t *testing.T) {
		w, _ := newTestWaiter(3)
		src := &delayedSource{readyAfter: 2, payload: "last"}

		payload, err := w.Wait(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "last", payload)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		w := NewWaiter(30, time.Hour)
		w.After = func(time.Duration) <-chan time.Time { return make(chan time.Time) }
		src := &delayedSource{readyAfter: -1}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := w.Wait(ctx, src)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, src.polls)
	})

	t.Run("real clock wait ends within the interval budget", func(t *testing.T) {
		w := NewWaiter(3, 10*time.Millisecond)
		src := &delayedSource{readyAfter: 2, payload: "code"}

		start := time.Now()
		payload, err := w.Wait(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "code", payload)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestNewWaiterDefaults(t *testing.T) {
	w := NewWaiter(0, 0)
	assert.Equal(t, DefaultMaxAttempts, w.MaxAttempts)
	assert.Equal(t, DefaultInterval, w.Interval)
}
