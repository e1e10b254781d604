package transport

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	base := time.Second
	max := 30 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 8 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 6, want: 30 * time.Second},
		{attempt: 7, want: 30 * time.Second},
		{attempt: 100, want: 30 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDelay(base, max, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestReconnectorBackoffProgression(t *testing.T) {
	t.Parallel()

	var retries atomic.Int32
	r := newReconnector(5*time.Millisecond, 20*time.Millisecond, func() {
		retries.Add(1)
	}, slog.Default())

	r.connecting()
	r.failed()
	assert.Equal(t, 1, r.currentAttempt())

	require.Eventually(t, func() bool {
		return retries.Load() == 1
	}, time.Second, time.Millisecond)

	r.failed()
	assert.Equal(t, 2, r.currentAttempt())
}

func TestReconnectorConnectedResetsAttempts(t *testing.T) {
	t.Parallel()

	r := newReconnector(time.Hour, time.Hour, func() {}, slog.Default())

	r.connecting()
	r.failed()
	r.failed()
	assert.Equal(t, 2, r.currentAttempt())

	r.connected()
	assert.Zero(t, r.currentAttempt())
}

func TestReconnectorWake(t *testing.T) {
	t.Parallel()

	t.Run("resets attempt counter", func(t *testing.T) {
		t.Parallel()
		r := newReconnector(time.Hour, time.Hour, func() {}, slog.Default())
		r.failed()
		r.failed()
		r.failed()

		r.wake(time.Hour, "visibility")
		assert.Zero(t, r.currentAttempt())
	})

	t.Run("ignored while connected", func(t *testing.T) {
		t.Parallel()
		var retries atomic.Int32
		r := newReconnector(time.Hour, time.Hour, func() { retries.Add(1) }, slog.Default())
		r.connected()

		r.wake(time.Millisecond, "online")
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, retries.Load())
	})

	t.Run("replaces a pending backoff timer", func(t *testing.T) {
		t.Parallel()
		var retries atomic.Int32
		r := newReconnector(time.Hour, time.Hour, func() { retries.Add(1) }, slog.Default())

		r.failed() // schedules an hour out
		r.wake(time.Millisecond, "visibility")

		require.Eventually(t, func() bool {
			return retries.Load() == 1
		}, time.Second, time.Millisecond)

		// Only the wake timer fired; the superseded backoff timer never does.
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int32(1), retries.Load())
	})
}

func TestReconnectorStop(t *testing.T) {
	t.Parallel()

	var retries atomic.Int32
	r := newReconnector(50*time.Millisecond, 50*time.Millisecond, func() { retries.Add(1) }, slog.Default())

	r.failed()
	r.stop()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, retries.Load())
	assert.Zero(t, r.currentAttempt())
}
