package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/notifhub/notifhub/pkg/logger"
)

// reconnectState is the explicit machine behind retry scheduling:
// idle -> connecting -> connected, with backoff between failed attempts.
// Modeling it as a machine makes "one pending timer at a time" a structural
// invariant instead of a clearing discipline.
type reconnectState string

const (
	reconnectIdle       reconnectState = "idle"
	reconnectBackoff    reconnectState = "backoff"
	reconnectConnecting reconnectState = "connecting"
	reconnectConnected  reconnectState = "connected"
)

const (
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second

	// Wake signals retry after a short settle delay rather than instantly,
	// giving other wake-up logic (token refresh, DNS) a head start.
	visibleWakeDelay = time.Second
	onlineWakeDelay  = 2 * time.Second
)

// backoffDelay computes min(base << (attempt-1), max) for attempt >= 1.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return min(d, max)
}

// reconnector decides when the client retries after a disconnect. Attempts
// are unbounded: while the process holds a valid credential there is no
// permanent give-up, only growing delays capped at max.
type reconnector struct {
	mu      sync.Mutex
	state   reconnectState
	attempt int
	timer   *time.Timer

	base time.Duration
	max  time.Duration

	// retry triggers one connection attempt; set by the client.
	retry  func()
	logger *slog.Logger
}

func newReconnector(base, max time.Duration, retry func(), log *slog.Logger) *reconnector {
	if base <= 0 {
		base = defaultBackoffBase
	}
	if max <= 0 {
		max = defaultBackoffMax
	}
	return &reconnector{
		state:  reconnectIdle,
		base:   base,
		max:    max,
		retry:  retry,
		logger: log,
	}
}

// connecting notes that a dial is in flight.
func (r *reconnector) connecting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimerLocked()
	r.state = reconnectConnecting
}

// connected resets the machine after a successful dial.
func (r *reconnector) connected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimerLocked()
	r.state = reconnectConnected
	r.attempt = 0
}

// failed increments the attempt counter and schedules the next retry with
// exponential backoff.
func (r *reconnector) failed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempt++
	delay := backoffDelay(r.base, r.max, r.attempt)
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "scheduling reconnect",
		logger.Attempt(r.attempt),
		logger.Duration(delay),
	)
	r.scheduleLocked(delay)
}

// wakeVisible forces a near-immediate retry when the execution context
// returns to the foreground. The attempt counter resets first so subsequent
// failures restart the backoff curve from the base delay.
func (r *reconnector) wakeVisible() {
	r.wake(visibleWakeDelay, "visibility")
}

// wakeOnline forces a near-immediate retry when network connectivity returns.
func (r *reconnector) wakeOnline() {
	r.wake(onlineWakeDelay, "online")
}

func (r *reconnector) wake(delay time.Duration, signal string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == reconnectConnected || r.state == reconnectConnecting {
		return
	}

	r.attempt = 0
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "wake signal, scheduling reconnect",
		slog.String("signal", signal),
		logger.Duration(delay),
	)
	r.scheduleLocked(delay)
}

// stop cancels any pending retry and returns the machine to idle. Called on
// explicit disconnect.
func (r *reconnector) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimerLocked()
	r.state = reconnectIdle
	r.attempt = 0
}

// scheduleLocked replaces any pending timer with a new one. The single-timer
// design means a newer schedule implicitly cancels an older one.
func (r *reconnector) scheduleLocked(delay time.Duration) {
	r.cancelTimerLocked()
	r.state = reconnectBackoff
	r.timer = time.AfterFunc(delay, r.fire)
}

func (r *reconnector) fire() {
	r.mu.Lock()
	if r.state != reconnectBackoff {
		r.mu.Unlock()
		return
	}
	r.state = reconnectConnecting
	r.mu.Unlock()

	r.retry()
}

func (r *reconnector) cancelTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *reconnector) currentAttempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}
