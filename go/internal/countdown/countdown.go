package countdown

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TickInterval is how often an armed countdown recomputes its remaining seconds
const TickInterval = time.Second

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Countdown derives a whole-second countdown from an absolute expiry. It is not safe for
// concurrent use: the owner reads Chan() and calls Tick() from the same goroutine that arms it.
type Countdown struct {
	clock     Clock
	expiresAt time.Time
	ticker    clockwork.Ticker
	remaining int
	onChange  func(remaining int)
	onExpire  func()
}

func New(clock Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock}
}

// OnChange registers a callback fired whenever the remaining value changes
func (c *Countdown) OnChange(fn func(remaining int)) {
	c.onChange = fn
}

// OnExpire registers a callback fired when an armed countdown ticks down to zero. Disarming
// or arming with a past expiry does not fire it.
func (c *Countdown) OnExpire(fn func()) {
	c.onExpire = fn
}

// Arm replaces any previous target with expiresAt. The previous ticker is always stopped
// first, so at most one tick source exists.
func (c *Countdown) Arm(expiresAt time.Time) {
	c.stopTicker()
	c.expiresAt = expiresAt

	remaining := c.compute()
	c.set(remaining)
	if remaining == 0 {
		log.Debug().Time("expires_at", expiresAt).Msg("countdown armed with an expired target")
		return
	}

	c.ticker = c.clock.NewTicker(TickInterval)
	log.Debug().
		Time("expires_at", expiresAt).
		Int("remaining", remaining).
		Msg("countdown armed")
}

// Disarm stops ticking and zeroes the countdown. Safe to call repeatedly.
func (c *Countdown) Disarm() {
	wasArmed := c.ticker != nil
	c.stopTicker()
	c.expiresAt = time.Time{}
	c.set(0)
	if wasArmed {
		log.Debug().Msg("countdown disarmed")
	}
}

// Chan delivers ticks while armed. It returns nil when disarmed so a select on it blocks.
func (c *Countdown) Chan() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.Chan()
}

// Tick recomputes remaining from the fixed expiry, never from a tick count, and stops the
// ticker once it reaches zero.
func (c *Countdown) Tick() int {
	if c.ticker == nil {
		return c.remaining
	}
	remaining := c.compute()
	c.set(remaining)
	if remaining == 0 {
		c.stopTicker()
		log.Debug().Msg("countdown reached zero")
		if c.onExpire != nil {
			c.onExpire()
		}
	}
	return remaining
}

// Remaining returns the last computed value
func (c *Countdown) Remaining() int {
	return c.remaining
}

// ExpiresAt returns the current target, zero when disarmed
func (c *Countdown) ExpiresAt() time.Time {
	return c.expiresAt
}

func (c *Countdown) compute() int {
	return Remaining(c.expiresAt, c.clock.Now())
}

func (c *Countdown) set(remaining int) {
	if remaining == c.remaining {
		return
	}
	c.remaining = remaining
	if c.onChange != nil {
		c.onChange(remaining)
	}
}

func (c *Countdown) stopTicker() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	// drain a tick that may already be buffered so it is not delivered after re-arming
	select {
	case <-c.ticker.Chan():
	default:
	}
	c.ticker = nil
}

// Remaining computes max(0, floor(expiresAt - now)) in whole seconds
func Remaining(expiresAt, now time.Time) int {
	if expiresAt.IsZero() {
		return 0
	}
	secs := math.Floor(expiresAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}
