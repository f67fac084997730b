package raft

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Config holds a node's recognized configuration surface.
type Config struct {
	ElectionTimeoutMin time.Duration
	ElectionTimeoutMax time.Duration
	HeartbeatInterval  time.Duration
	AppendEntriesBatch int
	PublishTestEvents  bool
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ElectionTimeoutMin: 150 * time.Millisecond,
		ElectionTimeoutMax: 300 * time.Millisecond,
		HeartbeatInterval:  50 * time.Millisecond,
		AppendEntriesBatch: 5,
		PublishTestEvents:  false,
	}
}

// Validate enforces the TimerMisconfigured fatal error: a leader's
// heartbeat-interval must be strictly less than the election timeout
// floor, or a leader could never suppress a follower's timeout.
func (c Config) Validate() error {
	if c.ElectionTimeoutMin <= 0 || c.ElectionTimeoutMax <= 0 {
		return errors.New("raft: election timeouts must be positive")
	}
	if c.ElectionTimeoutMax < c.ElectionTimeoutMin {
		return errors.New("raft: election-timeout.max must be >= election-timeout.min")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("raft: heartbeat-interval must be positive")
	}
	if c.HeartbeatInterval >= c.ElectionTimeoutMin {
		return errors.Errorf("raft: TimerMisconfigured: heartbeat-interval (%s) must be < election-timeout.min (%s)",
			c.HeartbeatInterval, c.ElectionTimeoutMin)
	}
	if c.AppendEntriesBatch <= 0 {
		return errors.New("raft: default-append-entries-batch-size must be positive")
	}
	return nil
}

// electionTimer produces a fresh randomized duration uniformly in
// [min, max] each time it is (re)armed. It wraps a time.Timer so "arming"
// replaces any previously armed instance atomically.
type electionTimer struct {
	min, max time.Duration
	timer    *time.Timer
	ch       <-chan time.Time
	rng      *rand.Rand
}

func newElectionTimer(min, max time.Duration) *electionTimer {
	return &electionTimer{
		min: min,
		max: max,
		// #nosec G404 -- election timeout jitter is not security sensitive.
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *electionTimer) randomized() time.Duration {
	span := int64(t.max - t.min)
	if span <= 0 {
		return t.min
	}
	return t.min + time.Duration(t.rng.Int63n(span+1))
}

// Reset (re)arms the timer with a freshly randomized duration and returns
// the channel that fires once it elapses. Any previously armed timer is
// stopped first.
func (t *electionTimer) Reset() <-chan time.Time {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.NewTimer(t.randomized())
	t.ch = t.timer.C
	return t.ch
}

// pending returns the channel of the currently armed timer (or nil if the
// timer was stopped without being reset), without disturbing it.
func (t *electionTimer) pending() <-chan time.Time {
	return t.ch
}

// Stop disarms the timer without arming a replacement.
func (t *electionTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.ch = nil
}
