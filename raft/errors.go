package raft

import "github.com/pkg/errors"

// These two errors are fatal: they abort node initialization. Non-fatal
// conditions (a stale term, a log inconsistency, a double vote, a
// regressed configuration) are never surfaced as Go errors — they are
// recovered locally by the role handlers (a rejection reply, a denied
// vote, an ignored entry) and only logged.

// ErrConfigurationInvariantViolation is returned by NewNode when the
// bootstrap configuration is empty or does not contain self.
var ErrConfigurationInvariantViolation = errors.New("raft: ConfigurationInvariantViolation")

// ErrTimerMisconfigured is returned by NewNode when Config.Validate fails
// the heartbeat-interval < election-timeout.min requirement.
var ErrTimerMisconfigured = errors.New("raft: TimerMisconfigured")

func wrapConfigViolation(reason string) error {
	return errors.Wrap(ErrConfigurationInvariantViolation, reason)
}
