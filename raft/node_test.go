package raft

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingApp is a minimal StateMachine used only by this package's own
// tests: it records every applied command in order.
type recordingApp struct {
	mu      sync.Mutex
	applied []interface{}
}

func (a *recordingApp) Apply(command Command) (interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, command)
	return command, nil
}

func (a *recordingApp) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

// testBus is a tiny in-package MessageBus so raft's own tests do not need
// to depend on the bus package (which imports raft, and would cycle back).
// Functionally it is the same mailbox-per-member pattern as bus.Bus.
type testBus struct {
	mu        sync.Mutex
	mailboxes map[MemberId]chan BusMessage
	dropAll   map[MemberId]bool
}

func newTestBus() *testBus {
	return &testBus{mailboxes: make(map[MemberId]chan BusMessage), dropAll: make(map[MemberId]bool)}
}

func (b *testBus) endpoint(self MemberId) MessageBus { return &testEndpoint{bus: b, self: self} }

// partition makes every send to `member` silently vanish, simulating a
// crashed or network-partitioned node without removing it from mailboxes.
func (b *testBus) partition(member MemberId, dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropAll[member] = dropped
}

type testEndpoint struct {
	bus  *testBus
	self MemberId
}

func (e *testEndpoint) Send(ctx context.Context, to MemberId, msg interface{}) error {
	b := e.bus
	b.mu.Lock()
	if b.dropAll[e.self] || b.dropAll[to] {
		b.mu.Unlock()
		return nil
	}
	ch, ok := b.mailboxes[to]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case ch <- BusMessage{From: e.self, Body: msg}:
	default:
	}
	return nil
}

func (e *testEndpoint) Subscribe(ctx context.Context, self MemberId) (<-chan BusMessage, error) {
	ch := make(chan BusMessage, 256)
	e.bus.mu.Lock()
	e.bus.mailboxes[self] = ch
	e.bus.mu.Unlock()
	return ch, nil
}

func fastConfig() Config {
	return Config{
		ElectionTimeoutMin: 40 * time.Millisecond,
		ElectionTimeoutMax: 80 * time.Millisecond,
		HeartbeatInterval:  10 * time.Millisecond,
		AppendEntriesBatch: 16,
	}
}

type harness struct {
	bus   *testBus
	nodes map[MemberId]*Node
	apps  map[MemberId]*recordingApp
}

func newHarness(t *testing.T, ctx context.Context, members []MemberId) *harness {
	t.Helper()
	h := &harness{bus: newTestBus(), nodes: make(map[MemberId]*Node), apps: make(map[MemberId]*recordingApp)}
	bootstrap := NewStable(append([]MemberId{}, members...))
	for _, m := range members {
		app := &recordingApp{}
		h.apps[m] = app
		node, err := NewNode(m, h.bus.endpoint(m), app, nil, nil, fastConfig(), bootstrap)
		require.NoError(t, err)
		require.NoError(t, node.Start(ctx))
		h.nodes[m] = node
	}
	return h
}

func (h *harness) leader(t *testing.T, ctx context.Context) (MemberId, bool) {
	t.Helper()
	for id, node := range h.nodes {
		role, _, _, err := node.Report(ctx)
		require.NoError(t, err)
		if role == Leader {
			return id, true
		}
	}
	return "", false
}

func (h *harness) awaitLeader(t *testing.T, ctx context.Context) MemberId {
	t.Helper()
	var found MemberId
	require.Eventually(t, func() bool {
		id, ok := h.leader(t, ctx)
		if ok {
			found = id
		}
		return ok
	}, 3*time.Second, 10*time.Millisecond, "expected a leader to be elected")
	return found
}

func (h *harness) stopAll() {
	for _, n := range h.nodes {
		n.Stop()
	}
}

func members(n int) []MemberId {
	out := make([]MemberId, n)
	for i := range out {
		out[i] = MemberId(fmt.Sprintf("n%d", i))
	}
	return out
}

// S1: election happy path — a healthy 3-node cluster elects exactly one leader.
func TestScenarioElectionHappyPath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(3))
	defer h.stopAll()

	leaderId := h.awaitLeader(t, ctx)

	leaderCount := 0
	for id, node := range h.nodes {
		role, _, _, err := node.Report(ctx)
		require.NoError(t, err)
		if role == Leader {
			leaderCount++
			require.Equal(t, leaderId, id)
		}
	}
	require.Equal(t, 1, leaderCount)
}

// S2: client commit — a submitted command is applied exactly once on every
// replica.
func TestScenarioClientCommitReplicatesToAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(3))
	defer h.stopAll()

	leaderId := h.awaitLeader(t, ctx)
	res, err := h.nodes[leaderId].Submit(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", res)

	require.Eventually(t, func() bool {
		for _, app := range h.apps {
			if app.count() != 1 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "expected every replica to apply the committed command")
}

// S3: leader failure and re-election — partitioning the leader causes a new
// leader to emerge, and the cluster keeps committing.
func TestScenarioLeaderFailureTriggersReElection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(3))
	defer h.stopAll()

	firstLeader := h.awaitLeader(t, ctx)
	h.bus.partition(firstLeader, true)

	var newLeader MemberId
	require.Eventually(t, func() bool {
		id, ok := h.leader(t, ctx)
		if ok && id != firstLeader {
			newLeader = id
			return true
		}
		return false
	}, 3*time.Second, 10*time.Millisecond, "expected a new leader distinct from the partitioned one")

	_, err := h.nodes[newLeader].Submit(ctx, "still-works")
	require.NoError(t, err)
}

// S5: joint consensus membership change — adding a member via a Joint
// configuration eventually settles on a Stable configuration that includes
// it.
func TestScenarioJointConsensusMembershipChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(3))
	defer h.stopAll()

	leaderId := h.awaitLeader(t, ctx)

	newMemberApp := &recordingApp{}
	h.apps["n3"] = newMemberApp
	bootstrapView := NewStable([]MemberId{"n0", "n1", "n2", "n3"})
	newNode, err := NewNode("n3", h.bus.endpoint("n3"), newMemberApp, nil, nil, fastConfig(), bootstrapView)
	require.NoError(t, err)
	require.NoError(t, newNode.Start(ctx))
	h.nodes["n3"] = newNode
	defer newNode.Stop()

	old := []MemberId{"n0", "n1", "n2"}
	new := []MemberId{"n0", "n1", "n2", "n3"}
	_, err = h.nodes[leaderId].Submit(ctx, JointConfigCommand{Old: old, New: new})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, cfg, err := h.nodes[leaderId].Report(ctx)
		if err != nil || cfg == nil {
			return false
		}
		s, ok := cfg.(Stable)
		return ok && len(s.Members()) == 4
	}, 3*time.Second, 10*time.Millisecond, "expected configuration to settle on the new Stable(4-member) view")
}

// S6: split vote — two candidates racing in the same term eventually
// converge on exactly one leader once timers desynchronize.
func TestScenarioSplitVoteEventuallyConverges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(5))
	defer h.stopAll()

	// A 5-node cluster with randomized timers will sometimes split its
	// first vote across two candidates; either way it must converge.
	leaderId := h.awaitLeader(t, ctx)
	require.NotEmpty(t, leaderId)
}

// Single-node cluster: a lone node has no peers to send AppendSuccessful,
// so it must advance committedIndex off its own local append alone.
func TestScenarioSingleNodeClusterCommitsOnLocalAppend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(1))
	defer h.stopAll()

	leaderId := h.awaitLeader(t, ctx)

	submitCtx, submitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer submitCancel()
	res, err := h.nodes[leaderId].Submit(submitCtx, "solo")
	require.NoError(t, err, "a single-node cluster must commit on its own local append without waiting for any peer")
	require.Equal(t, "solo", res)
	require.Equal(t, 1, h.apps[leaderId].count())
}

// Two-node cluster with one member partitioned away: the remaining node
// cannot assemble a quorum by itself, so new commands must never commit.
func TestScenarioTwoNodeClusterWithoutQuorumCannotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, ctx, members(2))
	defer h.stopAll()

	leaderId := h.awaitLeader(t, ctx)
	var crashed MemberId
	for id := range h.nodes {
		if id != leaderId {
			crashed = id
		}
	}
	h.bus.partition(crashed, true)

	submitCtx, submitCancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer submitCancel()
	_, err := h.nodes[leaderId].Submit(submitCtx, "should-not-commit")
	require.Error(t, err, "a 2-node cluster missing its other member must not be able to commit anything")
	require.Equal(t, 0, h.apps[leaderId].count())
}

// AppendEntries conflict handling at prevIndex 0: a follower with an empty
// log, or one whose single entry conflicts with the leader's, must repair
// starting from the sentinel index rather than rejecting forever.
func TestAppendEntriesConflictAtSentinelIndexRepairsLog(t *testing.T) {
	bus := newTestBus()
	app := &recordingApp{}
	bootstrap := NewStable([]MemberId{"leader", "follower"})
	follower, err := NewNode("follower", bus.endpoint("follower"), app, nil, nil, fastConfig(), bootstrap)
	require.NoError(t, err)

	ctx := context.Background()

	// Follower starts with a stale entry at index 1, term 1, planted
	// directly (bypassing AppendEntries) to simulate a prior divergent term.
	follower.log.Append(Entry{Term: 1, Index: 1, Command: "stale"})

	// The real leader is at term 2 and believes the follower's log is empty
	// (prevIndex 0): it replaces index 1 wholesale.
	follower.handleAppendEntries(ctx, "leader", AppendEntries{
		Term:         2,
		LeaderId:     "leader",
		PrevLogIndex: 0,
		PrevLogTerm:  0,
		Entries:      []Entry{{Term: 2, Index: 1, Command: "authoritative"}},
		LeaderCommit: 0,
	})

	require.Equal(t, LogIndex(1), follower.log.LastIndex())
	require.Equal(t, Term(2), follower.log.TermAt(1))
	entries := follower.log.Between(0, 1)
	require.Len(t, entries, 1)
	require.Equal(t, "authoritative", entries[0].Command)

	// A second, overlapping AppendEntries replaying the same prevIndex 0
	// batch must be idempotent: replaying it must not duplicate or corrupt
	// the already-repaired entry.
	follower.handleAppendEntries(ctx, "leader", AppendEntries{
		Term:         2,
		LeaderId:     "leader",
		PrevLogIndex: 0,
		PrevLogTerm:  0,
		Entries:      []Entry{{Term: 2, Index: 1, Command: "authoritative"}},
		LeaderCommit: 0,
	})
	require.Equal(t, LogIndex(1), follower.log.LastIndex())
}
