package raft

import (
	"context"
	"time"
)

// becomeLeader initializes nextIndex/matchIndex for every peer, emits an
// immediate heartbeat round, and arms the repeating heartbeat timer.
func (n *Node) becomeLeader(ctx context.Context) {
	n.role = Leader
	n.electionTimer.Stop()

	n.nextIndex = NewIndexMap()
	n.matchIndex = NewIndexMap()
	last := n.log.LastIndex()
	for _, peer := range n.others() {
		n.nextIndex.Put(peer, last+1)
		n.matchIndex.Put(peer, 0)
	}
	n.matchIndex.Put(n.self, last)

	n.logger.Infow("becomes Leader", "term", n.currentTerm, "lastIndex", last)
	if n.cfg.PublishTestEvents {
		n.events.ElectedAsLeader(n.currentTerm)
	}

	n.heartbeatTicker = time.NewTicker(n.cfg.HeartbeatInterval)
	n.leaderSendAEs(ctx)
}

// leaderSendAEs sends one round of AppendEntries to every peer: up to
// default-append-entries-batch-size entries starting at nextIndex[peer].
// An empty batch serves as a heartbeat.
func (n *Node) leaderSendAEs(ctx context.Context) {
	for _, peer := range n.others() {
		n.sendAEsTo(ctx, peer)
	}
}

func (n *Node) sendAEsTo(ctx context.Context, peer MemberId) {
	ni, ok := n.nextIndex.ValueFor(peer)
	if !ok || ni == 0 {
		ni = 1
	}
	prevIndex := ni - 1
	prevTerm := n.log.TermAt(prevIndex)
	entries := n.log.EntriesFrom(ni, n.cfg.AppendEntriesBatch)

	n.send(ctx, peer, AppendEntries{
		Term:         n.currentTerm,
		LeaderId:     n.self,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: n.log.CommittedIndex(),
	})
}

// handleAppendSuccessful advances the leader's view of a follower's
// progress. Updates are keyed by the actual sender identity (from), never
// by a single cached "the follower" accessor, since more than one peer can
// be in flight at once.
func (n *Node) handleAppendSuccessful(ctx context.Context, from MemberId, m AppendSuccessful) {
	if n.role != Leader || m.Term != n.currentTerm {
		return
	}
	n.matchIndex.PutIfGreater(from, m.MatchIndex)
	n.nextIndex.Put(from, m.MatchIndex+1)
	n.tryAdvanceCommit(ctx)
}

// handleAppendRejected backs off nextIndex toward the follower's reported
// lastIndex (never below 1) and resends immediately.
func (n *Node) handleAppendRejected(ctx context.Context, from MemberId, m AppendRejected) {
	if n.role != Leader || m.Term != n.currentTerm {
		return
	}
	ni, ok := n.nextIndex.ValueFor(from)
	if !ok {
		ni = n.log.LastIndex() + 1
	}
	next := m.LastIndex + 1
	if next >= ni {
		next = ni - 1
	}
	if next < 1 {
		next = 1
	}
	n.nextIndex.Put(from, next)
	n.sendAEsTo(ctx, from)
}

// tryAdvanceCommit advances committedIndex to the largest N with a quorum
// of matchIndex >= N whose entry was written in the current term, then
// applies and replies.
func (n *Node) tryAdvanceCommit(ctx context.Context) {
	candidate := n.matchIndex.ConsensusForIndex(n.config)
	if candidate <= n.log.CommittedIndex() {
		return
	}
	if n.log.TermAt(candidate) != n.currentTerm {
		return
	}
	oldCommitted := n.log.CommittedIndex()
	n.log.Commit(candidate)
	n.applyCommitted(ctx, candidate)
	n.logger.Debugw("advanced commit index", "from", oldCommitted, "to", candidate)
}
