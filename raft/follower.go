package raft

import "context"

// handleRequestVote decides whether to grant a vote to a candidate.
func (n *Node) handleRequestVote(ctx context.Context, from MemberId, m RequestVote) {
	if m.Term < n.currentTerm {
		n.send(ctx, from, VoteDenied{Term: n.currentTerm}) // StaleTerm
		return
	}

	ourLastIndex, ourLastTerm := n.log.LastIndex(), n.log.LastTerm()
	upToDate := m.LastLogTerm > ourLastTerm ||
		(m.LastLogTerm == ourLastTerm && m.LastLogIndex >= ourLastIndex)

	if n.currentTerm == m.Term &&
		(n.votedFor == "" || n.votedFor == m.CandidateId) &&
		upToDate {
		n.votedFor = m.CandidateId
		_ = n.store.PersistVote(n.currentTerm, n.votedFor)
		n.electionTimer.Reset()
		n.send(ctx, from, VoteGranted{Term: n.currentTerm})
		return
	}

	// DoubleVote (already voted for someone else this term) or stale log:
	// deny silently, i.e. reply denied without further side effects.
	n.send(ctx, from, VoteDenied{Term: n.currentTerm})
}

// handleAppendEntries accepts a leader's replication request. It is also
// the entry point candidates and (briefly) leaders use to step down and
// accept a new leader's replication: dispatchRPC has already run
// becomeFollower when m.Term > currentTerm, and a candidate or leader at an
// equal term steps down below.
func (n *Node) handleAppendEntries(ctx context.Context, from MemberId, m AppendEntries) {
	if m.Term < n.currentTerm {
		n.send(ctx, from, AppendRejected{Term: n.currentTerm, LastIndex: n.log.LastIndex()}) // StaleTerm
		return
	}
	if n.role != Follower {
		// A candidate hearing from a legitimate leader, or (defensively) a
		// leader hearing of another leader at >= term: step down.
		n.becomeFollower(m.Term)
	}

	if !n.log.MatchesPrefix(m.PrevLogIndex, m.PrevLogTerm) {
		n.send(ctx, from, AppendRejected{Term: n.currentTerm, LastIndex: n.log.LastIndex()}) // LogInconsistency
		return
	}

	n.lastKnownLeader = from
	n.mergeAppend(m.PrevLogIndex, m.Entries)

	if m.LeaderCommit > n.log.CommittedIndex() {
		newCommit := m.LeaderCommit
		if n.log.LastIndex() < newCommit {
			newCommit = n.log.LastIndex()
		}
		n.log.Commit(newCommit)
		n.applyCommitted(ctx, newCommit)
	}

	n.electionTimer.Reset()
	n.send(ctx, from, AppendSuccessful{Term: n.currentTerm, MatchIndex: n.log.LastIndex()})
}

// mergeAppend performs the idempotent suffix merge (replaying the same
// batch twice leaves the log identical) and maintains the append-time
// configuration-adoption rule, reverting to the last surviving
// configuration in the log if a truncation removes config entries.
func (n *Node) mergeAppend(prevIndex LogIndex, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	before := n.log.LastIndex()
	insertAt, fromNew := n.log.firstConflict(prevIndex+1, entries)
	if fromNew == len(entries) {
		return // already fully present: no-op, preserves idempotence
	}
	if insertAt-1 < before {
		n.revertConfigAfterTruncate(insertAt - 1)
		n.log.TruncateAfter(insertAt - 1)
	}
	for _, e := range entries[fromNew:] {
		n.log.Append(e)
		n.adoptConfigIfApplicable(e)
	}
}

// revertConfigAfterTruncate drops configHistory entries beyond index and
// restores the most recent surviving configuration (or the bootstrap
// configuration if none remain).
func (n *Node) revertConfigAfterTruncate(index LogIndex) {
	kept := n.configHistory[:0]
	for _, c := range n.configHistory {
		if c.index <= index {
			kept = append(kept, c)
		}
	}
	n.configHistory = kept
	if len(kept) == 0 {
		n.config = n.bootstrapConfig
		n.configVersion = 0
		return
	}
	last := kept[len(kept)-1]
	n.config = last.config
	n.configVersion = last.version
}

// onElectionTimeout fires when a follower hears no valid AppendEntries (or
// a candidate fails to reach quorum) within the randomized window.
func (n *Node) onElectionTimeout(ctx context.Context) {
	n.startElection(ctx)
}
