package raft

import "context"

// startElection begins a new term: increment term, vote for self, reset
// the timer, broadcast RequestVote, and publish BeginElection. Called both
// from a follower's election timeout and from a candidate's own timeout
// when no quorum was reached.
func (n *Node) startElection(ctx context.Context) {
	n.role = Candidate
	n.currentTerm++
	n.votedFor = n.self
	_ = n.store.PersistVote(n.currentTerm, n.votedFor)
	n.electionTimer.Reset()
	n.votesGranted = map[MemberId]bool{n.self: true}

	n.logger.Debugw("becomes Candidate", "term", n.currentTerm)
	if n.cfg.PublishTestEvents {
		n.events.BeginElection(n.currentTerm)
	}

	lastIndex, lastTerm := n.log.LastIndex(), n.log.LastTerm()
	for _, peer := range n.others() {
		n.send(ctx, peer, RequestVote{
			Term:         n.currentTerm,
			CandidateId:  n.self,
			LastLogIndex: lastIndex,
			LastLogTerm:  lastTerm,
		})
	}

	// Single-node cluster: self-vote alone already forms a quorum, so a
	// lone member elects itself immediately.
	if n.config.HasQuorum(n.votesGranted) {
		n.becomeLeader(ctx)
	}
}

func (n *Node) handleVoteGranted(ctx context.Context, from MemberId, m VoteGranted) {
	if n.role != Candidate || m.Term != n.currentTerm {
		return
	}
	n.votesGranted[from] = true
	if n.config.HasQuorum(n.votesGranted) {
		n.logger.Debugw("wins election", "term", n.currentTerm, "votes", n.votesGranted)
		n.becomeLeader(ctx)
	}
}

func (n *Node) handleVoteDenied(ctx context.Context, from MemberId, m VoteDenied) {
	// Stepping down on a higher term already happened in dispatchRPC's
	// uniform precondition; a same-term denial needs no action — the
	// candidate simply falls one vote short and waits for its timeout.
}

// becomeFollower implements the uniform precondition's consequence and the
// Candidate/Leader "step down" transitions: clear the vote if term is
// higher than the current one (a vote cast in an unchanged term stands),
// adopt term, reset the election timer, cancel any heartbeat ticker.
func (n *Node) becomeFollower(term Term) {
	wasLeader := n.role == Leader
	n.role = Follower
	if term > n.currentTerm {
		n.votedFor = ""
	}
	n.currentTerm = term
	_ = n.store.PersistTerm(term)
	n.electionTimer.Reset()
	if wasLeader && n.heartbeatTicker != nil {
		n.heartbeatTicker.Stop()
		n.heartbeatTicker = nil
	}
	n.failPendingSubmits()
	n.logger.Debugw("becomes Follower", "term", term)
}
