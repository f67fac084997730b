package raft

import (
	"context"
	"errors"
)

// ErrNotLeader is returned by Submit when this node is not currently the
// leader. The caller should retry against a different node. Submit does not
// return a leader hint; a remote ClientMessage sender instead receives a
// ClientReply whose LeaderHint, if known, names the last leader this node
// heard an AppendEntries from.
var ErrNotLeader = errors.New("raft: not leader")

// Submit is the client-facing entry point for in-process callers (as
// opposed to a remote ClientMessage arriving over the MessageBus). It
// blocks until the entry commits and is applied, or ctx is cancelled.
func (n *Node) Submit(ctx context.Context, command Command) (interface{}, error) {
	reply := make(chan interface{}, 1)
	select {
	case n.mailbox <- nodeRequest{kind: reqClientSubmit, body: command, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		cr := r.(ClientReply)
		if cr.NotLeader {
			return nil, ErrNotLeader
		}
		return cr.Result, cr.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Report returns the node's current role, term and configuration. It is a
// local synchronous call routed through the same mailbox as everything
// else, so it never races the event loop's exclusive ownership of state.
func (n *Node) Report(ctx context.Context) (Role, Term, ClusterConfiguration, error) {
	reply := make(chan interface{}, 1)
	select {
	case n.mailbox <- nodeRequest{kind: reqReport, reply: reply}:
	case <-ctx.Done():
		return 0, 0, nil, ctx.Err()
	}
	select {
	case r := <-reply:
		rr := r.(reportResult)
		return rr.Role, rr.Term, rr.Config, nil
	case <-ctx.Done():
		return 0, 0, nil, ctx.Err()
	}
}

// ChangeConfiguration injects a configuration from outside the cluster:
// the bootstrap discovery glue's only responsibility toward a node is
// delivering a ChangeConfiguration once it has joined the cluster.
func (n *Node) ChangeConfiguration(ctx context.Context, config ClusterConfiguration) error {
	reply := make(chan interface{}, 1)
	select {
	case n.mailbox <- nodeRequest{kind: reqChangeConfiguration, body: ChangeConfiguration{Config: config}, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleRemoteClientMessage is the policy for a ClientMessage received over
// the bus at a non-leader: reply with a redirect hint (or a plain
// rejection if no leader is known yet).
func (n *Node) handleRemoteClientMessage(ctx context.Context, from MemberId, m ClientMessage) {
	n.submit(ctx, from, m.Command, nil)
}

// submit is the single internal entry point for both Submit (local,
// client == self, localReply delivers ClientReply back to the caller) and a
// remote ClientMessage (client == sender's MemberId, reply travels over
// the bus). Grounded on the teacher's ConsensusModule.Submit, generalized
// from a polling loop over a shared channel into a direct actor-owned
// append with no suspension points inside the handler.
func (n *Node) submit(ctx context.Context, client MemberId, command Command, localReply chan interface{}) {
	if n.role != Leader {
		n.replyNotLeader(localReply)
		if client != n.self && client != "" {
			n.send(ctx, client, ClientReply{NotLeader: true, LeaderHint: n.lastKnownLeader})
		}
		return
	}

	entryClient := MemberId("")
	if client != n.self {
		entryClient = client
	}

	entry := Entry{Command: command, Term: n.currentTerm, Index: n.log.LastIndex() + 1, Client: entryClient}
	n.log.Append(entry)
	_ = n.store.AppendEntry(entry)
	n.adoptConfigIfApplicable(entry)
	n.matchIndex.Put(n.self, n.log.LastIndex())

	if localReply != nil {
		waiter := make(chan ClientReply, 1)
		n.pendingSubmits[entry.Index] = waiter
		go n.forwardLocalReply(waiter, localReply)
	}

	n.leaderSendAEs(ctx)
	n.tryAdvanceCommit(ctx)
}

// forwardLocalReply bridges the buffered ClientReply channel registered in
// pendingSubmits to the interface{} reply channel Submit is waiting on,
// without holding up the actor's event loop.
func (n *Node) forwardLocalReply(waiter chan ClientReply, out chan interface{}) {
	reply := <-waiter
	out <- reply
}

func (n *Node) replyNotLeader(localReply chan interface{}) {
	if localReply != nil {
		localReply <- ClientReply{NotLeader: true, LeaderHint: n.lastKnownLeader}
	}
}

// failPendingSubmits is called when this node steps down from Leader: any
// Submit callers still waiting for a commit are unblocked with
// ErrNotLeader rather than left hanging forever.
func (n *Node) failPendingSubmits() {
	for index, ch := range n.pendingSubmits {
		ch <- ClientReply{Index: index, NotLeader: true}
		delete(n.pendingSubmits, index)
	}
}
