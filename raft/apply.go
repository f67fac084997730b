package raft

import "context"

// adoptConfigIfApplicable adopts a configuration at append time, not at
// commit time: the node acts on the new membership as soon as the entry
// lands in its own log, before a quorum has necessarily seen it.
func (n *Node) adoptConfigIfApplicable(entry Entry) {
	switch cmd := entry.Command.(type) {
	case StableConfigCommand:
		n.configVersion++
		n.config = newStableVersioned(cmd.Members, n.configVersion)
		n.configHistory = append(n.configHistory, configAtIndex{index: entry.Index, config: n.config, version: n.configVersion})
	case JointConfigCommand:
		n.configVersion++
		n.config = newJointVersioned(cmd.Old, cmd.New, n.configVersion)
		n.configHistory = append(n.configHistory, configAtIndex{index: entry.Index, config: n.config, version: n.configVersion})
	}
}

// applyCommitted walks the newly committed entries in order, applying
// normal commands to the StateMachine, replying to originating clients,
// and handling two configuration-entry special cases:
//   - StableConfigCommand entries are never applied to the StateMachine
//     (they already took effect at append time).
//   - JointConfigCommand entries, once committed by the leader, cause the
//     leader to propose the corresponding StableConfigCommand(new) as the
//     very next entry — a direct internal call, never a bus self-send.
func (n *Node) applyCommitted(ctx context.Context, upTo LogIndex) {
	from := n.lastApplied()
	entries := n.log.Between(from, upTo)
	for _, e := range entries {
		n.applyOne(ctx, e)
		n.lastAppliedIndex = e.Index
		if n.cfg.PublishTestEvents {
			n.events.EntryCommitted(e.Index)
		}
	}
}

func (n *Node) lastApplied() LogIndex { return n.lastAppliedIndex }

func (n *Node) applyOne(ctx context.Context, e Entry) {
	switch cmd := e.Command.(type) {
	case StableConfigCommand:
		n.replyToClient(e, nil, nil)
		n.stepDownIfExcludedFromStable(cmd)
	case JointConfigCommand:
		n.replyToClient(e, nil, nil)
		if n.role == Leader {
			n.appendConfigEntry(ctx, StableConfigCommand{Members: cmd.New})
		}
	default:
		result, err := n.app.Apply(e.Command)
		n.replyToClient(e, result, err)
	}
}

// stepDownIfExcludedFromStable steps a leader down once a configuration
// excluding it commits. Stepping down only on commit, rather than on
// append, means the leader keeps driving replication of the outgoing
// configuration change until that change is itself irreversible.
func (n *Node) stepDownIfExcludedFromStable(cmd StableConfigCommand) {
	if n.role != Leader {
		return
	}
	if !contains(cmd.Members, n.self) {
		n.logger.Infow("stepping down: excluded from committed configuration", "term", n.currentTerm)
		n.becomeFollower(n.currentTerm)
	}
}

// appendConfigEntry is the leader's self-proposed follow-up entry: a
// direct state transition, not a ClientMessage round-trip through the bus.
func (n *Node) appendConfigEntry(ctx context.Context, cmd Command) {
	entry := Entry{Command: cmd, Term: n.currentTerm, Index: n.log.LastIndex() + 1}
	n.log.Append(entry)
	_ = n.store.AppendEntry(entry)
	n.adoptConfigIfApplicable(entry)
	n.matchIndex.Put(n.self, n.log.LastIndex())
	n.leaderSendAEs(ctx)
	n.tryAdvanceCommit(ctx)
}

// replyToClient routes an apply result back to the entry's originating
// client: a remote MessageBus address if Entry.Client is set, or a locally
// registered Submit waiter if one is pending for this index.
func (n *Node) replyToClient(e Entry, result interface{}, err error) {
	reply := ClientReply{Index: e.Index, Result: result, Err: err}
	if ch, ok := n.pendingSubmits[e.Index]; ok {
		ch <- reply
		delete(n.pendingSubmits, e.Index)
	}
	if e.Client != "" {
		n.send(context.Background(), e.Client, reply)
	}
}
