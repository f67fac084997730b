package raft

import "context"

// dispatchRPC applies the uniform term precondition — any inbound RPC
// carrying a higher term forces a step-down to Follower before the message
// is handled — and then routes the message to the role-specific handler.
func (n *Node) dispatchRPC(ctx context.Context, from MemberId, body interface{}) {
	if term, ok := messageTerm(body); ok && term > n.currentTerm {
		n.logger.Debugw("term out of date, stepping down", "theirTerm", term, "ourTerm", n.currentTerm, "from", from)
		n.becomeFollower(term)
	}

	switch m := body.(type) {
	case RequestVote:
		n.handleRequestVote(ctx, from, m)
	case VoteGranted:
		n.handleVoteGranted(ctx, from, m)
	case VoteDenied:
		n.handleVoteDenied(ctx, from, m)
	case AppendEntries:
		n.handleAppendEntries(ctx, from, m)
	case AppendSuccessful:
		n.handleAppendSuccessful(ctx, from, m)
	case AppendRejected:
		n.handleAppendRejected(ctx, from, m)
	case ClientMessage:
		n.handleRemoteClientMessage(ctx, from, m)
	case RequestConfiguration:
		n.send(ctx, from, ChangeConfiguration{Config: n.config})
	case AskForState:
		n.send(ctx, from, IAmInState{Role: n.role, Term: n.currentTerm})
	case ChangeConfiguration:
		n.handleAdminChangeConfiguration(m)
	default:
		n.logger.Debugw("dropping message of unknown type", "from", from)
	}
}

func (n *Node) dispatchLocal(ctx context.Context, req nodeRequest) {
	switch req.kind {
	case reqClientSubmit:
		cmd := req.body.(Command)
		n.submit(ctx, n.self, cmd, req.reply)
	case reqReport:
		req.reply <- reportResult{Role: n.role, Term: n.currentTerm, Config: n.config}
	case reqChangeConfiguration:
		cc := req.body.(ChangeConfiguration)
		n.handleAdminChangeConfiguration(cc)
		req.reply <- struct{}{}
	}
}

type reportResult struct {
	Role   Role
	Term   Term
	Config ClusterConfiguration
}

// messageTerm extracts the Term carried by msg, if any. Local requests
// (ClientMessage submitted in-process, admin calls) do not carry a term and
// are exempt from the uniform precondition.
func messageTerm(msg interface{}) (Term, bool) {
	switch m := msg.(type) {
	case RequestVote:
		return m.Term, true
	case VoteGranted:
		return m.Term, true
	case VoteDenied:
		return m.Term, true
	case AppendEntries:
		return m.Term, true
	case AppendSuccessful:
		return m.Term, true
	case AppendRejected:
		return m.Term, true
	default:
		return 0, false
	}
}

// handleAdminChangeConfiguration applies a bootstrap/injected configuration
// if it is newer than the node's current one; a stale or regressed
// configuration is ignored silently.
func (n *Node) handleAdminChangeConfiguration(cc ChangeConfiguration) {
	if cc.Config == nil || !cc.Config.IsNewerThan(n.config) {
		n.logger.Debugw("ignoring non-newer configuration (ConfigRegression)")
		return
	}
	n.config = cc.Config
}
