package raft

// Wire messages exchanged between nodes over the MessageBus, and between a
// node and its embedding application. Every RPC carries a Term so the
// uniform term precondition can be applied before dispatch.

// RequestVote is sent by a candidate to every peer in its configuration.
type RequestVote struct {
	Term         Term
	CandidateId  MemberId
	LastLogIndex LogIndex
	LastLogTerm  Term
}

// VoteGranted is the affirmative RequestVote reply.
type VoteGranted struct {
	Term Term
}

// VoteDenied is the negative RequestVote reply.
type VoteDenied struct {
	Term Term
}

// AppendEntries is sent by a leader to replicate (or, empty, to heartbeat).
type AppendEntries struct {
	Term         Term
	LeaderId     MemberId
	PrevLogIndex LogIndex
	PrevLogTerm  Term
	Entries      []Entry
	LeaderCommit LogIndex
}

// AppendSuccessful is the affirmative AppendEntries reply.
type AppendSuccessful struct {
	Term       Term
	MatchIndex LogIndex
}

// AppendRejected is the negative AppendEntries reply.
type AppendRejected struct {
	Term      Term
	LastIndex LogIndex
}

// ClientMessage carries a client command to be appended to the log. Client
// is the reply address; Command is opaque to the core unless it is one of
// the two recognized configuration-change kinds.
type ClientMessage struct {
	Client  MemberId
	Command Command
}

// ClientReply is sent back to a ClientMessage's Client once the
// corresponding entry commits and is applied.
type ClientReply struct {
	Index  LogIndex
	Result interface{}
	// Err is set when application-level apply failed; the entry is still
	// considered committed.
	Err error
	// NotLeader, when true, means the receiving node was not the leader and
	// LeaderHint (if nonempty) names the last known leader.
	NotLeader  bool
	LeaderHint MemberId
}

// ChangeConfiguration injects a bootstrap (or externally triggered)
// configuration. Used both as a client-visible bootstrap command and as the
// reply to RequestConfiguration.
type ChangeConfiguration struct {
	Config ClusterConfiguration
}

// RequestConfiguration asks a node to report its current ClusterConfiguration.
type RequestConfiguration struct{}

// AskForState asks a node to report its current role.
type AskForState struct{}

// IAmInState is the reply to AskForState.
type IAmInState struct {
	Role Role
	Term Term
}
