package raft

import "context"

// StateMachine is the capability supplied by the embedding application.
// The core invokes Apply exactly once per committed user entry, in commit
// order, on a single logical thread of execution; it is never invoked for
// configuration entries.
type StateMachine interface {
	Apply(command Command) (result interface{}, err error)
}

// MessageBus is the capability a node uses to send envelopes to named
// peers and to receive deliveries into its own mailbox. Delivery is
// best-effort, unordered, and may drop or duplicate; the core tolerates
// this through AppendEntries idempotence and at-most-one-vote-per-term
// voting.
type MessageBus interface {
	// Send delivers msg to the named member. It must not block the caller
	// on the recipient's processing.
	Send(ctx context.Context, to MemberId, msg interface{}) error
	// Subscribe registers self to receive messages addressed to it; the
	// returned channel is closed when ctx is done.
	Subscribe(ctx context.Context, self MemberId) (<-chan BusMessage, error)
}

// BusMessage is a single delivery handed to a node's mailbox by the bus.
type BusMessage struct {
	From MemberId
	Body interface{}
}

// PersistentState is the adapter boundary for durable state: persistVote,
// persistTerm, appendEntry, truncateAfter, readAll. A purely in-memory
// adapter, InMemoryPersistentState, is a valid implementation — durability
// itself is the embedder's concern, not the core's.
type PersistentState interface {
	PersistTerm(term Term) error
	PersistVote(term Term, votedFor MemberId) error
	AppendEntry(entry Entry) error
	TruncateAfter(index LogIndex) error
	ReadAll() (term Term, votedFor MemberId, entries []Entry, err error)
}

// InMemoryPersistentState is the trivial PersistentState adapter: it keeps
// everything in memory and loses it on process exit. This is a valid
// core-boundary implementation when durability is not required.
type InMemoryPersistentState struct {
	term     Term
	votedFor MemberId
	entries  []Entry
}

// NewInMemoryPersistentState returns an empty in-memory adapter.
func NewInMemoryPersistentState() *InMemoryPersistentState {
	return &InMemoryPersistentState{}
}

func (s *InMemoryPersistentState) PersistTerm(term Term) error {
	s.term = term
	return nil
}

func (s *InMemoryPersistentState) PersistVote(term Term, votedFor MemberId) error {
	s.term = term
	s.votedFor = votedFor
	return nil
}

func (s *InMemoryPersistentState) AppendEntry(entry Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryPersistentState) TruncateAfter(index LogIndex) error {
	if int(index) < len(s.entries) {
		s.entries = s.entries[:index]
	}
	return nil
}

func (s *InMemoryPersistentState) ReadAll() (Term, MemberId, []Entry, error) {
	return s.term, s.votedFor, append([]Entry(nil), s.entries...), nil
}
