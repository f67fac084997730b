package raft

// Log is the append-only, term-tagged replicated log kept by every node.
// Index 0 is the sentinel "empty" index; termAt(0) is always 0. The log is
// conceptually infinite forward; snapshotting/compaction is out of scope.
//
// Invariants maintained by this type alone (Log Matching requires
// cooperation from the role state machine when truncating/appending):
//   - committedIndex <= lastIndex() at all times.
//   - Commit never decreases committedIndex; TruncateAfter below it clamps
//     it down to keep the invariant above.
//   - terms of entries[i] are nondecreasing as i increases.
type Log struct {
	entries   []Entry // entries[0] corresponds to LogIndex 1
	committed LogIndex
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// LastIndex returns the index of the last entry, or 0 if the log is empty.
func (l *Log) LastIndex() LogIndex {
	return LogIndex(len(l.entries))
}

// LastTerm returns the term of the last entry, or 0 if the log is empty.
func (l *Log) LastTerm() Term {
	return l.TermAt(l.LastIndex())
}

// CommittedIndex returns the highest index known to be committed.
func (l *Log) CommittedIndex() LogIndex {
	return l.committed
}

// TermAt returns the term of the entry at index, or 0 for the sentinel
// index 0. Panics if index is beyond lastIndex: callers must only query
// indices they know to exist.
func (l *Log) TermAt(index LogIndex) Term {
	if index == 0 {
		return 0
	}
	if index > l.LastIndex() {
		panic("raft: TermAt called with index beyond end of log")
	}
	return l.entries[index-1].Term
}

// EntryAt returns the entry at index. index must be in [1, lastIndex].
func (l *Log) EntryAt(index LogIndex) Entry {
	return l.entries[index-1]
}

// HasEntryAt reports whether the log has an entry at index with the given
// term. Index 0 is vacuously true (used by AppendEntries's prevLogIndex
// check at the start of an empty log).
func (l *Log) HasEntryAt(index LogIndex, term Term) bool {
	if index == 0 {
		return term == 0
	}
	if index > l.LastIndex() {
		return false
	}
	return l.entries[index-1].Term == term
}

// Append adds entry to the end of the log. The caller (leader role code)
// is responsible for assigning entry.Index == lastIndex()+1 beforehand.
func (l *Log) Append(entry Entry) {
	l.entries = append(l.entries, entry)
}

// EntriesFrom returns up to maxCount entries starting at index (inclusive).
// An empty slice is returned if index is past the end of the log.
func (l *Log) EntriesFrom(index LogIndex, maxCount int) []Entry {
	if index == 0 {
		index = 1
	}
	if index > l.LastIndex() {
		return nil
	}
	end := int(index-1) + maxCount
	if end > len(l.entries) {
		end = len(l.entries)
	}
	out := make([]Entry, end-int(index-1))
	copy(out, l.entries[index-1:end])
	return out
}

// Between returns the entries with index in (fromExclusive, toInclusive].
func (l *Log) Between(fromExclusive, toInclusive LogIndex) []Entry {
	if toInclusive <= fromExclusive {
		return nil
	}
	if toInclusive > l.LastIndex() {
		toInclusive = l.LastIndex()
	}
	out := make([]Entry, 0, toInclusive-fromExclusive)
	for i := fromExclusive + 1; i <= toInclusive; i++ {
		out = append(out, l.entries[i-1])
	}
	return out
}

// TruncateAfter discards every entry with index > index. Used only by a
// follower reacting to a leader-reported conflict (Leader Append-Only: a
// leader must never call this on its own log).
func (l *Log) TruncateAfter(index LogIndex) {
	if index >= l.LastIndex() {
		return
	}
	l.entries = l.entries[:index]
	if l.committed > index {
		l.committed = index
	}
}

// Commit advances committedIndex to index. It is a no-op if index is not
// greater than the current committedIndex (monotonicity) and panics if
// asked to commit past the end of the log.
func (l *Log) Commit(index LogIndex) {
	if index > l.LastIndex() {
		panic("raft: Commit called with index beyond end of log")
	}
	if index > l.committed {
		l.committed = index
	}
}

// MatchesPrefix reports the Log Matching precondition used by AppendEntries:
// the receiver's log contains an entry at prevIndex with term prevTerm.
func (l *Log) MatchesPrefix(prevIndex LogIndex, prevTerm Term) bool {
	return l.HasEntryAt(prevIndex, prevTerm)
}

// firstConflict walks rest against l starting at log index start (>= 1) and
// returns the first index where l's entry and rest's corresponding entry
// disagree on term, or lastIndex()+1 if l ends first, together with the
// offset into rest of that entry (len(rest) if all of rest is present).
func (l *Log) firstConflict(start LogIndex, rest []Entry) (insertAt LogIndex, fromNew int) {
	insertAt = start
	for fromNew < len(rest) {
		if insertAt > l.LastIndex() {
			break
		}
		if l.entries[insertAt-1].Term != rest[fromNew].Term {
			break
		}
		insertAt++
		fromNew++
	}
	return insertAt, fromNew
}
