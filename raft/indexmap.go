package raft

import "sort"

// IndexMap is a per-peer MemberId -> LogIndex table: a leader's nextIndex
// or matchIndex. Grounded on the teacher's nextIndex/matchIndex maps
// (aecra-raft raft.go) and generalized into its own type, since both
// tables need the same consensus-index computation.
type IndexMap struct {
	values map[MemberId]LogIndex
}

// NewIndexMap returns an empty IndexMap.
func NewIndexMap() *IndexMap {
	return &IndexMap{values: make(map[MemberId]LogIndex)}
}

// Put unconditionally sets the index for member.
func (m *IndexMap) Put(member MemberId, index LogIndex) {
	m.values[member] = index
}

// PutIfSmaller sets the index for member only if it is smaller than the
// currently stored value (or no value is stored yet).
func (m *IndexMap) PutIfSmaller(member MemberId, index LogIndex) {
	if cur, ok := m.values[member]; !ok || index < cur {
		m.values[member] = index
	}
}

// PutIfGreater sets the index for member only if it is greater than the
// currently stored value (or no value is stored yet).
func (m *IndexMap) PutIfGreater(member MemberId, index LogIndex) {
	if cur, ok := m.values[member]; !ok || index > cur {
		m.values[member] = index
	}
}

// ValueFor returns the index stored for member and whether it was present.
func (m *IndexMap) ValueFor(member MemberId) (LogIndex, bool) {
	v, ok := m.values[member]
	return v, ok
}

// Delete removes any stored value for member.
func (m *IndexMap) Delete(member MemberId) {
	delete(m.values, member)
}

// ConsensusForIndex returns the largest index k such that a quorum of
// members under config has a stored index >= k. Members with no stored
// value are treated as index 0. For Joint configurations the result is the
// min across the two independent quorum computations, so an index only
// counts as committed once both the old and new member sets agree on it.
func (m *IndexMap) ConsensusForIndex(config ClusterConfiguration) LogIndex {
	switch c := config.(type) {
	case Stable:
		return m.consensusOver(c.Members())
	case Joint:
		oldN := m.consensusOver(c.Old)
		newN := m.consensusOver(c.New)
		if oldN < newN {
			return oldN
		}
		return newN
	default:
		panic("raft: unknown ClusterConfiguration variant")
	}
}

// consensusOver returns the lower-median of the stored indices over
// members, treating any absent member as index 0.
func (m *IndexMap) consensusOver(members []MemberId) LogIndex {
	if len(members) == 0 {
		return 0
	}
	vals := make([]LogIndex, len(members))
	for i, member := range members {
		vals[i] = m.values[member]
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	mid := (len(vals) - 1) / 2
	return vals[mid]
}
