package raft

// ClusterConfiguration is the membership of the cluster as seen by a node:
// either a single stable set, or a joint-consensus transition between two
// sets. Grounded on the divtxt-raft-consensus ClusterInfo vocabulary
// surfaced across the retrieval pack (e.g. mind1949-raft's leader.go
// majority computation).
type ClusterConfiguration interface {
	// Members returns every MemberId that must be reachable for this
	// configuration to be meaningful (union of old+new for Joint).
	Members() []MemberId
	// HasQuorum reports whether votes (a set of MemberId who voted/matched)
	// forms a quorum under this configuration.
	HasQuorum(votes map[MemberId]bool) bool
	// IsPartOfNewConfiguration reports whether self belongs to the
	// configuration's "new" view: for Stable that's just membership; for
	// Joint it is membership in New.
	IsPartOfNewConfiguration(self MemberId) bool
	// IsNewerThan orders configurations: a Joint carrying other as its Old
	// view is newer than other; a Stable derived from a Joint's New view is
	// newer than that Joint.
	IsNewerThan(other ClusterConfiguration) bool
}

// Stable is a ClusterConfiguration with a single membership set.
type Stable struct {
	Members_ []MemberId
	// version is a monotonically increasing tag used only to implement
	// IsNewerThan; it is set by whoever constructs the configuration, at
	// append time, never at commit time.
	version int
}

// NewStable returns a Stable configuration with the given members.
func NewStable(members []MemberId) Stable {
	return Stable{Members_: members}
}

func (s Stable) Members() []MemberId { return s.Members_ }

func (s Stable) HasQuorum(votes map[MemberId]bool) bool {
	return majority(s.Members_, votes)
}

func (s Stable) IsPartOfNewConfiguration(self MemberId) bool {
	return contains(s.Members_, self)
}

func (s Stable) IsNewerThan(other ClusterConfiguration) bool {
	switch o := other.(type) {
	case Stable:
		return s.version > o.version
	case Joint:
		// A Stable derived from a Joint's New view is newer than that Joint.
		return s.version >= o.version
	default:
		return true
	}
}

// Joint is a ClusterConfiguration transitioning from Old to New; it
// requires a majority of both sets to reach quorum.
type Joint struct {
	Old     []MemberId
	New     []MemberId
	version int
}

// NewJoint returns a Joint configuration carrying oldVersion+1 as its
// version so it compares newer than the Stable it supersedes.
func NewJoint(old, new []MemberId, oldVersion int) Joint {
	return Joint{Old: old, New: new, version: oldVersion + 1}
}

func (j Joint) Members() []MemberId {
	seen := make(map[MemberId]bool)
	out := make([]MemberId, 0, len(j.Old)+len(j.New))
	for _, m := range append(append([]MemberId{}, j.Old...), j.New...) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func (j Joint) HasQuorum(votes map[MemberId]bool) bool {
	return majority(j.Old, votes) && majority(j.New, votes)
}

func (j Joint) IsPartOfNewConfiguration(self MemberId) bool {
	return contains(j.New, self)
}

func (j Joint) IsNewerThan(other ClusterConfiguration) bool {
	switch o := other.(type) {
	case Stable:
		return j.version > o.version
	case Joint:
		return j.version > o.version
	default:
		return true
	}
}

// StableSucceeding returns the Stable({New}) configuration a leader
// proposes once a Joint configuration commits.
func (j Joint) StableSucceeding() Stable {
	return Stable{Members_: j.New, version: j.version + 1}
}

// newStableVersioned/newJointVersioned are the internal constructors used
// by the append-time config-adoption rule in apply.go; they stamp an
// explicit version so IsNewerThan can order configurations that arrive
// over the bus (e.g. a RequestConfiguration reply) against the node's own.
func newStableVersioned(members []MemberId, version int) Stable {
	return Stable{Members_: members, version: version}
}

func newJointVersioned(old, new []MemberId, version int) Joint {
	return Joint{Old: old, New: new, version: version}
}

func majority(set []MemberId, votes map[MemberId]bool) bool {
	if len(set) == 0 {
		return false
	}
	count := 0
	for _, m := range set {
		if votes[m] {
			count++
		}
	}
	return count*2 > len(set)
}

func contains(set []MemberId, id MemberId) bool {
	for _, m := range set {
		if m == id {
			return true
		}
	}
	return false
}
