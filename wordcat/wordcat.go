// Package wordcat is an example application: a raft.StateMachine that
// replicates a set of independent string buffers across the cluster, each
// built by appending words one command at a time. It is grounded on the
// teacher's calculator package (aecra-raft calculator/calculator.go) — same
// instance-keyed, method-dispatched Command shape — with "push operand
// onto a stack" replaced by "append a word onto a buffer".
package wordcat

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/raftlab/raftcore/raft"
)

// Method names recognized in Entry.Method.
const (
	MethodCreate = "create"
	MethodDelete = "delete"
	MethodAppend = "append"
	MethodClear  = "clear"
	MethodGet    = "get"
)

// Entry is the raft.Command payload submitted by clients of this
// application. InstanceId addresses a specific buffer; it is ignored for
// MethodCreate, which allocates a new one and returns its id.
type Entry struct {
	Method     string
	InstanceId string
	Word       string
}

// Result is the raft.Command result returned from Apply, mirroring the
// teacher's Result shape (Result bool + payload) so callers can check
// success uniformly across methods.
type Result struct {
	Result bool
	Value  string
	Err    string
}

// Application is the wordcat raft.StateMachine: a registry of named string
// buffers, each only ever mutated by Apply — which the core calls exactly
// once per committed entry, in commit order, on a single logical thread.
// The mutex here guards against concurrent Snapshot reads from
// outside that thread, not against concurrent Apply calls, which never
// happen.
type Application struct {
	mu        sync.RWMutex
	instances map[string]*buffer
}

type buffer struct {
	words []string
}

// NewApplication returns an empty wordcat application.
func NewApplication() *Application {
	return &Application{instances: make(map[string]*buffer)}
}

// Apply implements raft.StateMachine.
func (a *Application) Apply(command raft.Command) (interface{}, error) {
	e, ok := command.(Entry)
	if !ok {
		return Result{Err: fmt.Sprintf("wordcat: unexpected command type %T", command)}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch e.Method {
	case MethodCreate:
		// The id is derived from the registry's state, not drawn at random,
		// so every replica applying the same commands allocates the same id.
		for k := len(a.instances); ; k++ {
			id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("wordcat-%d", k))).String()
			if _, taken := a.instances[id]; !taken {
				a.instances[id] = &buffer{}
				return Result{Result: true, Value: id}, nil
			}
		}

	case MethodDelete:
		if _, ok := a.instances[e.InstanceId]; !ok {
			return Result{Err: "no such instance"}, nil
		}
		delete(a.instances, e.InstanceId)
		return Result{Result: true}, nil

	case MethodAppend:
		b, ok := a.instances[e.InstanceId]
		if !ok {
			return Result{Err: "no such instance"}, nil
		}
		b.words = append(b.words, e.Word)
		return Result{Result: true, Value: joined(b)}, nil

	case MethodClear:
		b, ok := a.instances[e.InstanceId]
		if !ok {
			return Result{Err: "no such instance"}, nil
		}
		b.words = nil
		return Result{Result: true}, nil

	case MethodGet:
		b, ok := a.instances[e.InstanceId]
		if !ok {
			return Result{Err: "no such instance"}, nil
		}
		return Result{Result: true, Value: joined(b)}, nil

	default:
		return Result{Err: fmt.Sprintf("wordcat: unknown method %q", e.Method)}, nil
	}
}

func joined(b *buffer) string {
	out := ""
	for i, w := range b.words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

// Snapshot returns the current text of every instance, keyed by instance
// id. It is a read-only inspection aid (e.g. for tests), never used by the
// core itself.
func (a *Application) Snapshot() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]string, len(a.instances))
	for id, b := range a.instances {
		out[id] = joined(b)
	}
	return out
}
