// Package cluster is the cluster-discovery glue: the MessageBus adapter is
// the sole seam between the core and whatever transport and
// membership-discovery mechanism a deployment chooses. This in-process
// implementation wires every raft.Node to a shared bus.Bus and hands each
// one a common bootstrap configuration through raft.NewNode, generalized from the teacher's net/rpc ConnectToPeer fan-out (aecra-raft
// cluster/cluster.go) into bus mailbox registration.
package cluster

import (
	"context"
	"fmt"

	"github.com/raftlab/raftcore/bus"
	"github.com/raftlab/raftcore/raft"
)

// Cluster runs num in-process raft.Node instances sharing one in-memory
// bus.Bus, each running an independently constructed application instance.
type Cluster struct {
	Nodes     []*raft.Node
	Apps      []raft.StateMachine
	members   []raft.MemberId
	bus       *bus.Bus
	cancel    context.CancelFunc
	newApp    func() raft.StateMachine
	cfg       raft.Config
	eventSink func(raft.MemberId) raft.EventStream
}

// NewCluster returns a Cluster of num nodes named n0..n(num-1), each
// running its own instance of the application newApp constructs.
func NewCluster(num int, newApp func() raft.StateMachine) *Cluster {
	members := make([]raft.MemberId, num)
	for i := 0; i < num; i++ {
		members[i] = raft.MemberId(fmt.Sprintf("n%d", i))
	}
	return &Cluster{
		members: members,
		newApp:  newApp,
		cfg:     raft.DefaultConfig(),
	}
}

// WithConfig overrides the raft.Config every node in the cluster is built
// with (e.g. for tests wanting faster timers than DefaultConfig).
func (c *Cluster) WithConfig(cfg raft.Config) *Cluster {
	c.cfg = cfg
	return c
}

// WithEventSink installs a per-member raft.EventStream factory, letting
// tests observe BeginElection/ElectedAsLeader/EntryCommitted milestones
// (e.g. via raft.NewChannelEventStream) for each node individually.
func (c *Cluster) WithEventSink(sink func(raft.MemberId) raft.EventStream) *Cluster {
	c.eventSink = sink
	return c
}

// Members returns the cluster's member ids, in bootstrap order.
func (c *Cluster) Members() []raft.MemberId {
	return append([]raft.MemberId{}, c.members...)
}

// Serve constructs, bootstraps and starts every node. The bootstrap
// configuration is a Stable set containing every member, so the cluster is
// immediately able to elect a leader without a separate joint-consensus
// bring-up step.
func (c *Cluster) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.bus = bus.New(nil)
	bootstrap := raft.NewStable(append([]raft.MemberId{}, c.members...))

	c.Nodes = make([]*raft.Node, len(c.members))
	c.Apps = make([]raft.StateMachine, len(c.members))
	for i, self := range c.members {
		app := c.newApp()
		c.Apps[i] = app

		var events raft.EventStream = raft.NoopEventStream{}
		if c.eventSink != nil {
			events = c.eventSink(self)
		}

		node, err := raft.NewNode(self, c.bus.Endpoint(self), app, nil, events, c.cfg, bootstrap)
		if err != nil {
			return fmt.Errorf("cluster: constructing node %s: %w", self, err)
		}
		c.Nodes[i] = node
	}

	for _, node := range c.Nodes {
		if err := node.Start(ctx); err != nil {
			return fmt.Errorf("cluster: starting node: %w", err)
		}
	}
	return nil
}

// Shutdown stops every node and closes the shared bus.
func (c *Cluster) Shutdown() {
	for _, node := range c.Nodes {
		node.Stop()
	}
	if c.bus != nil {
		c.bus.Shutdown()
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// Submit tries every node in turn until one accepts the command as leader,
// mirroring the teacher's round-robin Submit (aecra-raft cluster.Submit)
// generalized to surface the error from the last attempt when every node
// refuses.
func (c *Cluster) Submit(ctx context.Context, command raft.Command) (interface{}, error) {
	var lastErr error
	for _, node := range c.Nodes {
		res, err := node.Submit(ctx, command)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
