// End-to-end wiring test: grounded on the teacher's root main_test.go
// (aecra-raft main_test.go), generalized from the calculator application to
// wordcat and from the teacher's net/rpc Cluster to the bus/cluster pairing.
package raftcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raftlab/raftcore/cluster"
	"github.com/raftlab/raftcore/raft"
	"github.com/raftlab/raftcore/wordcat"
)

func TestEndToEndClusterAppliesCommands(t *testing.T) {
	c := cluster.NewCluster(3, func() raft.StateMachine { return wordcat.NewApplication() }).
		WithConfig(raft.Config{
			ElectionTimeoutMin: 30 * time.Millisecond,
			ElectionTimeoutMax: 60 * time.Millisecond,
			HeartbeatInterval:  10 * time.Millisecond,
			AppendEntriesBatch: 16,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Serve(ctx))
	defer c.Shutdown()

	require.Eventually(t, func() bool {
		for _, node := range c.Nodes {
			role, _, _, err := node.Report(ctx)
			require.NoError(t, err)
			if role == raft.Leader {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	res, err := c.Submit(ctx, wordcat.Entry{Method: wordcat.MethodCreate})
	require.NoError(t, err)
	instanceId := res.(wordcat.Result).Value

	res, err = c.Submit(ctx, wordcat.Entry{Method: wordcat.MethodAppend, InstanceId: instanceId, Word: "consensus"})
	require.NoError(t, err)
	require.Equal(t, "consensus", res.(wordcat.Result).Value)

	res, err = c.Submit(ctx, wordcat.Entry{Method: wordcat.MethodAppend, InstanceId: instanceId, Word: "achieved"})
	require.NoError(t, err)
	require.Equal(t, "consensus achieved", res.(wordcat.Result).Value)

	res, err = c.Submit(ctx, wordcat.Entry{Method: wordcat.MethodDelete, InstanceId: instanceId})
	require.NoError(t, err)
	require.True(t, res.(wordcat.Result).Result)
}
