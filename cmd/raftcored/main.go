// Command raftcored runs an in-process demonstration cluster: N raftcore
// nodes sharing an in-memory bus.Bus, each replicating a wordcat.Application,
// with an optional YAML config file overriding the timer/batch defaults.
// The teacher ships no cmd/ entrypoint of its own; this is new ambient glue
// wiring config, bus, cluster and wordcat together for a reader to run.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raftlab/raftcore/cluster"
	"github.com/raftlab/raftcore/config"
	"github.com/raftlab/raftcore/raft"
	"github.com/raftlab/raftcore/wordcat"
)

func main() {
	nodes := flag.Int("nodes", 3, "number of cluster members")
	configPath := flag.String("config", "", "path to a YAML raft config file (optional)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	cfg := raft.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			sugar.Fatalw("failed to load config", "path", *configPath, "err", err)
		}
		cfg = loaded
	}

	c := cluster.NewCluster(*nodes, func() raft.StateMachine { return wordcat.NewApplication() }).WithConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Serve(ctx); err != nil {
		sugar.Fatalw("failed to start cluster", "err", err)
	}
	defer c.Shutdown()

	sugar.Infow("cluster started", "members", c.Members())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			sugar.Info("shutting down")
			return
		case <-ticker.C:
			reportRoles(ctx, sugar, c)
		}
	}
}

func reportRoles(ctx context.Context, sugar *zap.SugaredLogger, c *cluster.Cluster) {
	for i, node := range c.Nodes {
		role, term, _, err := node.Report(ctx)
		if err != nil {
			continue
		}
		sugar.Infow("node status", "member", c.Members()[i], "term", term, "role", role.String())
	}
}
