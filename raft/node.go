package raft

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Node is a single cluster member: a role state machine driving elections,
// replication and commit. All of its state is owned exclusively by the
// goroutine started in Start — no field below is ever touched from outside
// that goroutine, which is what makes the single-threaded cooperative
// actor model sound without a mutex. This replaces the teacher's
// (aecra-raft ConsensusModule) per-RPC goroutine-plus-mutex style with a
// mailbox/event-loop, while keeping the teacher's method breakdown
// (becomeFollower/startElection/startLeader as free operations on the
// node).
type Node struct {
	self   MemberId
	bus    MessageBus
	app    StateMachine
	store  PersistentState
	events EventStream
	cfg    Config
	logger *zap.SugaredLogger

	bootstrapConfig ClusterConfiguration

	// --- actor-owned state; only ever touched inside run() ---
	role        Role
	currentTerm Term
	votedFor    MemberId
	log         *Log

	config        ClusterConfiguration
	configVersion int
	configHistory []configAtIndex

	lastAppliedIndex LogIndex
	lastKnownLeader  MemberId

	votesGranted map[MemberId]bool

	nextIndex  *IndexMap
	matchIndex *IndexMap

	pendingSubmits map[LogIndex]chan ClientReply

	electionTimer   *electionTimer
	heartbeatTicker *time.Ticker

	mailbox chan nodeRequest
	cancel  context.CancelFunc
	done    chan struct{}
}

type configAtIndex struct {
	index   LogIndex
	config  ClusterConfiguration
	version int
}

// nodeRequest is the tagged-sum local-call event. RPC events arrive through
// the MessageBus subscription channel instead, since they are already
// self-describing envelopes; nodeRequest covers the Client and Admin
// classes, which are local Go calls rather than bus deliveries.
type nodeRequest struct {
	kind  requestKind
	from  MemberId
	body  interface{}
	reply chan interface{}
}

type requestKind int

const (
	reqClientSubmit requestKind = iota
	reqReport
	reqChangeConfiguration
)

// NewNode constructs a Node. bootstrap must be non-empty and contain self,
// or ErrConfigurationInvariantViolation is returned (fatal). cfg is
// validated with Config.Validate (ErrTimerMisconfigured, also fatal).
func NewNode(self MemberId, bus MessageBus, app StateMachine, store PersistentState, events EventStream, cfg Config, bootstrap ClusterConfiguration) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimerMisconfigured, err)
	}
	if bootstrap == nil || len(bootstrap.Members()) == 0 {
		return nil, wrapConfigViolation("bootstrap configuration must be non-empty")
	}
	if !contains(bootstrap.Members(), self) {
		return nil, wrapConfigViolation("self must be a member of the bootstrap configuration")
	}
	if events == nil {
		events = NoopEventStream{}
	}
	if store == nil {
		store = NewInMemoryPersistentState()
	}

	logger, _ := zap.NewProduction()

	n := &Node{
		self:            self,
		bus:             bus,
		app:             app,
		store:           store,
		events:          events,
		cfg:             cfg,
		logger:          logger.Sugar().With("member", string(self)),
		bootstrapConfig: bootstrap,
		role:            Follower,
		votedFor:        "",
		log:             NewLog(),
		config:          bootstrap,
		votesGranted:    make(map[MemberId]bool),
		nextIndex:       NewIndexMap(),
		matchIndex:      NewIndexMap(),
		pendingSubmits:  make(map[LogIndex]chan ClientReply),
		electionTimer:   newElectionTimer(cfg.ElectionTimeoutMin, cfg.ElectionTimeoutMax),
		mailbox:         make(chan nodeRequest),
		done:            make(chan struct{}),
	}
	return n, nil
}

// Start subscribes to the bus and begins the node's single event loop. It
// returns once the subscription is established; the loop itself runs in a
// background goroutine until ctx is cancelled or Stop is called.
func (n *Node) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	busCh, err := n.bus.Subscribe(runCtx, n.self)
	if err != nil {
		cancel()
		return err
	}

	electionC := n.electionTimer.Reset()
	go n.run(runCtx, busCh, electionC)
	return nil
}

// Stop cancels the node's run loop. It returns once the loop has exited.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	<-n.done
}

// run is the node's single serialized event loop: every event — timer
// fire, peer RPC delivery, client submit, admin request — passes through
// this select and is handled to completion before the next is read. No
// handler below ever blocks on I/O.
func (n *Node) run(ctx context.Context, busCh <-chan BusMessage, electionC <-chan time.Time) {
	defer close(n.done)
	var heartbeatC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			n.electionTimer.Stop()
			if n.heartbeatTicker != nil {
				n.heartbeatTicker.Stop()
			}
			return

		case msg, ok := <-busCh:
			if !ok {
				return
			}
			n.dispatchRPC(ctx, msg.From, msg.Body)

		case <-electionC:
			n.onElectionTimeout(ctx)

		case <-heartbeatC:
			if n.role == Leader {
				n.leaderSendAEs(ctx)
			}

		case req := <-n.mailbox:
			n.dispatchLocal(ctx, req)
		}

		electionC = n.currentElectionChan()
		heartbeatC = n.currentHeartbeatChan()
	}
}

// currentElectionChan/currentHeartbeatChan re-read the armed channel after
// every event, since becomeLeader/becomeFollower/startElection re-arm
// timers as a side effect of the handler that just ran.
func (n *Node) currentElectionChan() <-chan time.Time {
	if n.role == Leader {
		return nil
	}
	return n.electionTimer.pending()
}

func (n *Node) currentHeartbeatChan() <-chan time.Time {
	if n.role != Leader || n.heartbeatTicker == nil {
		return nil
	}
	return n.heartbeatTicker.C
}

func (n *Node) newTraceId() string { return uuid.NewString() }

func (n *Node) send(ctx context.Context, to MemberId, body interface{}) {
	if to == n.self {
		return
	}
	if err := n.bus.Send(ctx, to, body); err != nil {
		n.logger.Debugw("send failed", "to", to, "err", err, "trace", n.newTraceId())
	}
}

func (n *Node) others() []MemberId {
	out := make([]MemberId, 0, len(n.config.Members()))
	for _, m := range n.config.Members() {
		if m != n.self {
			out = append(out, m)
		}
	}
	return out
}
