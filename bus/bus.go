// Package bus implements an in-memory raft.MessageBus: the transport seam
// between cluster members. It is grounded on the teacher's cluster.Cluster
// wiring (aecra-raft cluster/cluster.go), generalized from net/rpc peer
// connections into addressed channel mailboxes, and on the teacher's
// buffered-notification-channel idiom (newCommitReadyChan/triggerAEChan in
// aecra-raft raft/raft.go).
package bus

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raftlab/raftcore/raft"
)

// Bus is an in-memory, best-effort implementation of raft.MessageBus
// shared by every node in a process. Delivery is unordered and, when
// DropRate/DuplicateRate are nonzero, may drop or duplicate messages — the
// core is built to tolerate exactly that.
type Bus struct {
	mu        sync.Mutex
	mailboxes map[raft.MemberId]chan delivery
	logger    *zap.SugaredLogger

	// DropRate and DuplicateRate are probabilities in [0,1) applied to
	// every Send, for exercising the core's idempotence under lossy
	// delivery in tests. Both default to 0 (perfectly reliable delivery).
	DropRate      float64
	DuplicateRate float64

	rng *rand.Rand
}

type delivery struct {
	from raft.MemberId
	body interface{}
}

// New returns an empty Bus with perfectly reliable delivery.
func New(logger *zap.SugaredLogger) *Bus {
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l.Sugar()
	}
	return &Bus{
		mailboxes: make(map[raft.MemberId]chan delivery),
		logger:    logger,
		rng:       rand.New(rand.NewSource(1)),
	}
}

// Endpoint returns the raft.MessageBus view a single node at self should
// hold: Send calls tag their envelope with self as sender, matching the
// From field the node's dispatch logic keys every reply update by.
func (b *Bus) Endpoint(self raft.MemberId) raft.MessageBus {
	return &endpoint{bus: b, self: self}
}

type endpoint struct {
	bus  *Bus
	self raft.MemberId
}

func (e *endpoint) Send(ctx context.Context, to raft.MemberId, msg interface{}) error {
	return e.bus.send(ctx, e.self, to, msg)
}

func (e *endpoint) Subscribe(ctx context.Context, self raft.MemberId) (<-chan raft.BusMessage, error) {
	return e.bus.subscribe(ctx, self)
}

func (b *Bus) subscribe(ctx context.Context, self raft.MemberId) (<-chan raft.BusMessage, error) {
	b.mu.Lock()
	ch := make(chan delivery, 256)
	b.mailboxes[self] = ch
	b.mu.Unlock()

	out := make(chan raft.BusMessage, 256)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				delete(b.mailboxes, self)
				b.mu.Unlock()
				return
			case d, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- raft.BusMessage{From: d.from, Body: d.body}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// send delivers msg to to's mailbox, honoring DropRate/DuplicateRate. It
// never blocks the caller for longer than pushing onto a 256-deep buffered
// channel takes; sends to an unknown or full mailbox are silently dropped,
// matching the bus's best-effort delivery contract.
func (b *Bus) send(ctx context.Context, from, to raft.MemberId, msg interface{}) error {
	trace := uuid.NewString()
	b.mu.Lock()
	ch, ok := b.mailboxes[to]
	rng := b.rng
	drop := b.DropRate
	dup := b.DuplicateRate
	b.mu.Unlock()
	if !ok {
		b.logger.Debugw("send to unknown member dropped", "to", to, "trace", trace)
		return nil
	}

	b.mu.Lock()
	roll := rng.Float64()
	dupRoll := rng.Float64()
	b.mu.Unlock()

	if drop > 0 && roll < drop {
		b.logger.Debugw("simulated drop", "to", to, "trace", trace)
		return nil
	}

	copies := 1
	if dup > 0 && dupRoll < dup {
		copies = 2
	}
	for i := 0; i < copies; i++ {
		select {
		case ch <- delivery{from: from, body: msg}:
		case <-ctx.Done():
			return ctx.Err()
		default:
			b.logger.Debugw("mailbox full, delivery dropped", "to", to, "trace", trace)
		}
	}
	return nil
}

// Shutdown closes every registered mailbox.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.mailboxes {
		close(ch)
		delete(b.mailboxes, id)
	}
}
