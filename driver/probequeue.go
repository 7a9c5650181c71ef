package driver

import (
	"sync"

	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

// probeQueue is the deduplicating liveness-probe queue of
// SPEC_FULL.md §4.7: any candidate-for-eviction bubbled up from a
// bucket insert lands here, and a single background goroutine drains
// it with the driver's ping timeout — keeping ReceiveMessage (called
// from the receive loop) non-blocking while still honoring the
// "probe the head on overflow" discipline of spec.md §4.2.
type probeQueue struct {
	mu      sync.Mutex
	pending map[identity.Address]peer.BoundPeer
	order   []identity.Address
}

func newProbeQueue() *probeQueue {
	return &probeQueue{pending: make(map[identity.Address]peer.BoundPeer)}
}

// Push enqueues p for probing, deduplicating by address.
func (q *probeQueue) Push(p peer.BoundPeer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.pending[p.Address]; exists {
		return
	}
	q.pending[p.Address] = p
	q.order = append(q.order, p.Address)
}

// Pop removes and returns the oldest queued peer, or false if empty.
func (q *probeQueue) Pop() (peer.BoundPeer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return peer.BoundPeer{}, false
	}
	addr := q.order[0]
	q.order = q.order[1:]
	p := q.pending[addr]
	delete(q.pending, addr)
	return p, true
}

// Len reports the number of peers currently queued for probing.
func (q *probeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
