// Package netsim is an in-memory stand-in for the external
// message-framed transport spec.md §1 deliberately leaves concrete. It
// generalizes the teacher's GlobalNetwork/MockNetwork pair
// (dht/network.go): rather than a package-level map and direct method
// calls into a destination Node, a Switchboard is an explicit,
// concurrency-safe registry that delivers frames through per-node
// inboxes and answers FindPeer the way the teacher's
// MockNetwork.SendFindNode does — by consulting the destination's own
// routing table directly, standing in for the request/response RPC a
// real transport would carry.
package netsim

import (
	"context"
	"sync"
	"time"

	"github.com/kutluhann/p2pcore/errs"
	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/kademlia"
	"github.com/kutluhann/p2pcore/peer"
)

// findPeerFanout is the k a simulated FindPeer RPC passes to the
// responder's Neighbors, so it returns at most 2*findPeerFanout peers,
// independent of how many buckets the responder's table has.
const findPeerFanout = 16

type inboundFrame struct {
	frames [][]byte
	reply  bool
}

type registration struct {
	table *kademlia.RoutingTable
	inbox chan inboundFrame
	alive bool
}

// Switchboard is the shared "mock internet" every registered node's
// Socket and PeerFinder deliver through.
type Switchboard struct {
	mu    sync.Mutex
	nodes map[identity.Address]*registration
}

// New constructs an empty Switchboard.
func New() *Switchboard {
	return &Switchboard{nodes: make(map[identity.Address]*registration)}
}

// Register adds addr to the switchboard, backed by table for FindPeer
// responses, and returns bound Socket/PeerFinder handles for that
// node. The node starts out reachable; use SetAlive to simulate churn.
func (sb *Switchboard) Register(addr identity.Address, table *kademlia.RoutingTable) (*Socket, *PeerFinder) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	reg := &registration{table: table, inbox: make(chan inboundFrame, 64), alive: true}
	sb.nodes[addr] = reg
	return &Socket{sb: sb, self: addr}, &PeerFinder{sb: sb}
}

// SetAlive toggles whether addr answers Ping/FindPeer/SendFrames,
// simulating a node going offline without removing its registration.
func (sb *Switchboard) SetAlive(addr identity.Address, alive bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if reg, ok := sb.nodes[addr]; ok {
		reg.alive = alive
	}
}

func (sb *Switchboard) lookup(addr identity.Address) (*registration, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	reg, ok := sb.nodes[addr]
	return reg, ok
}

// Socket is the driver.Socket implementation bound to one registered
// node.
type Socket struct {
	sb   *Switchboard
	self identity.Address
}

// SendFrames delivers frames to to's inbox. reply is always false
// here: every send in this simulation crosses the router-style
// identity-prefixed path, matching how the demo command addresses
// peers by their Kademlia address rather than a pinned dealer socket.
func (s *Socket) SendFrames(ctx context.Context, to peer.BoundPeer, frames [][]byte) error {
	reg, ok := s.sb.lookup(to.Address)
	if !ok || !reg.alive {
		return errs.New(errs.Timeout, "netsim.Socket.SendFrames", nil)
	}
	select {
	case reg.inbox <- inboundFrame{frames: frames, reply: false}:
		return nil
	case <-ctx.Done():
		return errs.New(errs.Cancelled, "netsim.Socket.SendFrames", ctx.Err())
	}
}

// Recv blocks until a frame arrives in this node's own inbox or ctx is
// done.
func (s *Socket) Recv(ctx context.Context) ([][]byte, bool, error) {
	reg, ok := s.sb.lookup(s.self)
	if !ok {
		return nil, false, errs.New(errs.ArgumentInvalid, "netsim.Socket.Recv", nil)
	}
	select {
	case in := <-reg.inbox:
		return in.frames, in.reply, nil
	case <-ctx.Done():
		return nil, false, errs.New(errs.Cancelled, "netsim.Socket.Recv", ctx.Err())
	}
}

// PeerFinder answers liveness and closest-peer queries by consulting
// the switchboard directly, the way the teacher's MockNetwork answers
// SendPing/SendFindNode by calling straight into the destination Node.
type PeerFinder struct {
	sb *Switchboard
}

// Ping reports reachability without touching the destination's table.
func (p *PeerFinder) Ping(ctx context.Context, to peer.BoundPeer, timeout time.Duration) error {
	reg, ok := p.sb.lookup(to.Address)
	if !ok || !reg.alive {
		return errs.New(errs.Timeout, "netsim.PeerFinder.Ping", nil)
	}
	return nil
}

// FindPeer returns to's own neighbors of target, standing in for a
// find-peer RPC answered locally by the remote node.
func (p *PeerFinder) FindPeer(ctx context.Context, to peer.BoundPeer, target identity.Address, timeout time.Duration) ([]peer.BoundPeer, error) {
	reg, ok := p.sb.lookup(to.Address)
	if !ok || !reg.alive {
		return nil, errs.New(errs.Timeout, "netsim.PeerFinder.FindPeer", nil)
	}
	return reg.table.Neighbors(target, findPeerFanout), nil
}
