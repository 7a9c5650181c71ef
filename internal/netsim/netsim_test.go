package netsim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/kademlia"
	"github.com/kutluhann/p2pcore/peer"
)

func newTable(t *testing.T, local identity.Address) *kademlia.RoutingTable {
	t.Helper()
	table, err := kademlia.New(local, 8, 4, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("kademlia.New: %v", err)
	}
	return table
}

func TestPingUnknownNodeTimesOut(t *testing.T) {
	sb := New()
	var a identity.Address
	a[0] = 0x01
	_, pf := sb.Register(a, newTable(t, a))

	var unknown identity.Address
	unknown[0] = 0xFF
	err := pf.Ping(context.Background(), peer.BoundPeer{Peer: peer.Peer{Address: unknown}}, time.Second)
	if err == nil {
		t.Fatal("expected ping to an unregistered node to fail")
	}
}

func TestSetAliveFalseMakesNodeUnreachable(t *testing.T) {
	sb := New()
	var a identity.Address
	a[0] = 0x02
	_, pf := sb.Register(a, newTable(t, a))
	sb.SetAlive(a, false)

	err := pf.Ping(context.Background(), peer.BoundPeer{Peer: peer.Peer{Address: a}}, time.Second)
	if err == nil {
		t.Fatal("expected ping to a dead node to fail")
	}
}

func TestSendFramesDeliversToRecipientInbox(t *testing.T) {
	sb := New()
	var a, b identity.Address
	a[0], b[0] = 0x03, 0x04
	sockA, _ := sb.Register(a, newTable(t, a))
	sockB, _ := sb.Register(b, newTable(t, b))

	frames := [][]byte{[]byte("hello")}
	if err := sockA.SendFrames(context.Background(), peer.BoundPeer{Peer: peer.Peer{Address: b}}, frames); err != nil {
		t.Fatalf("SendFrames: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, reply, err := sockB.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if reply {
		t.Fatal("expected reply=false for a delivered send")
	}
	if len(got) != 1 || string(got[0]) != "hello" {
		t.Fatalf("unexpected frames: %v", got)
	}
}

func TestFindPeerReturnsResponderNeighbors(t *testing.T) {
	sb := New()
	var a, b, c identity.Address
	a[0], b[0], c[0] = 0x05, 0x06, 0x07

	tableB := newTable(t, b)
	cPeer := peer.BoundPeer{Peer: peer.Peer{Address: c}, Host: "127.0.0.1", Port: 9}
	if _, err := tableB.AddPeerAsync(&cPeer); err != nil {
		t.Fatalf("AddPeerAsync: %v", err)
	}

	_, pfA := sb.Register(a, newTable(t, a))
	sb.Register(b, tableB)

	found, err := pfA.FindPeer(context.Background(), peer.BoundPeer{Peer: peer.Peer{Address: b}}, a, time.Second)
	if err != nil {
		t.Fatalf("FindPeer: %v", err)
	}
	if len(found) == 0 {
		t.Fatal("expected b to report its known neighbor c")
	}
}
