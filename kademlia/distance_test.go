package kademlia

import (
	"testing"

	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

func addr(b byte) identity.Address {
	var a identity.Address
	a[0] = b
	return a
}

func TestCommonPrefixLengthIdentical(t *testing.T) {
	a := addr(0xFF)
	if got := CommonPrefixLength(a, a); got != AddressBits {
		t.Fatalf("expected %d, got %d", AddressBits, got)
	}
}

func TestCommonPrefixLengthDiffersAtFirstBit(t *testing.T) {
	a := identity.Address{}
	b := identity.Address{}
	b[0] = 0x80 // top bit differs
	if got := CommonPrefixLength(a, b); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestCommonPrefixLengthRange(t *testing.T) {
	a := identity.Address{}
	b := identity.Address{}
	b[19] = 0x01 // only the last bit differs
	got := CommonPrefixLength(a, b)
	if got != AddressBits-1 {
		t.Fatalf("expected %d, got %d", AddressBits-1, got)
	}
}

func boundPeer(a identity.Address) peer.BoundPeer {
	return peer.BoundPeer{Peer: peer.Peer{Address: a}, Host: "127.0.0.1", Port: 1}
}

func TestSortByDistanceAscending(t *testing.T) {
	target := identity.Address{}
	p1 := boundPeer(addr(0x01))
	p2 := boundPeer(addr(0x02))
	p3 := boundPeer(addr(0x10))

	peers := []peer.BoundPeer{p3, p1, p2}
	SortByDistance(peers, target)

	if peers[0].Address != p1.Address || peers[1].Address != p2.Address || peers[2].Address != p3.Address {
		t.Fatalf("expected ascending distance order, got %v", peers)
	}
}

func TestSortByDistanceStableOnTies(t *testing.T) {
	target := identity.Address{}
	a := addr(0x01)
	p1 := boundPeer(a)
	p1.Port = 1
	p2 := boundPeer(a)
	p2.Port = 2

	peers := []peer.BoundPeer{p1, p2}
	SortByDistance(peers, target)

	if peers[0].Port != 1 || peers[1].Port != 2 {
		t.Fatalf("expected stable tie order, got ports %d, %d", peers[0].Port, peers[1].Port)
	}
}
