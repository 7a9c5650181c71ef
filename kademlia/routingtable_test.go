package kademlia

import (
	"math/rand"
	"testing"

	"github.com/kutluhann/p2pcore/errs"
	"github.com/kutluhann/p2pcore/identity"
)

func newTestTable(t *testing.T, tableSize, bucketSize int) (*RoutingTable, identity.Address) {
	t.Helper()
	local := addr(0x00)
	rt, err := New(local, tableSize, bucketSize, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt, local
}

func TestNewRejectsOutOfRangeSizes(t *testing.T) {
	if _, err := New(addr(0x00), 0, 4, nil); err == nil {
		t.Fatal("expected error for tableSize < 1")
	}
	if _, err := New(addr(0x00), 4, 0, nil); err == nil {
		t.Fatal("expected error for bucketSize < 1")
	}
}

func TestAddPeerAsyncRejectsNilAndSelf(t *testing.T) {
	rt, local := newTestTable(t, 8, 2)

	if _, err := rt.AddPeerAsync(nil); !errs.AsKind(err, errs.ArgumentInvalid) {
		t.Fatalf("expected ArgumentInvalid for nil peer, got %v", err)
	}

	self := boundPeer(local)
	if _, err := rt.AddPeerAsync(&self); !errs.AsKind(err, errs.ArgumentInvalid) {
		t.Fatalf("expected ArgumentInvalid for self, got %v", err)
	}
	if rt.Contains(local) {
		t.Fatal("local address must never appear in its own routing table")
	}
}

func TestAddPeerAsyncPlacesBySingleBucket(t *testing.T) {
	rt, local := newTestTable(t, 8, 4)

	p := boundPeer(addr(0x80)) // top bit differs from local (0x00) -> CPL 0
	if _, err := rt.AddPeerAsync(&p); err != nil {
		t.Fatalf("AddPeerAsync: %v", err)
	}

	expected := CommonPrefixLength(p.Address, local)
	if expected >= rt.NumBuckets() {
		expected = rt.NumBuckets() - 1
	}
	b := rt.BucketAt(expected)
	if !b.Contains(p.Address) {
		t.Fatalf("expected peer placed in bucket %d", expected)
	}
	if rt.Count() != 1 {
		t.Fatalf("expected count 1, got %d", rt.Count())
	}
}

func TestNeighborsExcludesTargetAndSortsByDistance(t *testing.T) {
	rt, _ := newTestTable(t, 160, 16)

	var peers []identity.Address
	for i := byte(1); i <= 10; i++ {
		p := boundPeer(addr(i))
		peers = append(peers, p.Address)
		if _, err := rt.AddPeerAsync(&p); err != nil {
			t.Fatalf("AddPeerAsync: %v", err)
		}
	}

	target := peers[4] // P5
	result := rt.Neighbors(target, 3)

	if len(result) > 6 {
		t.Fatalf("expected at most 2k=6 neighbors, got %d", len(result))
	}
	for _, p := range result {
		if p.Address == target {
			t.Fatal("Neighbors must exclude the target itself")
		}
	}
	for i := 1; i < len(result); i++ {
		prevDist := Xor(result[i-1].Address, target)
		currDist := Xor(result[i].Address, target)
		if lessBytes(currDist[:], prevDist[:]) {
			t.Fatalf("expected ascending distance order at index %d", i)
		}
	}
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func TestRemovePeerAsync(t *testing.T) {
	rt, _ := newTestTable(t, 8, 4)
	p := boundPeer(addr(0x80))
	rt.AddPeerAsync(&p)

	removed, err := rt.RemovePeerAsync(&p)
	if err != nil {
		t.Fatalf("RemovePeerAsync: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}
	if rt.Contains(p.Address) {
		t.Fatal("expected peer gone after removal")
	}
}

func TestClearEmptiesAllBuckets(t *testing.T) {
	rt, _ := newTestTable(t, 8, 4)
	for i := byte(1); i <= 5; i++ {
		p := boundPeer(addr(i))
		rt.AddPeerAsync(&p)
	}
	rt.Clear()
	if rt.Count() != 0 {
		t.Fatalf("expected 0 after Clear, got %d", rt.Count())
	}
}

func TestOverflowBubblesEvictionCandidate(t *testing.T) {
	rt, _ := newTestTable(t, 8, 2)

	// Force three peers into the same bucket (CPL 0: top bit set).
	p1 := boundPeer(addr(0x80))
	p2 := boundPeer(addr(0x81))
	p3 := boundPeer(addr(0x82))

	rt.AddPeerAsync(&p1)
	rt.AddPeerAsync(&p2)
	cand, err := rt.AddPeerAsync(&p3)
	if err != nil {
		t.Fatalf("AddPeerAsync: %v", err)
	}
	if cand == nil || cand.Address != p1.Address {
		t.Fatalf("expected p1 (head) as eviction candidate, got %v", cand)
	}
	if rt.Contains(p3.Address) {
		t.Fatal("p3 should not be in the live bucket yet")
	}
}

func TestDeltaReportsAdditionsAndRemovalsSinceSnapshot(t *testing.T) {
	rt, _ := newTestTable(t, 8, 4)

	p1 := boundPeer(addr(0x80))
	rt.AddPeerAsync(&p1)

	snapshot := rt.Snapshot()

	p2 := boundPeer(addr(0x81))
	rt.AddPeerAsync(&p2)
	if _, err := rt.RemovePeerAsync(&p1); err != nil {
		t.Fatalf("RemovePeerAsync: %v", err)
	}

	delta := rt.Delta(snapshot)

	foundAdded := false
	for _, p := range delta.Added {
		if p.Address == p2.Address {
			foundAdded = true
		}
		if p.Address == p1.Address {
			t.Fatal("p1 was already known at the baseline, should not appear in Added")
		}
	}
	if !foundAdded {
		t.Fatalf("expected p2 in Added, got %+v", delta.Added)
	}

	if len(delta.Removed) != 1 || delta.Removed[0] != p1.Address {
		t.Fatalf("expected p1 in Removed, got %+v", delta.Removed)
	}
}

func TestDeltaAgainstEmptySnapshotAddsEveryBroadcastPeer(t *testing.T) {
	rt, _ := newTestTable(t, 8, 4)
	p := boundPeer(addr(0x80))
	rt.AddPeerAsync(&p)

	delta := rt.Delta(RoutingTableSnapshot{})
	if len(delta.Added) != 1 || delta.Added[0].Address != p.Address {
		t.Fatalf("expected p in Added against an empty baseline, got %+v", delta.Added)
	}
	if len(delta.Removed) != 0 {
		t.Fatalf("expected no removals against an empty baseline, got %+v", delta.Removed)
	}
}

func TestRandomAddressInBucketHasExpectedCPL(t *testing.T) {
	rt, local := newTestTable(t, 160, 4)
	for level := 0; level < 160; level += 17 {
		a := rt.RandomAddressInBucket(level)
		if got := CommonPrefixLength(a, local); got != level {
			t.Fatalf("level %d: expected CPL %d, got %d", level, level, got)
		}
	}
}
