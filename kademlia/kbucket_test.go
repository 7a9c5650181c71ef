package kademlia

import (
	"testing"
)

func TestKBucketAddPeerAppendsUntilFull(t *testing.T) {
	b := NewKBucket(2)

	p1 := boundPeer(addr(0x01))
	p2 := boundPeer(addr(0x02))

	if cand, cached := b.AddPeer(p1); cand != nil || cached {
		t.Fatalf("expected no eviction candidate on first insert")
	}
	if cand, cached := b.AddPeer(p2); cand != nil || cached {
		t.Fatalf("expected no eviction candidate on second insert")
	}
	if b.Count() != 2 {
		t.Fatalf("expected count 2, got %d", b.Count())
	}
}

func TestKBucketOverflowCachesAndReturnsHead(t *testing.T) {
	b := NewKBucket(2)
	p1 := boundPeer(addr(0x01))
	p2 := boundPeer(addr(0x02))
	p3 := boundPeer(addr(0x03))

	b.AddPeer(p1)
	b.AddPeer(p2)

	cand, cached := b.AddPeer(p3)
	if cand == nil || cand.Address != p1.Address {
		t.Fatalf("expected head p1 as eviction candidate, got %v", cand)
	}
	if !cached {
		t.Fatal("expected p3 to be cached as a replacement")
	}
	if b.Contains(p3.Address) {
		t.Fatal("p3 must not be placed directly in the bucket")
	}
	if got := b.ReplacementCandidates(); len(got) != 1 || got[0].Address != p3.Address {
		t.Fatalf("expected p3 in replacement cache, got %v", got)
	}
}

func TestKBucketExistingPeerMovesToTail(t *testing.T) {
	b := NewKBucket(3)
	p1 := boundPeer(addr(0x01))
	p2 := boundPeer(addr(0x02))

	b.AddPeer(p1)
	b.AddPeer(p2)
	b.AddPeer(p1)

	tail := b.Tail()
	if tail == nil || tail.Address != p1.Address {
		t.Fatalf("expected p1 at tail after re-add, got %v", tail)
	}
}

func TestKBucketReplacementCacheBoundedAndBumps(t *testing.T) {
	b := NewKBucket(1)
	head := boundPeer(addr(0x01))
	b.AddPeer(head)

	r1 := boundPeer(addr(0x02))
	r2 := boundPeer(addr(0x03))
	b.AddPeer(r1)
	b.AddPeer(r2) // cache bound is 1: r1 must be evicted from the cache

	cands := b.ReplacementCandidates()
	if len(cands) != 1 || cands[0].Address != r2.Address {
		t.Fatalf("expected only r2 in a size-1 replacement cache, got %v", cands)
	}

	// Re-adding r2 should bump it to newest without growing the cache.
	b.AddPeer(r2)
	cands = b.ReplacementCandidates()
	if len(cands) != 1 || cands[0].Address != r2.Address {
		t.Fatalf("expected r2 still the sole cached candidate after bump, got %v", cands)
	}
}

func TestKBucketRemovePeer(t *testing.T) {
	b := NewKBucket(2)
	p1 := boundPeer(addr(0x01))
	b.AddPeer(p1)

	if !b.RemovePeer(p1.Address) {
		t.Fatal("expected RemovePeer to report presence")
	}
	if b.RemovePeer(p1.Address) {
		t.Fatal("expected second RemovePeer to report absence")
	}
	if !b.IsEmpty() {
		t.Fatal("expected bucket to be empty after removal")
	}
}

func TestKBucketReplacementCachePop(t *testing.T) {
	b := NewKBucket(1)
	head := boundPeer(addr(0x01))
	b.AddPeer(head)

	r1 := boundPeer(addr(0x02))
	b.AddPeer(r1)

	popped := b.ReplacementCachePop()
	if popped == nil || popped.Address != r1.Address {
		t.Fatalf("expected to pop r1, got %v", popped)
	}
	if b.ReplacementCachePop() != nil {
		t.Fatal("expected empty replacement cache after pop")
	}
}

func TestKBucketClear(t *testing.T) {
	b := NewKBucket(2)
	b.AddPeer(boundPeer(addr(0x01)))
	b.AddPeer(boundPeer(addr(0x02)))
	b.AddPeer(boundPeer(addr(0x03))) // goes to replacement cache

	b.Clear()
	if b.Count() != 0 || len(b.ReplacementCandidates()) != 0 {
		t.Fatal("expected both live bucket and replacement cache cleared")
	}
}
