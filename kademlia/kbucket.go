package kademlia

import (
	"sync"
	"time"

	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

// KBucket is a bounded, recency-ordered list of up to bucketSize
// BoundPeers (head = least-recently-seen, tail = most), plus a
// bounded replacement cache of candidates that arrived while the
// bucket was full. This generalizes the teacher's bucket.go/kbucket.go
// pair (which dropped overflow silently) with the eviction/replacement
// discipline spec.md §4.2 requires.
type KBucket struct {
	mu          sync.Mutex
	size        int
	entries     []peer.TimestampedPeer
	replacement []peer.TimestampedPeer
}

// NewKBucket constructs an empty bucket bounded at size on both the
// live list and the replacement cache.
func NewKBucket(size int) *KBucket {
	return &KBucket{
		size:        size,
		entries:     make([]peer.TimestampedPeer, 0, size),
		replacement: make([]peer.TimestampedPeer, 0, size),
	}
}

func indexOf(entries []peer.TimestampedPeer, addr identity.Address) int {
	for i, e := range entries {
		if e.Address == addr {
			return i
		}
	}
	return -1
}

func removeAt(entries []peer.TimestampedPeer, i int) []peer.TimestampedPeer {
	return append(entries[:i], entries[i+1:]...)
}

// AddPeer implements the bucket half of the overflow policy in
// spec.md §4.2:
//   - already present: move to tail, update timestamp, return (nil, false)
//   - not full: append at tail, return (nil, false)
//   - full: stash p in the replacement cache (bumping it to newest if
//     already cached, evicting the oldest replacement if the cache is
//     full) and return the current head as the candidate for eviction.
func (b *KBucket) AddPeer(p peer.BoundPeer) (evictionCandidate *peer.BoundPeer, cached bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	if i := indexOf(b.entries, p.Address); i != -1 {
		b.entries = removeAt(b.entries, i)
		b.entries = append(b.entries, peer.TimestampedPeer{BoundPeer: p, LastUpdated: now})
		return nil, false
	}

	if len(b.entries) < b.size {
		b.entries = append(b.entries, peer.TimestampedPeer{BoundPeer: p, LastUpdated: now})
		return nil, false
	}

	if i := indexOf(b.replacement, p.Address); i != -1 {
		b.replacement = removeAt(b.replacement, i)
	} else if len(b.replacement) >= b.size {
		b.replacement = removeAt(b.replacement, 0)
	}
	b.replacement = append(b.replacement, peer.TimestampedPeer{BoundPeer: p, LastUpdated: now})

	head := b.entries[0].BoundPeer
	return &head, true
}

// RemovePeer removes p by address equality. It does not auto-promote
// from the replacement cache; the caller (the driver) decides what to
// promote and when.
func (b *KBucket) RemovePeer(addr identity.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := indexOf(b.entries, addr); i != -1 {
		b.entries = removeAt(b.entries, i)
		return true
	}
	return false
}

// ReplacementCachePop removes and returns the newest replacement
// candidate, or nil if the cache is empty.
func (b *KBucket) ReplacementCachePop() *peer.BoundPeer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.replacement) == 0 {
		return nil
	}
	last := b.replacement[len(b.replacement)-1]
	b.replacement = b.replacement[:len(b.replacement)-1]
	p := last.BoundPeer
	return &p
}

// RemoveReplacementCandidate removes addr from the replacement cache
// by address equality, independent of the live bucket. It reports
// whether a candidate was removed.
func (b *KBucket) RemoveReplacementCandidate(addr identity.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := indexOf(b.replacement, addr); i != -1 {
		b.replacement = removeAt(b.replacement, i)
		return true
	}
	return false
}

// ReplacementCandidates returns a snapshot of the replacement cache,
// oldest first, for the driver's liveness probing.
func (b *KBucket) ReplacementCandidates() []peer.BoundPeer {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]peer.BoundPeer, len(b.replacement))
	for i, e := range b.replacement {
		out[i] = e.BoundPeer
	}
	return out
}

// Contains reports whether addr is in the live bucket.
func (b *KBucket) Contains(addr identity.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return indexOf(b.entries, addr) != -1
}

// IsEmpty reports whether the bucket has no live entries.
func (b *KBucket) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) == 0
}

// IsFull reports whether the bucket is at capacity.
func (b *KBucket) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) >= b.size
}

// Count returns the number of live entries.
func (b *KBucket) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Peers returns a snapshot of the live bucket in recency order (head
// = least-recently-seen, tail = most).
func (b *KBucket) Peers() []peer.BoundPeer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]peer.BoundPeer, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.BoundPeer
	}
	return out
}

// Head returns the least-recently-seen live peer, or nil if empty.
func (b *KBucket) Head() *peer.BoundPeer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return nil
	}
	p := b.entries[0].BoundPeer
	return &p
}

// Tail returns the most-recently-seen live peer, or nil if empty.
func (b *KBucket) Tail() *peer.BoundPeer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return nil
	}
	p := b.entries[len(b.entries)-1].BoundPeer
	return &p
}

// LastUpdated returns the timestamp of the most-recently-seen live
// peer, or the zero time if the bucket is empty. The driver uses this
// to decide which buckets need refreshing.
func (b *KBucket) LastUpdated() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return time.Time{}
	}
	return b.entries[len(b.entries)-1].LastUpdated
}

// Clear empties both the live bucket and the replacement cache.
func (b *KBucket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = b.entries[:0]
	b.replacement = b.replacement[:0]
}
