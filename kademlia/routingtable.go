package kademlia

import (
	"math/rand"
	"sync"

	"github.com/kutluhann/p2pcore/errs"
	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
	"github.com/kutluhann/p2pcore/wire"
)

// RoutingTable is a fixed-size array of buckets indexed by common
// prefix length with the local address, following the teacher's
// routing.go layout (one bucket per CPL value) rather than the
// power-of-two distance-range layout in routing_table.go — the
// former is what spec.md §3/§4.3 specifies.
//
// All mutators are serialized on a single mutex; readers take a
// consistent snapshot by copying bucket contents while holding it
// only briefly (the heavy lifting happens inside each KBucket's own
// lock, as in the teacher's Bucket/RoutingTable split).
type RoutingTable struct {
	local      identity.Address
	bucketSize int
	buckets    []*KBucket
	mu         sync.Mutex
	rng        *rand.Rand
}

// New constructs a RoutingTable for localAddress with tableSize
// buckets of bucketSize each. Both must be >= 1, matching spec.md
// §4.3's construction contract; violations are ArgumentOutOfRange.
func New(local identity.Address, tableSize, bucketSize int, rng *rand.Rand) (*RoutingTable, error) {
	if tableSize < 1 {
		return nil, errs.New(errs.ArgumentOutOfRange, "kademlia.New", nil)
	}
	if bucketSize < 1 {
		return nil, errs.New(errs.ArgumentOutOfRange, "kademlia.New", nil)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	rt := &RoutingTable{
		local:      local,
		bucketSize: bucketSize,
		buckets:    make([]*KBucket, tableSize),
		rng:        rng,
	}
	for i := range rt.buckets {
		rt.buckets[i] = NewKBucket(bucketSize)
	}
	return rt, nil
}

// bucketIndex returns min(CPL(addr, local), len(buckets)-1).
func (rt *RoutingTable) bucketIndex(addr identity.Address) int {
	cpl := CommonPrefixLength(addr, rt.local)
	if cpl >= len(rt.buckets) {
		return len(rt.buckets) - 1
	}
	return cpl
}

// validatePeer implements the "null peer or local-self" ArgumentInvalid
// check from spec.md §4.3/§7. p is a pointer so the null case (absent
// in most of this module's value-typed API) is expressible.
func validatePeer(local identity.Address, p *peer.BoundPeer, op string) error {
	if p == nil {
		return errs.New(errs.ArgumentInvalid, op, nil)
	}
	if p.Address == local {
		return errs.New(errs.ArgumentInvalid, op, nil)
	}
	return nil
}

// AddPeerAsync inserts p into its CPL-indexed bucket. It errors if p
// is nil or equals the local address (spec.md §3's "local address is
// never inserted into its own routing table" invariant). On success
// it returns any candidate-for-eviction bubbled up from the bucket
// (non-nil only when the bucket was full and the head is the
// candidate the caller should liveness-probe).
//
// The name keeps the teacher's/spec's "Async" suffix even though this
// Go implementation is synchronous: the mutation itself never blocks
// on I/O (§5), so there is nothing to await here. Callers that need
// cancellation wrap this call with their own context check.
func (rt *RoutingTable) AddPeerAsync(p *peer.BoundPeer) (*peer.BoundPeer, error) {
	if err := validatePeer(rt.local, p, "RoutingTable.AddPeerAsync"); err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	idx := rt.bucketIndex(p.Address)
	candidate, _ := rt.buckets[idx].AddPeer(*p)
	return candidate, nil
}

// RemovePeerAsync removes p's address from its CPL-indexed bucket.
func (rt *RoutingTable) RemovePeerAsync(p *peer.BoundPeer) (bool, error) {
	if err := validatePeer(rt.local, p, "RoutingTable.RemovePeerAsync"); err != nil {
		return false, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	idx := rt.bucketIndex(p.Address)
	return rt.buckets[idx].RemovePeer(p.Address), nil
}

// Contains reports whether addr is present in the table.
func (rt *RoutingTable) Contains(addr identity.Address) bool {
	rt.mu.Lock()
	idx := rt.bucketIndex(addr)
	b := rt.buckets[idx]
	rt.mu.Unlock()
	return b.Contains(addr)
}

// BucketOf returns the bucket a given address would be stored in.
func (rt *RoutingTable) BucketOf(addr identity.Address) *KBucket {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.buckets[rt.bucketIndex(addr)]
}

// BucketAt returns the bucket at a given CPL level, or nil if out of
// range.
func (rt *RoutingTable) BucketAt(level int) *KBucket {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if level < 0 || level >= len(rt.buckets) {
		return nil
	}
	return rt.buckets[level]
}

// NumBuckets returns the number of buckets in the table (tableSize).
func (rt *RoutingTable) NumBuckets() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.buckets)
}

// LocalAddress returns the table's own address.
func (rt *RoutingTable) LocalAddress() identity.Address { return rt.local }

// Count returns the total number of live peers across all buckets.
func (rt *RoutingTable) Count() int {
	rt.mu.Lock()
	buckets := append([]*KBucket(nil), rt.buckets...)
	rt.mu.Unlock()

	total := 0
	for _, b := range buckets {
		total += b.Count()
	}
	return total
}

// NonFullBuckets returns a snapshot of buckets with spare capacity.
func (rt *RoutingTable) NonFullBuckets() []*KBucket {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var out []*KBucket
	for _, b := range rt.buckets {
		if !b.IsFull() {
			out = append(out, b)
		}
	}
	return out
}

// NonEmptyBuckets returns a snapshot of buckets holding at least one
// live peer.
func (rt *RoutingTable) NonEmptyBuckets() []*KBucket {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var out []*KBucket
	for _, b := range rt.buckets {
		if !b.IsEmpty() {
			out = append(out, b)
		}
	}
	return out
}

// EmptyBucketLevels returns the CPL indices of every empty bucket,
// used by RebuildConnectionAsync to pick reseeding targets.
func (rt *RoutingTable) EmptyBucketLevels() []int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var out []int
	for i, b := range rt.buckets {
		if b.IsEmpty() {
			out = append(out, i)
		}
	}
	return out
}

// Neighbors returns up to 2k peers closest to target (by XOR
// distance), excluding target itself. The 2k oversize lets callers
// resist transient churn during a lookup round, per spec.md §4.3.
func (rt *RoutingTable) Neighbors(target identity.Address, k int) []peer.BoundPeer {
	rt.mu.Lock()
	buckets := append([]*KBucket(nil), rt.buckets...)
	rt.mu.Unlock()

	var all []peer.BoundPeer
	for _, b := range buckets {
		all = append(all, b.Peers()...)
	}

	filtered := all[:0]
	for _, p := range all {
		if p.Address != target {
			filtered = append(filtered, p)
		}
	}

	SortByDistance(filtered, target)

	limit := 2 * k
	if limit > len(filtered) {
		limit = len(filtered)
	}
	out := make([]peer.BoundPeer, limit)
	copy(out, filtered[:limit])
	return out
}

// PeersToBroadcast returns one randomly chosen peer from each
// non-empty bucket: a logarithmic-size gossip set.
func (rt *RoutingTable) PeersToBroadcast() []peer.BoundPeer {
	rt.mu.Lock()
	buckets := append([]*KBucket(nil), rt.buckets...)
	rt.mu.Unlock()

	var out []peer.BoundPeer
	for _, b := range buckets {
		peers := b.Peers()
		if len(peers) == 0 {
			continue
		}
		out = append(out, peers[rt.randIntn(len(peers))])
	}
	return out
}

// RoutingTableSnapshot is an opaque baseline captured by Snapshot, used
// by Delta to compute what has changed since. It holds no reference to
// the table itself, so it stays valid across later mutations.
type RoutingTableSnapshot struct {
	known map[identity.Address]struct{}
}

// Snapshot captures the set of addresses currently held in the table,
// for a later Delta call.
func (rt *RoutingTable) Snapshot() RoutingTableSnapshot {
	rt.mu.Lock()
	buckets := append([]*KBucket(nil), rt.buckets...)
	rt.mu.Unlock()

	known := make(map[identity.Address]struct{})
	for _, b := range buckets {
		for _, p := range b.Peers() {
			known[p.Address] = struct{}{}
		}
	}
	return RoutingTableSnapshot{known: known}
}

// Delta builds the outbound peer-set delta to gossip since a prior
// Snapshot (SPEC_FULL.md §4.6): additions are drawn from
// PeersToBroadcast's logarithmic-size gossip sample, filtered to
// addresses the baseline didn't already know about; removals are
// addresses the baseline knew about that have since left the table
// (evicted or displaced).
func (rt *RoutingTable) Delta(since RoutingTableSnapshot) wire.PeerSetDelta {
	var added []peer.BoundPeer
	for _, p := range rt.PeersToBroadcast() {
		if _, ok := since.known[p.Address]; !ok {
			added = append(added, p)
		}
	}

	var removed []identity.Address
	for addr := range since.known {
		if !rt.Contains(addr) {
			removed = append(removed, addr)
		}
	}

	return wire.PeerSetDelta{Added: added, Removed: removed}
}

// Clear empties every bucket's live list and replacement cache.
func (rt *RoutingTable) Clear() {
	rt.mu.Lock()
	buckets := append([]*KBucket(nil), rt.buckets...)
	rt.mu.Unlock()

	for _, b := range buckets {
		b.Clear()
	}
}

// RandomAddressInBucket returns a random Address whose CPL with local
// equals level, for refresh/rebuild lookups targeting a specific
// bucket's key range. level must be in [0, NumBuckets()-1].
func (rt *RoutingTable) RandomAddressInBucket(level int) identity.Address {
	addr := rt.local
	// Flip the bit at position `level` then randomize everything
	// after it: this keeps CPL(addr, local) == level exactly, because
	// the shared prefix stops at that bit and the remaining bits are
	// free.
	byteIdx := level / 8
	bitIdx := level % 8
	if byteIdx < len(addr) {
		addr[byteIdx] ^= 1 << (7 - bitIdx)
	}

	for i := byteIdx + 1; i < len(addr); i++ {
		addr[i] = byte(rt.randIntn(256))
	}
	if byteIdx < len(addr) {
		// Randomize the bits after bitIdx within the flipped byte too.
		mask := byte(0xFF >> uint(bitIdx+1))
		addr[byteIdx] = (addr[byteIdx] &^ mask) | (byte(rt.randIntn(256)) & mask)
	}
	return addr
}

// randIntn calls rt.rng.Intn while holding rt.mu: *rand.Rand is not
// safe for concurrent use on its own, and the table's mutex is the
// only lock guarding it.
func (rt *RoutingTable) randIntn(n int) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.rng.Intn(n)
}
