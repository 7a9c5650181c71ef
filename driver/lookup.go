package driver

import (
	"context"
	"sync"

	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/kademlia"
	"github.com/kutluhann/p2pcore/peer"
)

// lookupState tracks the shortlist of closest-known peers and who has
// already been queried, generalizing the teacher's LookupState
// (dht/algorithms.go) from a single-threaded walk to the alpha-way
// parallel rounds spec.md §4.5 requires.
type lookupState struct {
	target    identity.Address
	mu        sync.Mutex
	shortlist []peer.BoundPeer
	contacted map[identity.Address]bool
}

func newLookupState(target identity.Address, seed []peer.BoundPeer) *lookupState {
	ls := &lookupState{target: target, contacted: make(map[identity.Address]bool)}
	ls.merge(seed)
	return ls
}

func (ls *lookupState) merge(peers []peer.BoundPeer) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	seen := make(map[identity.Address]bool, len(ls.shortlist))
	for _, p := range ls.shortlist {
		seen[p.Address] = true
	}
	for _, p := range peers {
		if !seen[p.Address] {
			ls.shortlist = append(ls.shortlist, p)
			seen[p.Address] = true
		}
	}
	kademlia.SortByDistance(ls.shortlist, ls.target)
}

// nextBatch returns up to alpha closest shortlist members that have
// not yet been contacted, marking them contacted immediately so two
// concurrent rounds never re-query the same peer.
func (ls *lookupState) nextBatch(alpha int) []peer.BoundPeer {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	var batch []peer.BoundPeer
	for _, p := range ls.shortlist {
		if len(batch) >= alpha {
			break
		}
		if !ls.contacted[p.Address] {
			ls.contacted[p.Address] = true
			batch = append(batch, p)
		}
	}
	return batch
}

func (ls *lookupState) closestDistance() (identity.Address, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if len(ls.shortlist) == 0 {
		return identity.Address{}, false
	}
	return ls.shortlist[0].Address, true
}

func (ls *lookupState) top(k int) []peer.BoundPeer {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if k > len(ls.shortlist) {
		k = len(ls.shortlist)
	}
	out := make([]peer.BoundPeer, k)
	copy(out, ls.shortlist[:k])
	return out
}

// findPeer is the iterative lookup algorithm of spec.md §4.5: maintain
// a shortlist of the k closest known peers to target; in each round
// send parallel alpha find-peer queries to the closest-unqueried
// shortlist members, each query bounded by the round timeout (a
// failed query marks its peer dead); merge responses; terminate when
// a full round yields no closer peer than already known, when no
// unqueried shortlist member is left, or when ctx is cancelled.
func (d *Driver) findPeer(ctx context.Context, target identity.Address) []peer.BoundPeer {
	seed := d.table.Neighbors(target, d.k)
	ls := newLookupState(target, seed)

	for {
		if ctx.Err() != nil {
			break
		}

		ls.mu.Lock()
		if len(ls.shortlist) > d.k {
			ls.shortlist = ls.shortlist[:d.k]
		}
		ls.mu.Unlock()

		before, hadBefore := ls.closestDistance()
		batch := ls.nextBatch(d.alpha)
		if len(batch) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, candidate := range batch {
			wg.Add(1)
			go func(c peer.BoundPeer) {
				defer wg.Done()
				roundCtx, cancel := context.WithTimeout(ctx, d.lookupRoundTimeout)
				defer cancel()

				found, err := d.peerFinder.FindPeer(roundCtx, c, target, d.lookupRoundTimeout)
				if err != nil {
					d.markDead(c)
					return
				}
				d.touchAlive(c)
				ls.merge(found)
			}(candidate)
		}
		wg.Wait()

		after, hadAfter := ls.closestDistance()
		if hadBefore && hadAfter && after == before {
			// A full round yielded no closer peer than already known.
			afterBytes := kademlia.Xor(after, target)
			beforeBytes := kademlia.Xor(before, target)
			if afterBytes == beforeBytes {
				break
			}
		}
	}

	return ls.top(d.k)
}

// touchAlive records a successful contact in the routing table,
// queuing any bubbled-up eviction candidate for probing.
func (d *Driver) touchAlive(p peer.BoundPeer) {
	cand, err := d.table.AddPeerAsync(&p)
	if err != nil {
		return
	}
	if cand != nil {
		d.probeQueue.Push(*cand)
	}
}

// markDead removes an unresponsive peer from the table outright; a
// cached replacement (if any) is left for CheckReplacementCacheAsync
// to promote later rather than promoted eagerly here.
func (d *Driver) markDead(p peer.BoundPeer) {
	d.table.RemovePeerAsync(&p)
}
