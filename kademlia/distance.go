// Package kademlia implements the XOR-distance arithmetic and the
// bounded routing structures (k-buckets, routing table) that organize
// peers by closeness to a local identity, following the teacher's
// node_id.go/routing_table.go split but generalized to the 20-byte
// Address used by this module's identity package.
package kademlia

import (
	"math/bits"
	"sort"

	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

// AddressBits is the size of the identity space in bits.
const AddressBits = identity.AddressLength * 8

// Xor returns the bitwise XOR of two addresses, i.e. their Kademlia
// distance prior to being interpreted as an unsigned integer.
func Xor(a, b identity.Address) identity.Address {
	var out identity.Address
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// CommonPrefixLength returns the number of leading bits in which a
// and b agree: the number of leading zero bits in a XOR b. The result
// is in [0, AddressBits].
func CommonPrefixLength(a, b identity.Address) int {
	d := Xor(a, b)
	for i, byt := range d {
		if byt != 0 {
			return i*8 + bits.LeadingZeros8(byt)
		}
	}
	return AddressBits
}

// less reports whether distance(a, target) < distance(b, target),
// comparing the XOR distance as a big-endian unsigned integer.
func less(a, b, target identity.Address) bool {
	da := Xor(a, target)
	db := Xor(b, target)
	for i := range da {
		if da[i] != db[i] {
			return da[i] < db[i]
		}
	}
	return false
}

// SortByDistance stably sorts peers in ascending order of XOR distance
// to target. Ties (equal distance, which only happens for the same
// address) keep their relative input order.
func SortByDistance(peers []peer.BoundPeer, target identity.Address) {
	sort.SliceStable(peers, func(i, j int) bool {
		return less(peers[i].Address, peers[j].Address, target)
	})
}
