// Package peer defines the logical and network-bound peer identities
// that flow through the routing table and message codec.
package peer

import (
	"fmt"
	"time"

	"github.com/kutluhann/p2pcore/identity"
)

// Peer is a logical identity: an address paired with the public key
// that proves it.
type Peer struct {
	Address   identity.Address
	PublicKey identity.PublicKey
}

// BoundPeer is a Peer together with a reachable network endpoint.
// Routing deals exclusively in BoundPeers.
type BoundPeer struct {
	Peer
	Host string
	Port uint16
}

// Endpoint returns the "host:port" form of the bound endpoint.
func (b BoundPeer) Endpoint() string { return fmt.Sprintf("%s:%d", b.Host, b.Port) }

// Equal compares two BoundPeers by address only, matching the spec's
// notion of peer identity for bucket membership.
func (b BoundPeer) Equal(other BoundPeer) bool { return b.Address == other.Address }

// TimestampedPeer pairs a BoundPeer with the last time it was
// contacted or heard from, used internally by KBucket.
type TimestampedPeer struct {
	BoundPeer
	LastUpdated time.Time
}
