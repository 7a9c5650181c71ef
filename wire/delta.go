package wire

import (
	"encoding/binary"

	"github.com/kutluhann/p2pcore/errs"
	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

// encodeDelta and decodeDelta implement the PeerSetDelta body format
// chosen in SPEC_FULL.md §4.6 to resolve the source spec's Open
// Question on the delta protocol:
//
//	[addedCount(uvarint)] [BoundPeer × addedCount]
//	[removedCount(uvarint)] [Address(20B) × removedCount]
//
//	BoundPeer: [address(20B)] [pubkey(33B)] [hostLen(1B)] [host] [port(2B BE)]
func encodeDelta(d PeerSetDelta) []byte {
	buf := make([]byte, 0, 64)
	buf = binary.AppendUvarint(buf, uint64(len(d.Added)))
	for _, p := range d.Added {
		buf = append(buf, p.Address[:]...)
		buf = append(buf, p.PublicKey.Compressed()...)
		host := []byte(p.Host)
		buf = append(buf, byte(len(host)))
		buf = append(buf, host...)
		portBytes := make([]byte, 2)
		binary.BigEndian.PutUint16(portBytes, p.Port)
		buf = append(buf, portBytes...)
	}
	buf = binary.AppendUvarint(buf, uint64(len(d.Removed)))
	for _, a := range d.Removed {
		buf = append(buf, a[:]...)
	}
	return buf
}

func decodeDelta(body []byte) (PeerSetDelta, error) {
	const op = "wire.decodeDelta"
	r := body

	addedCount, n := binary.Uvarint(r)
	if n <= 0 {
		return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
	}
	r = r[n:]

	added := make([]peer.BoundPeer, 0, addedCount)
	for i := uint64(0); i < addedCount; i++ {
		if len(r) < identity.AddressLength {
			return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
		}
		var a identity.Address
		copy(a[:], r[:identity.AddressLength])
		r = r[identity.AddressLength:]

		if len(r) < 33 {
			return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
		}
		pub, err := identity.ParsePublicKey(r[:33])
		if err != nil {
			return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, err)
		}
		r = r[33:]

		if len(r) < 1 {
			return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
		}
		hostLen := int(r[0])
		r = r[1:]
		if len(r) < hostLen+2 {
			return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
		}
		host := string(r[:hostLen])
		r = r[hostLen:]
		port := binary.BigEndian.Uint16(r[:2])
		r = r[2:]

		added = append(added, peer.BoundPeer{
			Peer: peer.Peer{Address: a, PublicKey: pub},
			Host: host,
			Port: port,
		})
	}

	removedCount, n := binary.Uvarint(r)
	if n <= 0 {
		return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
	}
	r = r[n:]

	removed := make([]identity.Address, 0, removedCount)
	for i := uint64(0); i < removedCount; i++ {
		if len(r) < identity.AddressLength {
			return PeerSetDelta{}, errs.New(errs.InvalidMessage, op, nil)
		}
		var a identity.Address
		copy(a[:], r[:identity.AddressLength])
		r = r[identity.AddressLength:]
		removed = append(removed, a)
	}

	return PeerSetDelta{Added: added, Removed: removed}, nil
}
