package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/kutluhann/p2pcore/errs"
	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

// parseSeed parses a "host:port:hexaddress" string into a BoundPeer.
// hexaddress is the 20-byte Kademlia address, not a public key — this
// demo transport resolves peers by address, so the seed is inserted
// without a public key; its routing-table entry gains one when the
// seed's first signed message passes through Driver.ReceiveMessage.
func parseSeed(s string) (peer.BoundPeer, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return peer.BoundPeer{}, errs.New(errs.ArgumentInvalid, "parseSeed", fmt.Errorf("expected host:port:hexaddress, got %q", s))
	}

	port, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return peer.BoundPeer{}, errs.New(errs.ArgumentInvalid, "parseSeed", err)
	}

	raw, err := hex.DecodeString(parts[2])
	if err != nil || len(raw) != identity.AddressLength {
		return peer.BoundPeer{}, errs.New(errs.ArgumentInvalid, "parseSeed", fmt.Errorf("invalid address %q", parts[2]))
	}
	var addr identity.Address
	copy(addr[:], raw)

	return peer.BoundPeer{
		Peer: peer.Peer{Address: addr},
		Host: parts[0],
		Port: uint16(port),
	}, nil
}
