// Package driver implements the protocol driver of spec.md §4.5: the
// part of the stack that keeps the routing table healthy (bootstrap,
// refresh, rebuild, replacement-cache checks) and turns inbound
// messages into routing-table events and outbound replies. It is
// grounded on the teacher's dht/algorithms.go (LookupState/NodeLookup)
// and dht/network.go (the Network RPC interface), generalized from
// the teacher's mock, single-process network to the externally
// injected collaborators spec.md §1/§6 describes.
package driver

import (
	"context"
	"time"

	"github.com/kutluhann/p2pcore/chainmsg"
	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/peer"
)

// Socket is the message-framed transport the codec rides on (spec.md
// §1's "concrete asynchronous transport", out of scope to implement
// here — concrete router/dealer-socket or QUIC-stream implementations
// are injected by the caller; package internal/netsim provides one
// for tests and the demo command).
type Socket interface {
	SendFrames(ctx context.Context, to peer.BoundPeer, frames [][]byte) error
	Recv(ctx context.Context) (frames [][]byte, reply bool, err error)
}

// PeerFinder is the synchronous request/response surface the lookup
// algorithm rides on: every call is a single suspension point per
// spec.md §5 ("every ping with timeout, every lookup round"),
// generalizing the teacher's Network interface (SendFindNode/SendPing)
// to take a context and an explicit timeout instead of a mocked,
// always-successful direct call.
type PeerFinder interface {
	Ping(ctx context.Context, to peer.BoundPeer, timeout time.Duration) error
	FindPeer(ctx context.Context, to peer.BoundPeer, target identity.Address, timeout time.Duration) ([]peer.BoundPeer, error)
}

// ChainReader answers block/header queries on behalf of ReceiveMessage
// for GetBlockHashes/GetBlocks. Block/transaction validation and
// storage are out of this module's scope (spec.md §1 Non-goals).
type ChainReader interface {
	BlockHashesFrom(locators []chainmsg.Hash, stop chainmsg.Hash) ([]chainmsg.Hash, error)
	BlocksByHash(hashes []chainmsg.Hash) ([]chainmsg.Block, error)
}

// TxPool answers GetTxs and absorbs relayed transactions.
type TxPool interface {
	TxsByID(ids []chainmsg.Hash) ([]chainmsg.Tx, error)
	AddTx(tx chainmsg.Tx) error
}

// SyncSink absorbs inventory and data pushed by peers (BlockHashes,
// TxIds, Block) that this driver does not itself interpret.
type SyncSink interface {
	OnBlockHashes(from peer.BoundPeer, hashes []chainmsg.Hash) error
	OnTxIds(from peer.BoundPeer, ids []chainmsg.Hash) error
	OnBlock(from peer.BoundPeer, block chainmsg.Block) error
}
