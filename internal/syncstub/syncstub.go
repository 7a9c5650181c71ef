// Package syncstub is a minimal stand-in for the external block/header
// synchronization layer the driver hands inventory and data messages
// to (spec.md §6 Non-goal: chain sync logic lives outside this
// module). It records what it receives so tests and the demo command
// can assert on driver dispatch without a real sync engine.
package syncstub

import (
	"sync"

	"github.com/kutluhann/p2pcore/chainmsg"
	"github.com/kutluhann/p2pcore/peer"
)

// Sink records every inventory/data push the driver hands it,
// satisfying driver.SyncSink.
type Sink struct {
	mu          sync.Mutex
	blockHashes []Announcement
	txIds       []Announcement
	blocks      []BlockReceipt
}

// Announcement records a hash list pushed by a peer.
type Announcement struct {
	From   peer.BoundPeer
	Hashes []chainmsg.Hash
}

// BlockReceipt records a raw block pushed by a peer.
type BlockReceipt struct {
	From  peer.BoundPeer
	Block chainmsg.Block
}

// New constructs an empty Sink.
func New() *Sink { return &Sink{} }

func (s *Sink) OnBlockHashes(from peer.BoundPeer, hashes []chainmsg.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockHashes = append(s.blockHashes, Announcement{From: from, Hashes: hashes})
	return nil
}

func (s *Sink) OnTxIds(from peer.BoundPeer, ids []chainmsg.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txIds = append(s.txIds, Announcement{From: from, Hashes: ids})
	return nil
}

func (s *Sink) OnBlock(from peer.BoundPeer, block chainmsg.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, BlockReceipt{From: from, Block: block})
	return nil
}

// BlockHashAnnouncements returns a snapshot of every OnBlockHashes call.
func (s *Sink) BlockHashAnnouncements() []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Announcement(nil), s.blockHashes...)
}

// TxIDAnnouncements returns a snapshot of every OnTxIds call.
func (s *Sink) TxIDAnnouncements() []Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Announcement(nil), s.txIds...)
}

// BlockReceipts returns a snapshot of every OnBlock call.
func (s *Sink) BlockReceipts() []BlockReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BlockReceipt(nil), s.blocks...)
}
