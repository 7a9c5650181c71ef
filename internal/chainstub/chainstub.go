// Package chainstub is a minimal in-memory stand-in for the external
// chain/tx-pool collaborators the driver dispatches into (spec.md §6
// Non-goal: block/transaction validation and storage live outside this
// module). It exists to exercise driver.ChainReader and driver.TxPool
// in tests and the demo command without pulling in a real ledger.
package chainstub

import (
	"sync"

	"github.com/kutluhann/p2pcore/chainmsg"
)

// Chain is a flat, ordered list of blocks keyed by hash, answering
// driver.ChainReader the way a real node would answer from its local
// chain index.
type Chain struct {
	mu     sync.Mutex
	order  []chainmsg.Hash
	blocks map[chainmsg.Hash]chainmsg.Block
}

// New constructs an empty Chain.
func New() *Chain {
	return &Chain{blocks: make(map[chainmsg.Hash]chainmsg.Block)}
}

// Append adds a block under hash to the head of the chain.
func (c *Chain) Append(hash chainmsg.Hash, block chainmsg.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.blocks[hash]; exists {
		return
	}
	c.order = append(c.order, hash)
	c.blocks[hash] = block
}

// BlockHashesFrom returns every hash after the locator that sits
// furthest along the chain, up to and including stop (or the chain head if stop is
// never found). An empty locator list returns the full chain.
func (c *Chain) BlockHashesFrom(locators []chainmsg.Hash, stop chainmsg.Hash) ([]chainmsg.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	for _, loc := range locators {
		for i, h := range c.order {
			if h == loc && i+1 > start {
				start = i + 1
			}
		}
	}

	var out []chainmsg.Hash
	for _, h := range c.order[start:] {
		out = append(out, h)
		if h == stop {
			break
		}
	}
	return out, nil
}

// BlocksByHash returns the stored block for each hash that exists,
// silently skipping unknown hashes.
func (c *Chain) BlocksByHash(hashes []chainmsg.Hash) ([]chainmsg.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []chainmsg.Block
	for _, h := range hashes {
		if b, ok := c.blocks[h]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}
