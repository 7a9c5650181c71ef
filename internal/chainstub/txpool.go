package chainstub

import (
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kutluhann/p2pcore/chainmsg"
)

// TxPool is an in-memory set of pending transactions with no size
// limit, answering driver.TxPool.
type TxPool struct {
	mu  sync.Mutex
	ids map[chainmsg.Hash]chainmsg.Tx
}

// NewTxPool constructs an empty TxPool.
func NewTxPool() *TxPool {
	return &TxPool{ids: make(map[chainmsg.Hash]chainmsg.Tx)}
}

// TxsByID returns the stored transaction for each id that exists,
// silently skipping unknown ids.
func (p *TxPool) TxsByID(ids []chainmsg.Hash) ([]chainmsg.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []chainmsg.Tx
	for _, id := range ids {
		if tx, ok := p.ids[id]; ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

// AddTx inserts tx keyed by the Keccak256 hash of its bytes,
// deduplicating identical transactions.
func (p *TxPool) AddTx(tx chainmsg.Tx) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[hashOf(tx)] = tx
	return nil
}

func hashOf(tx chainmsg.Tx) chainmsg.Hash {
	return chainmsg.Hash(crypto.Keccak256Hash(tx))
}
