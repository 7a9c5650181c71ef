// Package chainmsg defines the opaque block/transaction types that
// cross the wire codec and the protocol driver's external
// collaborator interfaces. Block and transaction contents are not
// interpreted here — validation and storage are out of this module's
// scope (spec.md §1).
package chainmsg

import "encoding/hex"

// HashLength is the size in bytes of a block or transaction hash.
const HashLength = 32

// Hash identifies a block or transaction.
type Hash [HashLength]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Block is an opaque, already-serialized block payload.
type Block []byte

// Tx is an opaque, already-serialized transaction payload.
type Tx []byte
