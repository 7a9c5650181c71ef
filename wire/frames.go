package wire

import (
	"encoding/binary"

	"github.com/kutluhann/p2pcore/chainmsg"
	"github.com/kutluhann/p2pcore/errs"
)

// encodeHashList implements the "[count][hash × count]" body shape
// shared by BlockHashes, TxIds, GetBlocks, and GetTxs: a single
// 4-byte big-endian count frame followed by one frame per hash.
func encodeHashList(hashes []chainmsg.Hash) [][]byte {
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(hashes)))
	frames := make([][]byte, 0, len(hashes)+1)
	frames = append(frames, count)
	for _, h := range hashes {
		frames = append(frames, append([]byte(nil), h[:]...))
	}
	return frames
}

// decodeHashList is the inverse of encodeHashList. It is total within
// frames: any mismatch between the declared count and the number of
// hash frames present is an InvalidMessage error.
func decodeHashList(frames [][]byte, op string) ([]chainmsg.Hash, error) {
	if len(frames) == 0 {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}
	if len(frames[0]) != 4 {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}
	count := binary.BigEndian.Uint32(frames[0])
	if uint32(len(frames)-1) != count {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}
	hashes := make([]chainmsg.Hash, 0, count)
	for _, f := range frames[1:] {
		if len(f) != chainmsg.HashLength {
			return nil, errs.New(errs.InvalidMessage, op, nil)
		}
		var h chainmsg.Hash
		copy(h[:], f)
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// decodeGetBlockHashes implements the "[locator-hashes...] [stop-hash]"
// shape: every frame but the last is a locator, the last is the stop
// hash. At least one frame (the stop hash) must be present.
func decodeGetBlockHashes(frames [][]byte) (GetBlockHashes, error) {
	const op = "wire.decodeGetBlockHashes"
	if len(frames) == 0 {
		return GetBlockHashes{}, errs.New(errs.InvalidMessage, op, nil)
	}
	for _, f := range frames {
		if len(f) != chainmsg.HashLength {
			return GetBlockHashes{}, errs.New(errs.InvalidMessage, op, nil)
		}
	}
	locators := make([]chainmsg.Hash, 0, len(frames)-1)
	for _, f := range frames[:len(frames)-1] {
		var h chainmsg.Hash
		copy(h[:], f)
		locators = append(locators, h)
	}
	var stop chainmsg.Hash
	copy(stop[:], frames[len(frames)-1])
	return GetBlockHashes{Locators: locators, Stop: stop}, nil
}
