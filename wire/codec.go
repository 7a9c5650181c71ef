package wire

import (
	"bytes"

	"github.com/kutluhann/p2pcore/errs"
	"github.com/kutluhann/p2pcore/identity"
)

const (
	pubKeyFrameLen = 33
	typeFrameLen   = 1
)

// Envelope is what Parse produces: the decoded Message, the verifying
// key taken from the header (spec.md §8's round-trip property checks
// this against the signer's public key), and — only for frames
// received from a router-style socket (reply=false) — the recipient
// identity carried in the addressing frame.
type Envelope struct {
	Message     Message
	SenderKey   identity.PublicKey
	Identity    identity.Address
	HasIdentity bool
}

// ToTransportMessage signs msg with priv and frames it for the
// transport, per spec.md §4.4's encoding algorithm:
//  1. the message variant produces its own body frames;
//  2. the concatenation of those frames (no length prefixes between
//     them) is the signed payload;
//  3. the header frames go in front of the body in this order: the
//     recipient identity address (only if to is non-nil), type tag,
//     compressed public key, signature — so the signature sits right
//     before the body frames.
func ToTransportMessage(msg Message, priv identity.PrivateKey, to *identity.Address) [][]byte {
	body := msg.bodyFrames()
	signed := bytes.Join(body, nil)
	sig := priv.Sign(signed)

	header := make([][]byte, 0, 4)
	if to != nil {
		header = append(header, append([]byte(nil), to[:]...))
	}
	header = append(header,
		[]byte{byte(msg.Type())},
		priv.Public().Compressed(),
		sig,
	)
	return append(header, body...)
}

// Parse decodes frames into an Envelope, verifying the header
// signature over the concatenated body before dispatching to the
// variant's body parser. reply selects which of the two frame shapes
// in spec.md §4.4 applies: reply=true (dealer-style socket) omits the
// leading identity frame, reply=false (router-style socket) includes
// it and Parse attaches it to the resulting Envelope.
func Parse(frames [][]byte, reply bool) (*Envelope, error) {
	const op = "wire.Parse"
	if len(frames) == 0 {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}

	var identityFrame []byte
	hasIdentity := false
	if !reply {
		if len(frames) == 0 {
			return nil, errs.New(errs.InvalidMessage, op, nil)
		}
		identityFrame = frames[0]
		frames = frames[1:]
		hasIdentity = true
	}

	if len(frames) < 3 {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}

	typeFrame, pubKeyFrame, sigFrame, bodyFrames := frames[0], frames[1], frames[2], frames[3:]

	if len(typeFrame) != typeFrameLen {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}
	parser, ok := parsers[Type(typeFrame[0])]
	if !ok {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}

	if len(pubKeyFrame) != pubKeyFrameLen {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}
	pub, err := identity.ParsePublicKey(pubKeyFrame)
	if err != nil {
		return nil, errs.New(errs.InvalidMessage, op, err)
	}

	signed := bytes.Join(bodyFrames, nil)
	if !pub.Verify(signed, sigFrame) {
		return nil, errs.New(errs.InvalidMessage, op, nil)
	}

	msg, err := parser(bodyFrames)
	if err != nil {
		return nil, err
	}

	env := &Envelope{Message: msg, SenderKey: pub}
	if hasIdentity {
		if len(identityFrame) != identity.AddressLength {
			return nil, errs.New(errs.InvalidMessage, op, nil)
		}
		copy(env.Identity[:], identityFrame)
		env.HasIdentity = true
	}
	return env, nil
}

// parsers dispatches a decoded type tag to its body parser. This is
// the "single function pair dispatching on tag" design note from
// spec.md §9, expressed as a lookup table instead of a switch so
// adding a variant never touches Parse itself.
var parsers = map[Type]func(body [][]byte) (Message, error){
	PingType: func(body [][]byte) (Message, error) { return Ping{}, nil },
	PongType: func(body [][]byte) (Message, error) { return Pong{}, nil },
	PeerSetDeltaType: func(body [][]byte) (Message, error) {
		if len(body) != 1 {
			return nil, errs.New(errs.InvalidMessage, "wire.parsePeerSetDelta", nil)
		}
		d, err := decodeDelta(body[0])
		if err != nil {
			return nil, err
		}
		return d, nil
	},
	GetBlockHashesType: func(body [][]byte) (Message, error) {
		g, err := decodeGetBlockHashes(body)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	BlockHashesType: func(body [][]byte) (Message, error) {
		hashes, err := decodeHashList(body, "wire.parseBlockHashes")
		if err != nil {
			return nil, err
		}
		return BlockHashes{Hashes: hashes}, nil
	},
	TxIdsType: func(body [][]byte) (Message, error) {
		ids, err := decodeHashList(body, "wire.parseTxIds")
		if err != nil {
			return nil, err
		}
		return TxIds{Ids: ids}, nil
	},
	GetBlocksType: func(body [][]byte) (Message, error) {
		hashes, err := decodeHashList(body, "wire.parseGetBlocks")
		if err != nil {
			return nil, err
		}
		return GetBlocks{Hashes: hashes}, nil
	},
	GetTxsType: func(body [][]byte) (Message, error) {
		ids, err := decodeHashList(body, "wire.parseGetTxs")
		if err != nil {
			return nil, err
		}
		return GetTxs{Ids: ids}, nil
	},
	BlockType: func(body [][]byte) (Message, error) {
		if len(body) != 1 {
			return nil, errs.New(errs.InvalidMessage, "wire.parseBlock", nil)
		}
		return Block{Data: append([]byte(nil), body[0]...)}, nil
	},
	TxType: func(body [][]byte) (Message, error) {
		if len(body) != 1 {
			return nil, errs.New(errs.InvalidMessage, "wire.parseTx", nil)
		}
		return Tx{Data: append([]byte(nil), body[0]...)}, nil
	},
}
