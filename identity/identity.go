// Package identity implements the node identity and signing primitives:
// a 160-bit Address derived from a secp256k1 public key, and the
// keypair operations the message codec signs and verifies with.
package identity

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the size in bytes of an Address.
const AddressLength = 20

// Address is a 20-byte node identifier derived from a public key.
// Equality and hashing are byte-wise; ordering is only meaningful via
// XOR distance against another Address (see package kademlia).
type Address [AddressLength]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// PublicKey wraps a secp256k1 public key and exposes the compressed
// 33-byte wire form the codec uses.
type PublicKey struct {
	inner *secp256k1.PublicKey
}

// ParsePublicKey decodes a 33-byte compressed public key.
func ParsePublicKey(compressed []byte) (PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{inner: pk}, nil
}

// Compressed returns the 33-byte compressed serialization.
func (p PublicKey) Compressed() []byte { return p.inner.SerializeCompressed() }

// Address derives the 20-byte node Address: the last AddressLength
// bytes of the Keccak-256 hash of the compressed public key.
func (p PublicKey) Address() Address {
	sum := crypto.Keccak256(p.Compressed())
	var a Address
	copy(a[:], sum[len(sum)-AddressLength:])
	return a
}

// Verify checks sig (a DER-encoded ECDSA signature) against body
// under this public key.
func (p PublicKey) Verify(body []byte, sig []byte) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	hash := crypto.Keccak256(body)
	return parsed.Verify(hash, p.inner)
}

func (p PublicKey) Equal(other PublicKey) bool {
	if p.inner == nil || other.inner == nil {
		return p.inner == other.inner
	}
	return p.inner.IsEqual(other.inner)
}

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	inner *secp256k1.PrivateKey
}

// Generate produces a fresh random keypair.
func Generate() (PrivateKey, error) {
	pk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{inner: pk}, nil
}

// FromBytes loads a private key from its raw 32-byte scalar.
func FromBytes(b []byte) PrivateKey {
	return PrivateKey{inner: secp256k1.PrivKeyFromBytes(b)}
}

// Bytes returns the raw 32-byte scalar.
func (k PrivateKey) Bytes() []byte { return k.inner.Serialize() }

// Public returns the corresponding public key.
func (k PrivateKey) Public() PublicKey { return PublicKey{inner: k.inner.PubKey()} }

// Sign produces a DER-encoded ECDSA signature over body's Keccak-256
// hash. The returned signature is variable length (the "64+ byte
// signature" of the data model: a low-S DER encoding is at least 64
// bytes once the 0x30 sequence and two 0x02 integer tags are counted).
func (k PrivateKey) Sign(body []byte) []byte {
	hash := crypto.Keccak256(body)
	sig := ecdsa.Sign(k.inner, hash)
	return sig.Serialize()
}

// randomAddress fills an Address from crypto/rand; it only needs an
// entropy source, not a keypair.
func randomAddress() (Address, error) {
	var a Address
	if _, err := rand.Read(a[:]); err != nil {
		return Address{}, err
	}
	return a, nil
}

// RandomAddress returns a cryptographically random Address. The
// driver's refresh and rebuild lookups do not use it; they take their
// targets from kademlia.RoutingTable.RandomAddressInBucket.
func RandomAddress() (Address, error) { return randomAddress() }
