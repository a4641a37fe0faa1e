// Package identity owns a node's key material: a FullId (secret and
// public halves) and a PublicId (public only, freely cloneable). Names
// are derived deterministically from the public key.
package identity

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"sectionrouting/address"
)

// PublicId is the publicly shareable half of a node's identity. It is a
// plain value type: copying it is always safe.
type PublicId struct {
	key *btcec.PublicKey
}

// Name derives the deterministic Name bound to this public key.
func (p PublicId) Name() address.Name {
	digest := sha256.Sum256(p.key.SerializeCompressed())
	var n address.Name
	// sha256 is 32 bytes, address.Name is 256 bits (32 bytes): one pass.
	copy(n[:], digest[:])
	return n
}

// Bytes returns the compressed SEC1 encoding of the public key, suitable
// for wire transmission and equality comparison.
func (p PublicId) Bytes() []byte {
	return p.key.SerializeCompressed()
}

// Equal compares two PublicIds by their encoded key bytes.
func (p PublicId) Equal(other PublicId) bool {
	a, b := p.Bytes(), other.Bytes()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p PublicId) String() string {
	return p.Name().String()
}

// PublicIdFromBytes decodes a compressed SEC1 public key previously
// produced by PublicId.Bytes.
func PublicIdFromBytes(b []byte) (PublicId, error) {
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return PublicId{}, fmt.Errorf("identity: parse public id: %w", err)
	}
	return PublicId{key: key}, nil
}

// FullId exclusively owns its signing secret; it is never cloned, only
// moved.
type FullId struct {
	secret *btcec.PrivateKey
}

// Gen creates a fresh FullId from a cryptographically secure source.
func Gen() (FullId, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return FullId{}, fmt.Errorf("identity: generate key: %w", err)
	}
	return FullId{secret: key}, nil
}

// PublicId returns the public half of this identity.
func (f FullId) PublicId() PublicId {
	return PublicId{key: f.secret.PubKey()}
}

// Name is a convenience for f.PublicId().Name().
func (f FullId) Name() address.Name {
	return f.PublicId().Name()
}

// WithinRange draws fresh FullIds until one's derived name lies within
// [lo, hi] inclusive. This is how relocation adopts a name inside the
// destination section's prefix: the node regenerates its identity, it
// does not choose its name directly.
func WithinRange(lo, hi address.Name) (FullId, error) {
	for {
		id, err := Gen()
		if err != nil {
			return FullId{}, err
		}
		n := id.Name()
		if n.Cmp(lo) >= 0 && n.Cmp(hi) <= 0 {
			return id, nil
		}
	}
}

// WithinPrefix is a convenience wrapper around WithinRange using a
// Prefix's inclusive range.
func WithinPrefix(p address.Prefix) (FullId, error) {
	lo, hi := p.RangeInclusive()
	return WithinRange(lo, hi)
}
