// Package messages defines the on-the-wire message envelope, its
// variants, and the canonical digest used as the dedup key by package
// filter. Variants are tagged by a stable integer enumeration so
// on-wire compatibility is keyed by variant tag rather than Go type.
package messages

import (
	"encoding/json"
	"fmt"

	sha256simd "github.com/minio/sha256-simd"

	"sectionrouting/identity"
	"sectionrouting/location"
)

// VariantTag is the stable on-wire integer identifying a message's kind.
type VariantTag int

const (
	VariantBootstrapRequest VariantTag = iota
	VariantBootstrapResponse
	VariantJoinRequest
	VariantNodeApproval
	VariantUserMessage
	VariantMessageSignature
	VariantNeighbourInfo
	VariantGenesisUpdate
	VariantRelocate
	VariantAckMessage
	VariantMemberKnowledge
	VariantParsecRequest
	VariantParsecResponse
	VariantConnectionResponse
)

// Variant is the payload of a Message. Exactly one of the typed fields is
// meaningful for a given Tag; this mirrors a tagged union using a plain
// struct so JSON encoding stays deterministic (no interface{} payloads).
type Variant struct {
	Tag VariantTag `json:"tag"`

	BootstrapRequest  *BootstrapRequest  `json:"bootstrap_request,omitempty"`
	BootstrapResponse *BootstrapResponse `json:"bootstrap_response,omitempty"`
	JoinRequest       *JoinRequest       `json:"join_request,omitempty"`
	UserMessage       *UserMessage       `json:"user_message,omitempty"`
	MessageSignature  *MessageSignature  `json:"message_signature,omitempty"`
	NeighbourInfo     *NeighbourInfo     `json:"neighbour_info,omitempty"`
	Relocate          *Relocate          `json:"relocate,omitempty"`
	GenesisUpdate     *GenesisUpdate     `json:"genesis_update,omitempty"`
}

// Message is the routed envelope: a source and destination location, a
// tagged variant, and whatever signatures have accumulated so far.
type Message struct {
	Src        location.SrcLocation `json:"src"`
	Dst        location.DstLocation `json:"dst"`
	Variant    Variant              `json:"variant"`
	Signatures []identity.Signature `json:"signatures,omitempty"`
}

// Digest is a 32-byte content hash of the canonical serialised message,
// used as the dedup key in package filter.
type Digest [32]byte

func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// Encode canonically serialises msg. The encoding excludes Signatures so
// that a message accumulating further signatures still digests to the
// same value it had when first seen — signature aggregation must not
// perturb dedup.
func Encode(msg Message) ([]byte, error) {
	unsigned := msg
	unsigned.Signatures = nil
	b, err := json.Marshal(unsigned)
	if err != nil {
		return nil, fmt.Errorf("messages: encode: %w", err)
	}
	return b, nil
}

// EncodeWire serialises msg in full, including any accumulated
// signatures, for transmission over the transport. Use Encode (and
// ComputeDigest) for the signature-excluding form used as the dedup key.
func EncodeWire(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("messages: encode wire: %w", err)
	}
	return b, nil
}

// ComputeDigest returns the canonical digest of msg.
func ComputeDigest(msg Message) (Digest, error) {
	b, err := Encode(msg)
	if err != nil {
		return Digest{}, err
	}
	return Digest(sha256simd.Sum256(b)), nil
}
