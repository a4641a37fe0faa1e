package messages

import (
	"sectionrouting/address"
	"sectionrouting/chain"
	"sectionrouting/identity"
)

// BootstrapRequest carries the destination name a bootstrapping (or
// relocating) node wants to join near.
type BootstrapRequest struct {
	Destination address.Name `json:"destination"`
}

// BootstrapResponseKind tags which case of BootstrapResponse is
// populated.
type BootstrapResponseKind int

const (
	BootstrapJoin BootstrapResponseKind = iota
	BootstrapRebootstrap
)

// BootstrapResponse is either an invitation to join a section or a
// redirect to another set of contacts.
type BootstrapResponse struct {
	Kind        BootstrapResponseKind    `json:"kind"`
	EldersInfo  chain.EldersInfo         `json:"elders_info,omitempty"`
	NewContacts []chain.ConnectionInfo   `json:"new_contacts,omitempty"`
}

// RelocatePayload binds a relocating node's old and new public ids so
// the destination section can verify continuity of identity across the
// name change.
type RelocatePayload struct {
	OldPublicId identity.PublicId `json:"old_public_id"`
	NewPublicId identity.PublicId `json:"new_public_id"`
	Destination address.Name      `json:"destination"`
}

// JoinRequest is sent to a target section's elders, optionally proving
// this is a relocating node rather than a fresh one.
type JoinRequest struct {
	RelocatePayload *RelocatePayload `json:"relocate_payload,omitempty"`
}

// UserMessage carries application content between a source and
// destination location; content is an opaque, plain payload as far as
// the core is concerned (no application semantics).
type UserMessage struct {
	Content []byte `json:"content"`
}

// MessageSignature carries one elder's signature share over a digest,
// accumulated until a quorum of the source section's elder set is
// reached (quorum policy is delegated to the consensus collaborator).
type MessageSignature struct {
	Digest    Digest            `json:"digest"`
	Signer    identity.PublicId `json:"signer"`
	Signature identity.Signature `json:"signature"`
}

// NeighbourInfo announces a neighbour section's current EldersInfo.
type NeighbourInfo struct {
	EldersInfo chain.EldersInfo `json:"elders_info"`
}

// SignedRelocateDetails is issued by consensus to force a node to
// relocate to a destination section.
type SignedRelocateDetails struct {
	Destination address.Name `json:"destination"`
}

// Relocate carries a SignedRelocateDetails to the node being relocated,
// along with the connection info of its future section's elders so it
// can re-enter Bootstrapping directly against them.
type Relocate struct {
	Details  SignedRelocateDetails  `json:"details"`
	ConnInfos []chain.ConnectionInfo `json:"conn_infos,omitempty"`
}

// GenesisUpdate carries a fresh version of the receiving node's own
// EldersInfo, as agreed by consensus — including, after a section split,
// one half of the former section's now-retired EldersInfo.
type GenesisUpdate struct {
	OurInfo chain.EldersInfo `json:"our_info"`
}
