// Package location defines the source and destination addressing used by
// routed messages.
package location

import "sectionrouting/address"

// SrcKind tags which variant of SrcLocation is populated.
type SrcKind int

const (
	SrcNode SrcKind = iota
	SrcSection
)

// SrcLocation is either a single node (by name) or an entire section (by
// its prefix), the latter valid only when the sender is an elder of that
// section.
type SrcLocation struct {
	Kind   SrcKind
	Name   address.Name
	Prefix address.Prefix
}

// NodeSrc builds a SrcLocation naming a single node.
func NodeSrc(name address.Name) SrcLocation {
	return SrcLocation{Kind: SrcNode, Name: name}
}

// SectionSrc builds a SrcLocation naming an entire section.
func SectionSrc(prefix address.Prefix) SrcLocation {
	return SrcLocation{Kind: SrcSection, Prefix: prefix}
}

// DstKind tags which variant of DstLocation is populated.
type DstKind int

const (
	DstNode DstKind = iota
	DstSection
	DstPrefixSection
	DstDirect
)

// DstLocation addresses a message's destination. Direct means single-hop
// peer-to-peer and bypasses routing and the dedup filters entirely.
type DstLocation struct {
	Kind   DstKind
	Name   address.Name
	Prefix address.Prefix
}

// NodeDst addresses a single node by name.
func NodeDst(name address.Name) DstLocation {
	return DstLocation{Kind: DstNode, Name: name}
}

// SectionDst addresses the section whose range covers name.
func SectionDst(name address.Name) DstLocation {
	return DstLocation{Kind: DstSection, Name: name}
}

// PrefixSectionDst addresses every section covering prefix.
func PrefixSectionDst(prefix address.Prefix) DstLocation {
	return DstLocation{Kind: DstPrefixSection, Prefix: prefix}
}

// Direct is the single-hop, unrouted destination.
var Direct = DstLocation{Kind: DstDirect}

// IsDirect reports whether d is the Direct destination.
func (d DstLocation) IsDirect() bool {
	return d.Kind == DstDirect
}
