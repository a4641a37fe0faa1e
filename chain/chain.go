// Package chain holds the data model for a node's knowledge of the
// network: connection info, the identity-to-reachability binding
// (P2pNode), versioned section membership (EldersInfo), and a node's
// cache of its own and neighbour sections (Chain).
package chain

import (
	"sort"

	"sectionrouting/address"
	"sectionrouting/identity"
)

// ConnectionInfo is an address sufficient to dial a peer. Equality is by
// address alone.
type ConnectionInfo struct {
	Addr string // host:port, or a multiaddr string for the transport adapter
}

// Equal compares two ConnectionInfos by address.
func (c ConnectionInfo) Equal(other ConnectionInfo) bool {
	return c.Addr == other.Addr
}

// P2pNode is the authoritative binding of identity to reachability:
// created on verified introduction, destroyed on disconnect or
// replacement.
type P2pNode struct {
	PublicId   identity.PublicId
	ConnInfo   ConnectionInfo
}

// Name is a convenience for PublicId.Name().
func (p P2pNode) Name() address.Name {
	return p.PublicId.Name()
}

// sortP2pNodes returns a new slice sorted by name, ascending — the
// canonical order for an elder set.
func sortP2pNodes(nodes []P2pNode) []P2pNode {
	out := make([]P2pNode, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name().Cmp(out[j].Name()) < 0
	})
	return out
}

// EldersInfo is an immutable, versioned record of a section's prefix and
// its current elder set. A new version supersedes an old one by
// (prefix, version) lexicographic order.
type EldersInfo struct {
	Prefix  address.Prefix
	Version uint64
	Elders  []P2pNode // kept sorted by name
}

// NewEldersInfo builds an EldersInfo with its elder set canonically
// sorted.
func NewEldersInfo(prefix address.Prefix, version uint64, elders []P2pNode) EldersInfo {
	return EldersInfo{Prefix: prefix, Version: version, Elders: sortP2pNodes(elders)}
}

// Supersedes reports whether e should replace other: a longer prefix
// (as after a split) supersedes a shorter one whatever the versions; at
// equal prefix length the strictly higher version wins. The two prefixes
// are not checked for being related.
func (e EldersInfo) Supersedes(other EldersInfo) bool {
	if e.Prefix.BitCount != other.Prefix.BitCount {
		return e.Prefix.BitCount > other.Prefix.BitCount
	}
	return e.Version > other.Version
}

// ContainsElderNamed reports whether name belongs to e's elder set.
func (e EldersInfo) ContainsElderNamed(name address.Name) bool {
	for _, elder := range e.Elders {
		if elder.Name() == name {
			return true
		}
	}
	return false
}

// ElderNames returns the names of e's elders.
func (e EldersInfo) ElderNames() []address.Name {
	out := make([]address.Name, len(e.Elders))
	for i, elder := range e.Elders {
		out[i] = elder.Name()
	}
	return out
}

// Chain is a node's knowledge of the network: its own EldersInfo plus the
// most recent EldersInfo of each neighbour prefix.
type Chain struct {
	Our        EldersInfo
	Neighbours map[string]EldersInfo // keyed by Prefix.String()
}

// NewChain seeds a Chain with its own section info and no neighbours.
func NewChain(our EldersInfo) *Chain {
	return &Chain{Our: our, Neighbours: make(map[string]EldersInfo)}
}

// OurPrefix is a convenience for Our.Prefix.
func (c *Chain) OurPrefix() address.Prefix {
	return c.Our.Prefix
}

// NeighbourPrefixes returns the prefixes of every known neighbour
// section.
func (c *Chain) NeighbourPrefixes() []address.Prefix {
	out := make([]address.Prefix, 0, len(c.Neighbours))
	for _, info := range c.Neighbours {
		out = append(out, info.Prefix)
	}
	return out
}

// UpdateOur atomically replaces our own EldersInfo if incoming strictly
// supersedes the current one. Reports whether the update was applied.
func (c *Chain) UpdateOur(incoming EldersInfo) bool {
	if !incoming.Supersedes(c.Our) {
		return false
	}
	c.Our = incoming
	return true
}

// UpdateNeighbour applies an EldersInfo update for a neighbour prefix,
// replacing the existing entry only when incoming strictly supersedes
// it. Reports whether the update was applied.
func (c *Chain) UpdateNeighbour(incoming EldersInfo) bool {
	key := incoming.Prefix.String()
	if existing, ok := c.Neighbours[key]; ok && !incoming.Supersedes(existing) {
		return false
	}
	c.Neighbours[key] = incoming
	return true
}

// NeighbourCovering returns the known neighbour EldersInfo whose prefix
// best covers name (longest compatible match), if any.
func (c *Chain) NeighbourCovering(name address.Name) (EldersInfo, bool) {
	var best EldersInfo
	found := false
	for _, info := range c.Neighbours {
		if !info.Prefix.Matches(name) {
			continue
		}
		if !found || info.Prefix.BitCount > best.Prefix.BitCount {
			best = info
			found = true
		}
	}
	return best, found
}

// NeighbourCoveringPrefix returns the known neighbour EldersInfo whose
// prefix covers p (p is compatible with it and at least as specific).
func (c *Chain) NeighbourCoveringPrefix(p address.Prefix) (EldersInfo, bool) {
	var best EldersInfo
	found := false
	for _, info := range c.Neighbours {
		if !info.Prefix.IsCompatible(p) || info.Prefix.BitCount > p.BitCount {
			continue
		}
		if !found || info.Prefix.BitCount > best.Prefix.BitCount {
			best = info
			found = true
		}
	}
	return best, found
}

// IsSelfElder reports whether name belongs to our own current elder set.
func (c *Chain) IsSelfElder(name address.Name) bool {
	return c.Our.ContainsElderNamed(name)
}
