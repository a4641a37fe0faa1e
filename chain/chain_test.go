package chain

import (
	"testing"

	"sectionrouting/address"
	"sectionrouting/identity"
)

func mustId(t *testing.T) identity.PublicId {
	t.Helper()
	full, err := identity.Gen()
	if err != nil {
		t.Fatalf("identity.Gen: %v", err)
	}
	return full.PublicId()
}

func TestNewEldersInfoSortsByName(t *testing.T) {
	a := P2pNode{PublicId: mustId(t), ConnInfo: ConnectionInfo{Addr: "a"}}
	b := P2pNode{PublicId: mustId(t), ConnInfo: ConnectionInfo{Addr: "b"}}

	info := NewEldersInfo(address.EmptyPrefix, 1, []P2pNode{b, a})
	if len(info.Elders) != 2 {
		t.Fatalf("expected 2 elders, got %d", len(info.Elders))
	}
	if info.Elders[0].Name().Cmp(info.Elders[1].Name()) >= 0 {
		t.Fatalf("elders not sorted ascending by name")
	}
}

func TestSupersedesPrefersLongerPrefixThenVersion(t *testing.T) {
	p0 := address.NewPrefix(0, address.Name{})
	p1 := p0.Pushed(false)

	parent := EldersInfo{Prefix: p0, Version: 5}
	child := EldersInfo{Prefix: p1, Version: 0}
	if !child.Supersedes(parent) {
		t.Fatalf("a split child must supersede its parent regardless of version")
	}
	if parent.Supersedes(child) {
		t.Fatalf("a parent must not supersede its own split child")
	}

	older := EldersInfo{Prefix: p0, Version: 1}
	newer := EldersInfo{Prefix: p0, Version: 2}
	if !newer.Supersedes(older) {
		t.Fatalf("higher version at the same prefix must supersede")
	}
	if older.Supersedes(newer) {
		t.Fatalf("lower version must not supersede higher")
	}
}

func TestChainUpdateOurRejectsStaleInfo(t *testing.T) {
	c := NewChain(EldersInfo{Prefix: address.EmptyPrefix, Version: 2})
	if c.UpdateOur(EldersInfo{Prefix: address.EmptyPrefix, Version: 1}) {
		t.Fatalf("stale EldersInfo must not be applied")
	}
	if !c.UpdateOur(EldersInfo{Prefix: address.EmptyPrefix, Version: 3}) {
		t.Fatalf("strictly newer EldersInfo must be applied")
	}
	if c.Our.Version != 3 {
		t.Fatalf("Our.Version = %d, want 3", c.Our.Version)
	}
}

func TestNeighbourCoveringPicksLongestMatch(t *testing.T) {
	c := NewChain(EldersInfo{Prefix: address.EmptyPrefix})

	zero := address.NewPrefix(1, address.Name{}) // "0"
	one := zero.Sibling()                        // "1"
	zeroZero := zero.Pushed(false)                // "00"

	c.UpdateNeighbour(EldersInfo{Prefix: zero, Version: 1})
	c.UpdateNeighbour(EldersInfo{Prefix: one, Version: 1})
	c.UpdateNeighbour(EldersInfo{Prefix: zeroZero, Version: 1})

	var name address.Name // all-zero name matches "0" and "00"
	info, ok := c.NeighbourCovering(name)
	if !ok {
		t.Fatalf("expected a covering neighbour")
	}
	if !info.Prefix.Equal(zeroZero) {
		t.Fatalf("expected longest match %#v, got %#v", zeroZero, info.Prefix)
	}
}
