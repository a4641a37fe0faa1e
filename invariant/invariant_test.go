package invariant

import (
	"testing"

	"sectionrouting/address"
	"sectionrouting/chain"
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

func elderNode(t *testing.T, prefix address.Prefix) chain.P2pNode {
	t.Helper()
	for {
		pub := mustId(t)
		if prefix.Matches(pub.Name()) {
			return chain.P2pNode{PublicId: pub, ConnInfo: chain.ConnectionInfo{Addr: pub.String()}}
		}
	}
}

func TestCheckNodeGenesisPasses(t *testing.T) {
	self := elderNode(t, address.EmptyPrefix)
	n := NodeView{
		Name:    self.Name(),
		IsElder: true,
		Our:     chain.NewEldersInfo(address.EmptyPrefix, 0, []chain.P2pNode{self}),
	}
	if v := CheckNode(n, 1); len(v) != 0 {
		t.Fatalf("genesis single-elder view should pass, got %v", v)
	}
}

func TestCheckNodeFlagsUndersizedElderSet(t *testing.T) {
	zero := address.NewPrefix(1, address.Name{})
	self := elderNode(t, zero)
	n := NodeView{
		Name:    self.Name(),
		IsElder: true,
		Our:     chain.NewEldersInfo(zero, 1, []chain.P2pNode{self}),
	}
	violations := CheckNode(n, 7)
	found := false
	for _, v := range violations {
		if v.Rule == "min-elder-count" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a min-elder-count violation, got %v", violations)
	}
}

func TestCheckNodeFlagsMissingNeighbourCoverage(t *testing.T) {
	zero := address.NewPrefix(1, address.Name{})
	self := elderNode(t, zero)
	n := NodeView{
		Name:       self.Name(),
		IsElder:    true,
		Our:        chain.NewEldersInfo(zero, 1, []chain.P2pNode{self}),
		Neighbours: map[string]chain.EldersInfo{},
	}
	violations := CheckNode(n, 1)
	found := false
	for _, v := range violations {
		if v.Rule == "neighbour-coverage" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a neighbour-coverage violation when the sibling prefix is unknown, got %v", violations)
	}
}

func TestCheckNodePassesWithSiblingNeighbourKnown(t *testing.T) {
	zero := address.NewPrefix(1, address.Name{})
	one := zero.Sibling()
	self := elderNode(t, zero)
	nbrElder := elderNode(t, one)

	n := NodeView{
		Name:    self.Name(),
		IsElder: true,
		Our:     chain.NewEldersInfo(zero, 1, []chain.P2pNode{self}),
		Neighbours: map[string]chain.EldersInfo{
			one.String(): chain.NewEldersInfo(one, 1, []chain.P2pNode{nbrElder}),
		},
	}
	if v := CheckNode(n, 1); len(v) != 0 {
		t.Fatalf("expected no violations with the sibling section known, got %v", v)
	}
}

func TestCheckAdultWithNeighboursIsFlagged(t *testing.T) {
	zero := address.NewPrefix(1, address.Name{})
	self := elderNode(t, zero)
	n := NodeView{
		Name:       self.Name(),
		IsElder:    false,
		Neighbours: map[string]chain.EldersInfo{"x": {}},
	}
	violations := CheckNode(n, 1)
	if len(violations) != 1 || violations[0].Rule != "adult-has-no-neighbours" {
		t.Fatalf("expected a single adult-has-no-neighbours violation, got %v", violations)
	}
}

func TestCheckBetweenNodesFlagsConflictingVersions(t *testing.T) {
	zero := address.NewPrefix(1, address.Name{})
	a := elderNode(t, zero)
	b := elderNode(t, zero)

	nodes := []NodeView{
		{Name: a.Name(), IsElder: true, Our: chain.NewEldersInfo(zero, 1, []chain.P2pNode{a})},
		{Name: b.Name(), IsElder: true, Our: chain.NewEldersInfo(zero, 2, []chain.P2pNode{b})},
	}
	violations := CheckBetweenNodes(nodes)
	found := false
	for _, v := range violations {
		if v.Rule == "prefix-agreement" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a prefix-agreement violation, got %v", violations)
	}
}

func TestCheckBetweenNodesCoverageAndDisjointness(t *testing.T) {
	zero := address.NewPrefix(1, address.Name{})
	one := zero.Sibling()
	a := elderNode(t, zero)
	b := elderNode(t, one)

	nodes := []NodeView{
		{Name: a.Name(), IsElder: true, Our: chain.NewEldersInfo(zero, 1, []chain.P2pNode{a})},
		{Name: b.Name(), IsElder: true, Our: chain.NewEldersInfo(one, 1, []chain.P2pNode{b})},
	}
	if v := CheckBetweenNodes(nodes); len(v) != 0 {
		t.Fatalf("two sibling sections should fully cover the address space disjointly, got %v", v)
	}

	// Two nodes both claiming the same prefix overlap.
	c := elderNode(t, zero)
	overlapping := []NodeView{
		{Name: a.Name(), IsElder: true, Our: chain.NewEldersInfo(zero, 1, []chain.P2pNode{a})},
		{Name: c.Name(), IsElder: true, Our: chain.NewEldersInfo(zero, 1, []chain.P2pNode{c})},
	}
	violations := CheckBetweenNodes(overlapping)
	foundCoverage := false
	foundDisjoint := false
	for _, v := range violations {
		if v.Rule == "address-space-coverage" {
			foundCoverage = true
		}
		if v.Rule == "address-space-disjoint" {
			foundDisjoint = true
		}
	}
	if !foundCoverage {
		t.Fatalf("expected address-space-coverage violation when only half the space is claimed, got %v", violations)
	}
	if !foundDisjoint {
		t.Fatalf("expected address-space-disjoint violation when two sections claim the same prefix, got %v", violations)
	}
}
