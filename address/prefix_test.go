package address

import "testing"

func mustName(t *testing.T) Name {
	t.Helper()
	n, err := RandomName()
	if err != nil {
		t.Fatalf("random name: %v", err)
	}
	return n
}

func TestPrefixMatchesExact(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(5, n)
	if !p.Matches(n) {
		t.Fatalf("prefix should match the name it was built from")
	}
	flipped := n.WithBit(4, !n.Bit(4))
	if p.Matches(flipped) {
		t.Fatalf("prefix should not match a name differing within its significant bits")
	}
}

func TestPushedPartitionsPrefix(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(3, n)
	left := p.Pushed(false)
	right := p.Pushed(true)

	if left.Equal(right) {
		t.Fatalf("pushed children must differ")
	}
	if !left.IsCompatible(p) || !right.IsCompatible(p) {
		t.Fatalf("children must be compatible with their parent")
	}

	// Every name matching p matches exactly one of the two children.
	for i := 0; i < 64; i++ {
		m := mustName(t)
		m = NewPrefix(p.BitCount, m).Value
		// Force m to actually match p by copying p's significant bits in.
		candidate := p.Value
		for b := p.BitCount; b < Width; b++ {
			candidate = candidate.WithBit(b, m.Bit(b))
		}
		matchesLeft := left.Matches(candidate)
		matchesRight := right.Matches(candidate)
		if matchesLeft == matchesRight {
			t.Fatalf("candidate %s matched left=%v right=%v, want exactly one", candidate, matchesLeft, matchesRight)
		}
	}
}

func TestIsCompatibleSymmetricReflexive(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(4, n)
	q := p.Pushed(true)
	if !p.IsCompatible(p) {
		t.Fatalf("IsCompatible must be reflexive")
	}
	if p.IsCompatible(q) != q.IsCompatible(p) {
		t.Fatalf("IsCompatible must be symmetric")
	}
	if !p.IsCompatible(q) {
		t.Fatalf("a prefix must be compatible with its own extension")
	}
}

func TestSiblingIsSameAsSecondPushed(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(6, n)
	child := p.Pushed(true)
	if !child.Sibling().Equal(p.Pushed(false)) {
		t.Fatalf("sibling of pushed(true) should equal pushed(false)")
	}
}

func TestIsNeighbour(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(5, n)
	sib := p.Sibling()
	if !p.IsNeighbour(sib) {
		t.Fatalf("a prefix and its sibling must be neighbours")
	}
	if p.IsNeighbour(p) {
		t.Fatalf("a prefix is not its own neighbour")
	}
}

func TestIsCoveredBy(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(2, n)
	left := p.Pushed(false)
	right := p.Pushed(true)

	if p.IsCoveredBy([]Prefix{left, right}) == false {
		t.Fatalf("two children must cover their parent")
	}
	if p.IsCoveredBy([]Prefix{left}) {
		t.Fatalf("one child alone must not cover the parent")
	}
	if !p.IsCoveredBy([]Prefix{p}) {
		t.Fatalf("a prefix covers itself")
	}
}

func TestRangeInclusive(t *testing.T) {
	n := mustName(t)
	p := NewPrefix(8, n)
	lo, hi := p.RangeInclusive()
	if !p.Matches(lo) || !p.Matches(hi) {
		t.Fatalf("range endpoints must match the prefix")
	}
	if lo.Cmp(hi) > 0 {
		t.Fatalf("lo must not exceed hi")
	}
}

func TestEmptyPrefixMatchesEverything(t *testing.T) {
	for i := 0; i < 16; i++ {
		n := mustName(t)
		if !EmptyPrefix.Matches(n) {
			t.Fatalf("empty prefix must match every name")
		}
	}
}
