package address

import "fmt"

// Prefix identifies a section: the top BitCount bits of Value are
// significant, everything past that is not part of the prefix's
// identity (and is kept zeroed by NewPrefix/Pushed/WithFlippedBit so two
// equal prefixes compare equal with ==).
type Prefix struct {
	BitCount int
	Value    Name
}

// EmptyPrefix is the zero-length prefix that matches every name: the
// genesis, single-section case.
var EmptyPrefix = Prefix{BitCount: 0}

// NewPrefix builds a Prefix from a bit count and a name, truncating value
// to its significant bits.
func NewPrefix(bitCount int, value Name) Prefix {
	if bitCount < 0 || bitCount > Width {
		panic("address: prefix bit count out of range")
	}
	return Prefix{BitCount: bitCount, Value: value.truncate(bitCount)}
}

// String renders the prefix as its significant bits, e.g. "101".
func (p Prefix) String() string {
	b := make([]byte, p.BitCount)
	for i := 0; i < p.BitCount; i++ {
		if p.Value.Bit(i) {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// Matches reports whether name agrees with p on p's significant bits.
func (p Prefix) Matches(name Name) bool {
	return name.truncate(p.BitCount) == p.Value
}

// IsCompatible reports whether one prefix is a prefix of the other (in
// either direction). It is symmetric and reflexive.
func (p Prefix) IsCompatible(other Prefix) bool {
	shorter, longer := p, other
	if shorter.BitCount > longer.BitCount {
		shorter, longer = longer, shorter
	}
	return longer.Value.truncate(shorter.BitCount) == shorter.Value
}

// IsNeighbour reports whether p and other differ in exactly one bit among
// the shorter prefix's significant bits, and otherwise agree.
func (p Prefix) IsNeighbour(other Prefix) bool {
	shorter, longer := p, other
	if shorter.BitCount > longer.BitCount {
		shorter, longer = longer, shorter
	}
	if shorter.BitCount == 0 {
		return false
	}
	diffBit := -1
	for i := 0; i < shorter.BitCount; i++ {
		if shorter.Value.Bit(i) != longer.Value.truncate(shorter.BitCount).Bit(i) {
			if diffBit != -1 {
				return false
			}
			diffBit = i
		}
	}
	return diffBit != -1
}

// Pushed extends p by one more significant bit, set to bit.
func (p Prefix) Pushed(bit bool) Prefix {
	if p.BitCount >= Width {
		panic("address: prefix already at full width")
	}
	return NewPrefix(p.BitCount+1, p.Value.WithBit(p.BitCount, bit))
}

// Sibling returns the prefix obtained by flipping p's last significant
// bit; for a non-empty prefix, p and p.Sibling() partition their parent.
func (p Prefix) Sibling() Prefix {
	if p.BitCount == 0 {
		panic("address: empty prefix has no sibling")
	}
	return p.WithFlippedBit(p.BitCount - 1)
}

// WithFlippedBit returns a copy of p with bit i flipped. i must be one of
// p's significant bit positions.
func (p Prefix) WithFlippedBit(i int) Prefix {
	if i < 0 || i >= p.BitCount {
		panic("address: flip index out of range")
	}
	return NewPrefix(p.BitCount, p.Value.WithBit(i, !p.Value.Bit(i)))
}

// Popped removes the last significant bit, returning p's parent.
func (p Prefix) Popped() Prefix {
	if p.BitCount == 0 {
		panic("address: empty prefix has no parent")
	}
	return NewPrefix(p.BitCount-1, p.Value)
}

// IsCoveredBy reports whether every name matching p matches some prefix
// in set: either set holds p itself or one of its ancestors, or the
// prefixes in set that lie inside p tile p with no gaps.
func (p Prefix) IsCoveredBy(set []Prefix) bool {
	var relevant []Prefix
	for _, q := range set {
		if p.IsCompatible(q) && q.BitCount <= p.BitCount {
			return true
		}
		if p.IsCompatible(q) && q.BitCount >= p.BitCount {
			relevant = append(relevant, q)
		}
	}
	return p.isCoveredByRec(relevant)
}

func (p Prefix) isCoveredByRec(set []Prefix) bool {
	for _, q := range set {
		if q.BitCount == p.BitCount && q.Value == p.Value {
			return true
		}
	}
	// Try splitting p and recursing: p is covered iff both halves are.
	if p.BitCount >= Width {
		return false
	}
	left := p.Pushed(false)
	right := p.Pushed(true)
	return left.isCoveredByRec(filterUnder(set, left)) && right.isCoveredByRec(filterUnder(set, right))
}

func filterUnder(set []Prefix, p Prefix) []Prefix {
	var out []Prefix
	for _, q := range set {
		if p.IsCompatible(q) {
			out = append(out, q)
		}
	}
	return out
}

// RangeInclusive returns the smallest and largest Name matching p.
func (p Prefix) RangeInclusive() (lo, hi Name) {
	lo = p.Value
	hi = p.Value
	for i := p.BitCount; i < Width; i++ {
		hi = hi.WithBit(i, true)
	}
	return lo, hi
}

// Equal reports structural equality (same bit count, same significant
// value).
func (p Prefix) Equal(other Prefix) bool {
	return p.BitCount == other.BitCount && p.Value == other.Value
}

// GoString supports %#v / debug dumps with a readable form.
func (p Prefix) GoString() string {
	return fmt.Sprintf("Prefix(%s)", p.String())
}
