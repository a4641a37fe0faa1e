// Package invariant is the read-only validator over a snapshot of node
// views: the structural checks every well-formed elder must satisfy over
// its own section and its neighbours, plus the between-node agreement and
// address-space coverage checks. It never mutates anything it is handed;
// it is used by the test suite and by diagnostic dumps
// (package diagnostics).
package invariant

import (
	"fmt"
	"sort"

	"sectionrouting/address"
	"sectionrouting/chain"
)

// NodeView is a read-only snapshot of one node's section knowledge, as
// captured from a running statemachine.Member (via SectionElders/
// OurPrefix) or reconstructed from a diagnostics dump.
type NodeView struct {
	Name       address.Name
	IsElder    bool
	Our        chain.EldersInfo
	Neighbours map[string]chain.EldersInfo // keyed by Prefix.String(), as package chain does
}

// Violation names the rule that failed and the node and detail
// identifying the failure, for human-readable reporting.
type Violation struct {
	Node   address.Name
	Rule   string
	Detail string
}

func (v Violation) Error() string {
	return fmt.Sprintf("node %s: %s: %s", v.Node.String(), v.Rule, v.Detail)
}

// neighbourPrefixes returns the sorted Prefix values of n's Neighbours map.
func neighbourPrefixes(n NodeView) []address.Prefix {
	out := make([]address.Prefix, 0, len(n.Neighbours))
	for _, info := range n.Neighbours {
		out = append(out, info.Prefix)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// CheckNode runs the seven per-elder checks against a single NodeView.
// Non-elder (adult) views are only checked for having an empty neighbour
// set; the elder-specific checks do not apply to them.
func CheckNode(n NodeView, elderSize int) []Violation {
	if !n.IsElder {
		return checkAdult(n)
	}

	var violations []Violation
	add := func(rule, detail string) {
		violations = append(violations, Violation{Node: n.Name, Rule: rule, Detail: detail})
	}

	prefix := n.Our.Prefix

	// 1. P_N.matches(name(N))
	if !prefix.Matches(n.Name) {
		add("own-prefix-matches-name", fmt.Sprintf("prefix %s does not match own name", prefix))
	}

	// 2. |elders(P_N)| >= elder_size unless P_N is empty (genesis).
	if prefix.BitCount != 0 && len(n.Our.Elders) < elderSize {
		add("min-elder-count", fmt.Sprintf("elder set has %d members, want >= %d", len(n.Our.Elders), elderSize))
	}

	// 3. every name in elders(P_N) matches P_N.
	for _, elder := range n.Our.Elders {
		if !prefix.Matches(elder.Name()) {
			add("elder-name-in-prefix", fmt.Sprintf("elder %s does not match own prefix %s", elder.Name(), prefix))
		}
	}

	nbrs := neighbourPrefixes(n)

	// 4. no neighbour prefix compatible with our own.
	for _, nbr := range nbrs {
		if prefix.IsCompatible(nbr) {
			add("neighbour-not-compatible", fmt.Sprintf("neighbour prefix %s is compatible with own prefix %s", nbr, prefix))
		}
	}

	// 5. each neighbour section itself meets the elder-count and
	// name-membership checks.
	for _, info := range n.Neighbours {
		if len(info.Elders) < elderSize {
			add("neighbour-min-elder-count", fmt.Sprintf("neighbour %s has %d elders, want >= %d", info.Prefix, len(info.Elders), elderSize))
		}
		for _, elder := range info.Elders {
			if !info.Prefix.Matches(elder.Name()) {
				add("neighbour-elder-name-in-prefix", fmt.Sprintf("elder %s does not match neighbour prefix %s", elder.Name(), info.Prefix))
			}
		}
	}

	// 6. every neighbour prefix is an actual is_neighbour of ours.
	for _, nbr := range nbrs {
		if !prefix.IsNeighbour(nbr) {
			add("neighbour-relation", fmt.Sprintf("%s is not a neighbour of %s", nbr, prefix))
		}
	}

	// 7. every bit-flip of our own prefix is covered by the neighbour set.
	for i := 0; i < prefix.BitCount; i++ {
		flipped := prefix.WithFlippedBit(i)
		if !flipped.IsCoveredBy(nbrs) {
			add("neighbour-coverage", fmt.Sprintf("%s is not covered by known neighbours", flipped))
		}
	}

	return violations
}

// checkAdult enforces the one invariant that applies to non-elders: an
// adult holds no neighbour-section knowledge.
func checkAdult(n NodeView) []Violation {
	if len(n.Neighbours) == 0 {
		return nil
	}
	return []Violation{{
		Node:   n.Name,
		Rule:   "adult-has-no-neighbours",
		Detail: fmt.Sprintf("adult holds %d neighbour entries, want 0", len(n.Neighbours)),
	}}
}

// CheckBetweenNodes runs the between-node checks: every mention of a
// given prefix across all views must agree on (version, elder set), and
// the union of every elder's own prefix must tile the address space
// (cover it completely, with no overlap).
func CheckBetweenNodes(nodes []NodeView) []Violation {
	var violations []Violation

	seen := make(map[string]chain.EldersInfo)
	var order []string
	record := func(info chain.EldersInfo) {
		key := info.Prefix.String()
		existing, ok := seen[key]
		if !ok {
			seen[key] = info
			order = append(order, key)
			return
		}
		if existing.Version != info.Version || !sameElderSet(existing.Elders, info.Elders) {
			violations = append(violations, Violation{
				Rule:   "prefix-agreement",
				Detail: fmt.Sprintf("conflicting EldersInfo for prefix %s: version %d vs %d", info.Prefix, existing.Version, info.Version),
			})
		}
	}

	var ownPrefixes []address.Prefix
	for _, n := range nodes {
		if n.IsElder {
			record(n.Our)
			ownPrefixes = append(ownPrefixes, n.Our.Prefix)
		}
		for _, info := range n.Neighbours {
			record(info)
		}
	}

	if len(ownPrefixes) > 0 && !address.EmptyPrefix.IsCoveredBy(ownPrefixes) {
		violations = append(violations, Violation{
			Rule:   "address-space-coverage",
			Detail: "the union of every section's own prefix does not cover the full address space",
		})
	}
	for i, a := range ownPrefixes {
		for j, b := range ownPrefixes {
			if i < j && a.IsCompatible(b) {
				violations = append(violations, Violation{
					Rule:   "address-space-disjoint",
					Detail: fmt.Sprintf("sections %s and %s overlap", a, b),
				})
			}
		}
	}

	return violations
}

func sameElderSet(a, b []chain.P2pNode) bool {
	if len(a) != len(b) {
		return false
	}
	// Both EldersInfo.Elders are kept sorted by name (chain.NewEldersInfo),
	// so positional comparison is sufficient without re-sorting here.
	for i := range a {
		if a[i].Name() != b[i].Name() || !a[i].ConnInfo.Equal(b[i].ConnInfo) {
			return false
		}
	}
	return true
}

// CheckAll runs CheckNode over every view and then CheckBetweenNodes.
// The diagnostics invariant-check endpoint sees a single node and calls
// CheckNode alone.
func CheckAll(nodes []NodeView, elderSize int) []Violation {
	var violations []Violation
	for _, n := range nodes {
		violations = append(violations, CheckNode(n, elderSize)...)
	}
	violations = append(violations, CheckBetweenNodes(nodes)...)
	return violations
}
