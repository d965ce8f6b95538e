// Package lookup implements the runtime dispatch-table lookup of
// spec.md §4.F "Runtime lookup (G)": walk a decision tree when present,
// else fall back to a subtype-aware linear scan over compressed entries.
//
// Grounded on the teacher's internal/dtree tree-walk evaluator idiom
// (switch on node type, recurse into the branch selected by the
// discriminant), carried over unchanged in shape since the walk itself
// is independent of what a leaf or predicate represents.
package lookup

import (
	"github.com/janus-lang/janus-sub003/internal/compress"
	"github.com/janus-lang/janus-sub003/internal/dispatchtree"
	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
)

// Lookup resolves argTypes against tree if present under reg's subtype
// lattice, falling back to a linear scan of table.Entries.
//
// Invariant (spec.md §4.F): for any call whose specificity analysis
// returns unique(I), Lookup with the same argument types must return the
// implementation referenced by I -- including when the call's argument
// types are proper subtypes of I's declared parameters, since multiple
// dispatch resolves on runtime types. Table generation is responsible
// for the tree's shape; Lookup only walks what it is given.
func Lookup(reg *registry.Registry, tree dispatchtree.Node, table *compress.Table, argTypes []registry.TypeId) (*signature.Implementation, bool) {
	if tree != nil {
		if impl, ok := WalkTree(reg, tree, argTypes); ok {
			return impl, true
		}
	}
	return scanEntries(reg, table, argTypes)
}

// WalkTree follows the decision tree from its root, evaluating each
// branch predicate against argTypes under reg's subtype relation, until a
// leaf or fail node is reached (spec.md §4.F.1).
func WalkTree(reg *registry.Registry, node dispatchtree.Node, argTypes []registry.TypeId) (*signature.Implementation, bool) {
	for {
		switch n := node.(type) {
		case *dispatchtree.LeafNode:
			return n.Impl, true
		case *dispatchtree.FailNode:
			return nil, false
		case *dispatchtree.BranchNode:
			if n.Predicate.Evaluate(reg, argTypes) {
				node = n.TrueBranch
			} else {
				node = n.FalseBranch
			}
		default:
			return nil, false
		}
	}
}

// scanEntries implements spec.md §4.F.2 as a subtype-aware linear scan:
// an entry's declared pattern matches argTypes when each argument type is
// a subtype of (or equal to) the pattern's type at the same position, per
// the same invariant WalkTree upholds. The per-entry bloom filter was
// built over each pattern's own exact types, so it cannot rule out a
// query whose argument types are proper subtypes of the pattern (their
// hash bits differ from the pattern's); it is therefore not used to skip
// entries here. Among every matching entry, the most specific pattern
// (by summed per-parameter specificity) wins; of entries with equal sums,
// the first in table order is kept.
func scanEntries(reg *registry.Registry, table *compress.Table, argTypes []registry.TypeId) (*signature.Implementation, bool) {
	if table == nil {
		return nil, false
	}
	var best *signature.Implementation
	bestScore := int64(-1)
	for _, entry := range table.Entries {
		pattern := entry.Delta.Decode()
		if !subtypeMatch(reg, pattern, argTypes) {
			continue
		}
		if score := patternSpecificity(reg, pattern); score > bestScore {
			best, bestScore = table.Impls.Implementation(entry.ImplIndex), score
		}
	}
	return best, best != nil
}

func subtypeMatch(reg *registry.Registry, pattern, argTypes []registry.TypeId) bool {
	if len(pattern) != len(argTypes) {
		return false
	}
	for i := range pattern {
		if !reg.IsSubtype(argTypes[i], pattern[i]) {
			return false
		}
	}
	return true
}

func patternSpecificity(reg *registry.Registry, pattern []registry.TypeId) int64 {
	var total int64
	for _, t := range pattern {
		total += int64(reg.SpecificityScore(t))
	}
	return total
}
