// Package dispatchtree implements the dispatch-table generator of
// spec.md §4.E: for a signature group that is not fully static, build an
// exact-match table plus a decision tree over parameter-type predicates.
//
// Grounded on the teacher's internal/dtree/decision_tree.go, whose
// matrix-based compilation of match arms (group rows by the pattern in
// one column, specialize, recurse) is generalized here from value
// patterns to type predicates, and from an n-way switch per column to a
// binary true/false branch per predicate, per the runtime-lookup walk
// named in spec.md §4.F.
package dispatchtree

import (
	"hash/fnv"
	"sort"

	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
	"github.com/janus-lang/janus-sub003/internal/specificity"
)

// DefaultMaxExactMatches is the spec.md §4.E default cap.
const DefaultMaxExactMatches = 10000

// ExactMatch is one row of the exact-match table.
type ExactMatch struct {
	TypeCombinationHash uint64
	Impl                *signature.Implementation
}

// PredicateKind selects which test a Predicate performs.
type PredicateKind int

const (
	BloomPredicate PredicateKind = iota
	TypeEqualsPredicate
	TypeInSetPredicate
	// TypeSubtypeOfPredicate tests arg against a declared parameter type by
	// the registry's subtype relation rather than identity, so a proper
	// subtype of Type still takes the true branch (spec.md §4.F invariant).
	TypeSubtypeOfPredicate
)

func (k PredicateKind) String() string {
	switch k {
	case TypeEqualsPredicate:
		return "type_equals"
	case TypeInSetPredicate:
		return "type_in_set"
	case TypeSubtypeOfPredicate:
		return "type_subtype_of"
	default:
		return "bloom"
	}
}

// Predicate tests the call's argument TypeId at ParamIndex.
type Predicate struct {
	Kind       PredicateKind
	ParamIndex int
	Type       registry.TypeId
	TypeSet    []registry.TypeId
	Bloom      uint32
}

// Evaluate reports whether argTypes satisfies the predicate under reg's
// subtype lattice. TypeSubtypeOf and TypeInSet test subtyping, so a call
// argument whose type is a proper subtype of a declared parameter type is
// still a match; TypeEquals tests identity only, and the bloom kind tests
// the argument's bloom bit against the predicate's mask.
func (p Predicate) Evaluate(reg *registry.Registry, argTypes []registry.TypeId) bool {
	if p.ParamIndex >= len(argTypes) {
		return false
	}
	arg := argTypes[p.ParamIndex]
	switch p.Kind {
	case TypeSubtypeOfPredicate:
		return reg.IsSubtype(arg, p.Type)
	case TypeEqualsPredicate:
		return arg == p.Type
	case TypeInSetPredicate:
		for _, t := range p.TypeSet {
			if reg.IsSubtype(arg, t) {
				return true
			}
		}
		return false
	default:
		return p.Bloom&bloomBit(arg) == bloomBit(arg)
	}
}

func bloomBit(t registry.TypeId) uint32 {
	h := fnv.New32a()
	var b [4]byte
	b[0] = byte(t)
	b[1] = byte(t >> 8)
	b[2] = byte(t >> 16)
	b[3] = byte(t >> 24)
	h.Write(b[:])
	return uint32(1) << (h.Sum32() % 32)
}

// Node is the DecisionTree variant of spec.md §4.E/§4.F.
type Node interface {
	isNode()
}

// LeafNode yields a single implementation.
type LeafNode struct {
	Impl *signature.Implementation
}

func (n *LeafNode) isNode() {}

// FailNode means no implementation can be reached down this branch.
type FailNode struct{}

func (n *FailNode) isNode() {}

// BranchNode evaluates Predicate and follows TrueBranch or FalseBranch.
type BranchNode struct {
	Predicate   Predicate
	TrueBranch  Node
	FalseBranch Node
}

func (n *BranchNode) isNode() {}

// Metadata is the spec.md §4.E.3 summary of a generated table.
type Metadata struct {
	TotalMemoryBytes     int
	ExactMatchCoverage   float64
	MaxTreeDepth         int
	CacheEfficiencyEstimate float64
}

// Table is the generated dispatch table for one non-static signature group.
type Table struct {
	Exact    []ExactMatch
	Tree     Node
	Metadata Metadata
}

// Generator builds Tables for signature groups, grounded on the
// registry's subtype relation and the specificity analyzer's
// applicability rule.
type Generator struct {
	reg             *registry.Registry
	maxExactMatches int
}

// New creates a Generator with the spec.md §4.E default cap.
func New(reg *registry.Registry) *Generator {
	return &Generator{reg: reg, maxExactMatches: DefaultMaxExactMatches}
}

// WithMaxExactMatches overrides the exact-match table cap.
func (g *Generator) WithMaxExactMatches(n int) *Generator {
	g.maxExactMatches = n
	return g
}

// Generate builds the dispatch table for group under policy.
func (g *Generator) Generate(group *signature.SignatureGroup, policy specificity.Policy) *Table {
	exact := g.buildExactMatches(group, policy)
	arity := 0
	if len(group.Implementations) > 0 {
		arity = group.Implementations[0].Arity()
	}
	tree := g.compileNode(group.Implementations, 0, arity)

	depth := treeDepth(tree)
	coverage := 0.0
	if len(group.Implementations) > 0 {
		coverage = float64(len(exact)) / float64(len(group.Implementations))
	}
	return &Table{
		Exact: exact,
		Tree:  tree,
		Metadata: Metadata{
			TotalMemoryBytes:        len(exact)*24 + countNodes(tree)*32,
			ExactMatchCoverage:      coverage,
			MaxTreeDepth:            depth,
			CacheEfficiencyEstimate: 1.0 / float64(1+depth),
		},
	}
}

// buildExactMatches emits one ExactMatch per implementation whose own
// parameter sequence resolves unambiguously, capped and sorted ascending
// by type-combination hash for binary search (spec.md §4.E.1).
func (g *Generator) buildExactMatches(group *signature.SignatureGroup, policy specificity.Policy) []ExactMatch {
	var exact []ExactMatch
	for _, impl := range group.Implementations {
		result := specificity.AnalyzeCall(g.reg, group.Implementations, impl.ParamTypes, policy)
		if result.Outcome != specificity.Unique {
			continue
		}
		exact = append(exact, ExactMatch{
			TypeCombinationHash: typeCombinationHash(impl.ParamTypes),
			Impl:                result.Unique,
		})
		if len(exact) >= g.maxExactMatches {
			break
		}
	}
	sort.Slice(exact, func(i, j int) bool { return exact[i].TypeCombinationHash < exact[j].TypeCombinationHash })
	return exact
}

func typeCombinationHash(types []registry.TypeId) uint64 {
	h := fnv.New64a()
	for _, t := range types {
		var b [4]byte
		b[0], b[1], b[2], b[3] = byte(t), byte(t>>8), byte(t>>16), byte(t>>24)
		h.Write(b[:])
	}
	return h.Sum64()
}

// compileNode recursively partitions impls parameter by parameter, per
// spec.md §4.E.2. impls must already be in descending-specificity order.
//
// At each parameter position, the group keyed by the most specific
// declared type is tested first via a subtype-of predicate (spec.md §4.F
// invariant: a call argument that is a proper subtype of a selected
// impl's declared parameter still reaches that impl). Ordering branches
// by descending specificity, rather than by which declared type has the
// most implementations, is what lets a Puppy argument reach speak(Dog)
// before it would ever fall through to the more general speak(Animal).
func (g *Generator) compileNode(impls []*signature.Implementation, paramIndex, arity int) Node {
	if len(impls) == 0 {
		return &FailNode{}
	}
	if len(impls) == 1 {
		return &LeafNode{Impl: impls[0]}
	}
	if paramIndex >= arity {
		return &LeafNode{Impl: impls[0]}
	}

	groups := make(map[registry.TypeId][]*signature.Implementation)
	var order []registry.TypeId
	for _, impl := range impls {
		t := impl.ParamTypes[paramIndex]
		if _, ok := groups[t]; !ok {
			order = append(order, t)
		}
		groups[t] = append(groups[t], impl)
	}

	if len(groups) == 1 {
		return g.compileNode(impls, paramIndex+1, arity)
	}

	sort.Slice(order, func(i, j int) bool {
		si, sj := g.reg.SpecificityScore(order[i]), g.reg.SpecificityScore(order[j])
		if si != sj {
			return si > sj
		}
		return order[i] < order[j]
	})

	dominant := order[0]
	matched := groups[dominant]
	var rest []*signature.Implementation
	for _, t := range order[1:] {
		rest = append(rest, groups[t]...)
	}

	return &BranchNode{
		Predicate:   Predicate{Kind: TypeSubtypeOfPredicate, ParamIndex: paramIndex, Type: dominant},
		TrueBranch:  g.compileNode(matched, paramIndex+1, arity),
		FalseBranch: g.compileNode(rest, paramIndex, arity),
	}
}

func treeDepth(n Node) int {
	switch t := n.(type) {
	case *BranchNode:
		a, b := treeDepth(t.TrueBranch), treeDepth(t.FalseBranch)
		if a > b {
			return a + 1
		}
		return b + 1
	default:
		return 0
	}
}

func countNodes(n Node) int {
	switch t := n.(type) {
	case *BranchNode:
		return 1 + countNodes(t.TrueBranch) + countNodes(t.FalseBranch)
	case nil:
		return 0
	default:
		return 1
	}
}
