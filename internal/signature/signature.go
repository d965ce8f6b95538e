// Package signature implements the signature analyzer of spec.md §4.B:
// grouping implementations by (name, arity), tracking per-group sealing,
// and rejecting only exact duplicate registrations.
//
// Grounded on the teacher's internal/types/instances.go, whose InstanceEnv
// performs the same shape of job for type-class instances (coherence
// checking on Add, keyed lookup, canonical key construction) — generalized
// here from single-type-head instances to full parameter-type sequences,
// and from a flat map to specificity-ordered groups.
package signature

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/sid"
)

// Effect is a named capability an implementation may require, surfaced in
// diagnostics but never enforced by this package (spec.md §1 Non-goals).
type Effect string

// FunctionId identifies a single declared implementation. The StableID is
// derived from the declaration's source span the way the teacher's
// internal/sid package derives stable ids for AST nodes: a definition keeps
// the same identity as long as its file, span and kind are unchanged; a
// definition at a different span, even in the same file, is a different
// identity.
type FunctionId struct {
	Name     string
	Module   string
	StableID sid.SID
}

func (f FunctionId) String() string {
	return fmt.Sprintf("%s::%s#%s", f.Module, f.Name, f.StableID)
}

// NewFunctionId derives a FunctionId for a declaration at the given span.
func NewFunctionId(module, name string, span ast.Span) FunctionId {
	s := sid.NewSID(span.Start.File, span.Start.Offset, span.End.Offset, "impl", nil)
	return FunctionId{Name: name, Module: module, StableID: s}
}

// Implementation is a single multimethod definition (spec.md §3).
type Implementation struct {
	Function       FunctionId
	ParamTypes     []registry.TypeId
	ReturnType     registry.TypeId
	Effects        []Effect
	Span           ast.Span
	SpecificityRank uint32
}

// Arity returns the number of declared parameters.
func (impl *Implementation) Arity() int { return len(impl.ParamTypes) }

// SignatureKey is (name_hash, arity), the grouping key from spec.md §3.
type SignatureKey struct {
	NameHash uint64
	Arity    int
}

func keyFor(name string, arity int) SignatureKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return SignatureKey{NameHash: h.Sum64(), Arity: arity}
}

// SignatureGroup collects every implementation sharing a (name, arity).
// Implementations are maintained in descending specificity order.
type SignatureGroup struct {
	Key             SignatureKey
	Name            string
	Implementations []*Implementation
	IsSealed        bool
}

// Stats summarizes the whole analyzer, per spec.md §4.B.
type Stats struct {
	TotalGroups           int
	SealedGroups          int
	MaxImplsPerGroup      int
}

// Analyzer owns every signature group registered in a compilation session.
type Analyzer struct {
	reg    *registry.Registry
	groups map[SignatureKey]*SignatureGroup
	// seen tracks (key, function identity, param-type sequence) triples
	// already registered, to reject only exact duplicates (spec.md §4.B).
	seen map[string]bool
}

// NewAnalyzer creates a signature analyzer over the given type registry.
func NewAnalyzer(reg *registry.Registry) *Analyzer {
	return &Analyzer{
		reg:    reg,
		groups: make(map[SignatureKey]*SignatureGroup),
		seen:   make(map[string]bool),
	}
}

// DuplicateImplementationError is returned when the same function identity
// and parameter-type sequence are registered twice (spec.md §7).
type DuplicateImplementationError struct {
	Function   FunctionId
	ParamTypes []registry.TypeId
}

func (e *DuplicateImplementationError) Error() string {
	return fmt.Sprintf("duplicate implementation: %s with parameter types %v", e.Function, e.ParamTypes)
}

// AddImplementation registers a new implementation, appending it to its
// signature group and re-sorting the group by descending specificity.
// Only an exact duplicate — same function identity AND same parameter-type
// sequence — is rejected; distinct modules may register identical
// signatures (module-precedence is resolved at dispatch time, §4.C).
func (a *Analyzer) AddImplementation(name, module string, paramTypes []registry.TypeId, returnType registry.TypeId, effects []Effect, span ast.Span) (FunctionId, error) {
	fid := NewFunctionId(module, name, span)
	dupKey := dedupeKey(fid, paramTypes)
	if a.seen[dupKey] {
		return fid, &DuplicateImplementationError{Function: fid, ParamTypes: paramTypes}
	}

	var rank uint32
	for _, pt := range paramTypes {
		rank += a.reg.SpecificityScore(pt)
	}

	impl := &Implementation{
		Function:        fid,
		ParamTypes:      append([]registry.TypeId(nil), paramTypes...),
		ReturnType:      returnType,
		Effects:         append([]Effect(nil), effects...),
		Span:            span,
		SpecificityRank: rank,
	}

	key := keyFor(name, len(paramTypes))
	group, ok := a.groups[key]
	if !ok {
		group = &SignatureGroup{Key: key, Name: name}
		a.groups[key] = group
	}
	group.Implementations = append(group.Implementations, impl)
	sortBySpecificityDesc(group.Implementations)
	group.IsSealed = a.computeSealed(group)

	a.seen[dupKey] = true
	return fid, nil
}

func dedupeKey(fid FunctionId, paramTypes []registry.TypeId) string {
	return fmt.Sprintf("%s|%v", fid, paramTypes)
}

// sortBySpecificityDesc orders implementations most-specific first. Ties
// are broken by a stable, input-independent key (module then stable id) so
// the order never depends on map/slice iteration happenstance (spec.md §5
// ordering guarantees).
func sortBySpecificityDesc(impls []*Implementation) {
	sort.SliceStable(impls, func(i, j int) bool {
		if impls[i].SpecificityRank != impls[j].SpecificityRank {
			return impls[i].SpecificityRank > impls[j].SpecificityRank
		}
		if impls[i].Function.Module != impls[j].Function.Module {
			return impls[i].Function.Module < impls[j].Function.Module
		}
		return impls[i].Function.StableID < impls[j].Function.StableID
	})
}

// computeSealed reports whether every implementation's parameter types are
// themselves sealed, per spec.md §3's definition of a sealed group.
func (a *Analyzer) computeSealed(group *SignatureGroup) bool {
	for _, impl := range group.Implementations {
		for _, pt := range impl.ParamTypes {
			if !a.reg.IsSealed(pt) {
				return false
			}
		}
	}
	return true
}

// SealGroup explicitly seals a (name, arity) group, per spec.md §4.B. A
// group computed as sealed already (because every implementation's
// parameter types are sealed) can also be sealed without this call; this
// method additionally allows an operator to seal a group whose open
// parameter types are known, out of band, to have no further subtypes.
func (a *Analyzer) SealGroup(name string, arity int) {
	key := keyFor(name, arity)
	if group, ok := a.groups[key]; ok {
		group.IsSealed = true
	}
}

// Group returns the signature group for (name, arity), if any.
func (a *Analyzer) Group(name string, arity int) (*SignatureGroup, bool) {
	g, ok := a.groups[keyFor(name, arity)]
	return g, ok
}

// Stats computes the summary statistics named in spec.md §4.B.
func (a *Analyzer) Stats() Stats {
	var s Stats
	s.TotalGroups = len(a.groups)
	for _, g := range a.groups {
		if g.IsSealed {
			s.SealedGroups++
		}
		if len(g.Implementations) > s.MaxImplsPerGroup {
			s.MaxImplsPerGroup = len(g.Implementations)
		}
	}
	return s
}

// Groups returns every signature group, sorted by name then arity for
// deterministic iteration by callers (the CLI's analyze command walks the
// groups in this order).
func (a *Analyzer) Groups() []*SignatureGroup {
	out := make([]*SignatureGroup, 0, len(a.groups))
	for _, g := range a.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key.Arity < out[j].Key.Arity
	})
	return out
}
