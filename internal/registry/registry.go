// Package registry implements the type registry and subtype lattice
// described in spec.md §4.A: canonical TypeIds, their kinds, sub/supertype
// queries, and the specificity scores the specificity analyzer (§4.C) and
// dispatch-table generator (§4.E) build on.
//
// Grounded on the teacher's internal/types/types.go (Type interface, TCon)
// and internal/types/kinds.go (small closed Kind interface with an
// unexported tag method) — generalized here from a structural type system
// to the registry's nominal DAG of TypeIds.
package registry

import "fmt"

// Kind classifies a registered type. The five kinds named in spec.md §3.
type Kind int

const (
	// Primitive types have no proper subtypes and are always sealed leaves.
	Primitive Kind = iota
	// TableSealed types have a fully known, closed set of subtypes.
	TableSealed
	// TableOpen types may gain subtypes the registry has not yet seen.
	TableOpen
	// Variant types are sum types; their constructors are tracked as
	// immediate subtypes.
	Variant
	// Generic types stand for an unresolved type parameter.
	Generic
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case TableSealed:
		return "table_sealed"
	case TableOpen:
		return "table_open"
	case Variant:
		return "variant"
	case Generic:
		return "generic"
	default:
		return "unknown"
	}
}

// sealed reports whether a value of this kind can appear as the parameter
// type of a sealed signature group (spec.md §4.B): no open subtypes can
// ever appear underneath it.
func (k Kind) sealed() bool {
	return k == Primitive || k == TableSealed
}

// TypeId is an interned, compact integer handle for a registered type.
type TypeId uint32

// AnyTypeId is the universal root of the subtype DAG. Every type registered
// without explicit supertypes is attached underneath it.
const AnyTypeId TypeId = 0

type typeInfo struct {
	id          TypeId
	name        string
	kind        Kind
	supertypes  []TypeId
	ancestors   *bitset // includes self
	specificity uint32
}

// Registry holds the canonical set of TypeIds for one compilation session.
// Per spec.md §5, a Registry is never shared across sessions by aliasing.
type Registry struct {
	byName map[string]TypeId
	types  []*typeInfo
}

// New creates a registry pre-seeded with the universal root type "Any".
func New() *Registry {
	r := &Registry{byName: make(map[string]TypeId)}
	r.types = append(r.types, &typeInfo{
		id:         AnyTypeId,
		name:       "Any",
		kind:       TableOpen,
		supertypes: nil,
		ancestors:  newBitsetWith(uint32(AnyTypeId)),
	})
	r.byName["Any"] = AnyTypeId
	return r
}

func newBitsetWith(ids ...uint32) *bitset {
	b := newBitset()
	for _, id := range ids {
		b.set(id)
	}
	return b
}

// Register interns a new type. Supertypes must already be registered
// (primitives are registered first and are always sealed leaves, per
// spec.md §4.A). Registering a name that is already registered returns the
// existing id together with an error, whatever kind and supertypes are
// passed.
func (r *Registry) Register(name string, kind Kind, supertypes []string) (TypeId, error) {
	if existing, ok := r.byName[name]; ok {
		return existing, fmt.Errorf("registry: type %q already registered", name)
	}

	var superIds []TypeId
	ancestors := newBitset()
	if len(supertypes) == 0 && name != "Any" {
		superIds = []TypeId{AnyTypeId}
	}
	for _, sname := range supertypes {
		sid, ok := r.byName[sname]
		if !ok {
			return 0, fmt.Errorf("registry: unknown supertype %q for %q", sname, name)
		}
		if r.types[sid].kind == Primitive {
			return 0, fmt.Errorf("registry: primitive type %q cannot have subtypes (registering %q)", sname, name)
		}
		superIds = append(superIds, sid)
	}
	for _, sid := range superIds {
		ancestors = ancestors.or(r.types[sid].ancestors)
	}

	id := TypeId(len(r.types))
	ancestors.set(uint32(id))

	info := &typeInfo{
		id:         id,
		name:       name,
		kind:       kind,
		supertypes: superIds,
		ancestors:  ancestors,
	}
	info.specificity = computeSpecificity(info)

	r.types = append(r.types, info)
	r.byName[name] = id
	return id, nil
}

// computeSpecificity derives the monotone specificity score named in
// spec.md §3: more specific types (deeper in the DAG, sealed/primitive
// leaves) score higher than open parents.
func computeSpecificity(info *typeInfo) uint32 {
	var kindWeight uint32
	switch info.kind {
	case Primitive:
		kindWeight = 3
	case TableSealed:
		kindWeight = 3
	case Variant:
		kindWeight = 2
	case TableOpen:
		kindWeight = 1
	case Generic:
		kindWeight = 0
	}
	depth := uint32(info.ancestors.popcount())
	return kindWeight*1000 + depth*10
}

// Lookup resolves a registered type name to its TypeId.
func (r *Registry) Lookup(name string) (TypeId, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// MustLookup is a convenience for callers (typically tests) that already
// know the name is registered.
func (r *Registry) MustLookup(name string) TypeId {
	id, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("registry: unknown type %q", name))
	}
	return id
}

// Name returns the declared name of a TypeId.
func (r *Registry) Name(t TypeId) string {
	if int(t) >= len(r.types) {
		return fmt.Sprintf("<invalid:%d>", t)
	}
	return r.types[t].name
}

// KindOf returns the kind of a TypeId.
func (r *Registry) KindOf(t TypeId) Kind {
	if int(t) >= len(r.types) {
		return Generic
	}
	return r.types[t].kind
}

// IsSealed reports whether t can never gain new subtypes.
func (r *Registry) IsSealed(t TypeId) bool {
	return r.KindOf(t).sealed()
}

// IsSubtype reports whether a is a subtype of b (reflexive and transitive,
// per spec.md §8 property 1). O(1) amortized via the ancestor bitset
// computed at registration.
func (r *Registry) IsSubtype(a, b TypeId) bool {
	if int(a) >= len(r.types) || int(b) >= len(r.types) {
		return false
	}
	return r.types[a].ancestors.test(uint32(b))
}

// SpecificityScore returns the precomputed specificity score of t.
func (r *Registry) SpecificityScore(t TypeId) uint32 {
	if int(t) >= len(r.types) {
		return 0
	}
	return r.types[t].specificity
}

// Supertypes returns the immediate declared supertypes of t.
func (r *Registry) Supertypes(t TypeId) []TypeId {
	if int(t) >= len(r.types) {
		return nil
	}
	out := make([]TypeId, len(r.types[t].supertypes))
	copy(out, r.types[t].supertypes)
	return out
}

// Len returns the number of registered types, including Any.
func (r *Registry) Len() int {
	return len(r.types)
}
