// Package specificity implements the per-call specificity analyzer of
// spec.md §4.C: the applicability filter, the pairwise partial order over
// candidates, minimal-element extraction, and the optional tie-break
// cascade.
//
// Grounded on the teacher's internal/types/unification.go, whose pairwise
// structural walk over two types (checking each component in turn and
// failing fast) is generalized here from "do these two types unify" to
// "is every parameter of A a subtype of the corresponding parameter of B".
package specificity

import (
	"sort"

	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
)

// Outcome is the three-way result named in spec.md §4.C.
type Outcome int

const (
	NoMatch Outcome = iota
	Unique
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no_match"
	}
}

// RejectionReason explains why a candidate was not selected, per spec.md §3.
type RejectionReason int

const (
	TypeMismatch RejectionReason = iota
	InsufficientSpecificity
	AmbiguousWithOther
	GenericConstraintViolation
	CapabilityMismatch
)

func (r RejectionReason) String() string {
	switch r {
	case TypeMismatch:
		return "type_mismatch"
	case InsufficientSpecificity:
		return "insufficient_specificity"
	case AmbiguousWithOther:
		return "ambiguous_with_other"
	case GenericConstraintViolation:
		return "generic_constraint_violation"
	case CapabilityMismatch:
		return "capability_mismatch"
	default:
		return "unknown"
	}
}

// Rejection is the CandidatePair/RejectionInfo record of spec.md §3.
type Rejection struct {
	Impl            *signature.Implementation
	Reason          RejectionReason
	ParameterIndex  int
	Expected        registry.TypeId
	Actual          registry.TypeId
	ConflictingImpl *signature.Implementation
}

// TieBreakMode selects the §4.C step-4 policy. Strict is the default and
// the spec.md §9 open question's mandated default: any true tie surfaces
// as ambiguous. Relaxed applies the cascade (caller module, then stricter
// effects, then lexical span order).
type TieBreakMode int

const (
	Strict TieBreakMode = iota
	Relaxed
)

// Policy configures tie-breaking for one analysis.
type Policy struct {
	Mode         TieBreakMode
	CallerModule string
}

// Result is the outcome of one call's specificity analysis.
type Result struct {
	Outcome    Outcome
	Unique     *signature.Implementation
	Ambiguous  []*signature.Implementation
	Rejections []Rejection
}

// AnalyzeCall implements spec.md §4.C steps 1-4. impls must already be in
// descending-specificity order (as SignatureGroup.Implementations is
// maintained by the signature analyzer); the result does not depend on any
// other ordering, satisfying the determinism property of spec.md §8.
func AnalyzeCall(reg *registry.Registry, impls []*signature.Implementation, argTypes []registry.TypeId, policy Policy) Result {
	applicable, rejections := filterApplicable(reg, impls, argTypes)
	if len(applicable) == 0 {
		return Result{Outcome: NoMatch, Rejections: rejections}
	}

	minimal := minimalElements(reg, applicable)

	switch len(minimal) {
	case 0:
		// Structurally unreachable: every nonempty applicable set has at
		// least one minimal element under a well-founded partial order.
		return Result{Outcome: NoMatch, Rejections: rejections}
	case 1:
		return Result{Outcome: Unique, Unique: minimal[0]}
	default:
		if policy.Mode == Relaxed {
			if winner := tieBreak(minimal, policy); winner != nil {
				return Result{Outcome: Unique, Unique: winner}
			}
		}
		ambiguousRejections := make([]Rejection, 0, len(minimal)*(len(minimal)-1))
		for _, a := range minimal {
			for _, b := range minimal {
				if a == b {
					continue
				}
				ambiguousRejections = append(ambiguousRejections, Rejection{
					Impl:            a,
					Reason:          AmbiguousWithOther,
					ConflictingImpl: b,
				})
			}
		}
		return Result{Outcome: Ambiguous, Ambiguous: minimal, Rejections: ambiguousRejections}
	}
}

// filterApplicable retains implementations whose arity matches and whose
// every parameter is a supertype of (or equal to) the call's argument type
// at that position (spec.md §4.C step 1).
func filterApplicable(reg *registry.Registry, impls []*signature.Implementation, argTypes []registry.TypeId) ([]*signature.Implementation, []Rejection) {
	var applicable []*signature.Implementation
	var rejections []Rejection

	for _, impl := range impls {
		if impl.Arity() != len(argTypes) {
			rejections = append(rejections, Rejection{
				Impl:   impl,
				Reason: TypeMismatch,
			})
			continue
		}
		ok := true
		for i, argType := range argTypes {
			if !reg.IsSubtype(argType, impl.ParamTypes[i]) {
				rejections = append(rejections, Rejection{
					Impl:           impl,
					Reason:         TypeMismatch,
					ParameterIndex: i,
					Expected:       impl.ParamTypes[i],
					Actual:         argType,
				})
				ok = false
				break
			}
		}
		if ok {
			applicable = append(applicable, impl)
		}
	}
	return applicable, rejections
}

// leq implements A ≼ B: every parameter of A is a subtype of the
// corresponding parameter of B (spec.md §4.C step 2).
func leq(reg *registry.Registry, a, b *signature.Implementation) bool {
	for i := range a.ParamTypes {
		if !reg.IsSubtype(a.ParamTypes[i], b.ParamTypes[i]) {
			return false
		}
	}
	return true
}

// lt implements A ≺ B: A ≼ B and not B ≼ A.
func lt(reg *registry.Registry, a, b *signature.Implementation) bool {
	return leq(reg, a, b) && !leq(reg, b, a)
}

// minimalElements returns the applicable implementations not dominated by
// any other applicable implementation (spec.md §4.C step 3).
func minimalElements(reg *registry.Registry, applicable []*signature.Implementation) []*signature.Implementation {
	var minimal []*signature.Implementation
	for _, candidate := range applicable {
		dominated := false
		for _, other := range applicable {
			if other == candidate {
				continue
			}
			if lt(reg, other, candidate) {
				dominated = true
				break
			}
		}
		if !dominated {
			minimal = append(minimal, candidate)
		}
	}
	return minimal
}

// tieBreak applies the cascade from spec.md §4.C step 4, in order: prefer
// the caller's own module, then the strictest (largest) effect set, then
// the earliest source span (file, then line, column and offset of its
// start), with the stable id as the last key. Returns nil if the cascade
// still cannot produce a single winner.
func tieBreak(minimal []*signature.Implementation, policy Policy) *signature.Implementation {
	candidates := append([]*signature.Implementation(nil), minimal...)

	if policy.CallerModule != "" {
		var local []*signature.Implementation
		for _, c := range candidates {
			if c.Function.Module == policy.CallerModule {
				local = append(local, c)
			}
		}
		if len(local) == 1 {
			return local[0]
		}
		if len(local) > 1 {
			candidates = local
		}
	}

	maxEffects := -1
	for _, c := range candidates {
		if len(c.Effects) > maxEffects {
			maxEffects = len(c.Effects)
		}
	}
	var strictest []*signature.Implementation
	for _, c := range candidates {
		if len(c.Effects) == maxEffects {
			strictest = append(strictest, c)
		}
	}
	if len(strictest) == 1 {
		return strictest[0]
	}
	candidates = strictest

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Span.Start, candidates[j].Span.Start
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		return candidates[i].Function.StableID < candidates[j].Function.StableID
	})
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}
