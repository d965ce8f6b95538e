// Package diagnostic implements the diagnostic reporter of spec.md §4.H:
// the two structured error shapes emitted when specificity analysis
// cannot resolve a call, plus a pure rendering function.
//
// Grounded on the teacher's internal/errors package (codes.go's taxonomy
// of stable phase-prefixed codes, report.go's Report/Fix shape, and
// json_encoder.go's schema-versioned encoding), generalized from the
// teacher's compiler-phase error codes to the dispatch codes named in
// spec.md §7 (S1101, S1102, NPU0xx).
package diagnostic

import (
	"encoding/json"
	"fmt"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
	"github.com/janus-lang/janus-sub003/internal/specificity"
)

// Schema is the stable schema tag carried by every diagnostic record.
const Schema = "janus.dispatch.diagnostic/v1"

// Error codes named in spec.md §7.
const (
	CodeAmbiguousDispatch       = "S1101"
	CodeNoMatchingImplementation = "S1102"
	CodeCircularDependency      = "NPU001"
	CodeCacheCorruption         = "NPU002"
)

// Fix is a suggested remediation, mirroring the teacher's errors.Fix.
type Fix struct {
	Suggestion string `json:"suggestion"`
}

// Relation is the per-parameter comparison in a pairwise specificity
// analysis (spec.md §4.H).
type Relation int

const (
	Unrelated Relation = iota
	Identical
	AMoreSpecific
	BMoreSpecific
)

func (r Relation) String() string {
	switch r {
	case Identical:
		return "identical"
	case AMoreSpecific:
		return "A<:B"
	case BMoreSpecific:
		return "B<:A"
	default:
		return "unrelated"
	}
}

// PairwiseAnalysis compares two conflicting implementations parameter by
// parameter and gives an aggregate verdict.
type PairwiseAnalysis struct {
	A           signature.FunctionId `json:"a"`
	B           signature.FunctionId `json:"b"`
	PerParam    []Relation           `json:"per_param"`
	Verdict     string               `json:"verdict"`
}

func analyzePair(reg *registry.Registry, a, b *signature.Implementation) PairwiseAnalysis {
	rels := make([]Relation, len(a.ParamTypes))
	for i := range a.ParamTypes {
		at, bt := a.ParamTypes[i], b.ParamTypes[i]
		switch {
		case at == bt:
			rels[i] = Identical
		case reg.IsSubtype(at, bt):
			rels[i] = AMoreSpecific
		case reg.IsSubtype(bt, at):
			rels[i] = BMoreSpecific
		default:
			rels[i] = Unrelated
		}
	}
	return PairwiseAnalysis{A: a.Function, B: b.Function, PerParam: rels, Verdict: verdict(rels)}
}

func verdict(rels []Relation) string {
	allIdentical := true
	for _, r := range rels {
		if r != Identical {
			allIdentical = false
		}
		if r == Unrelated {
			return "incomparable"
		}
	}
	if allIdentical {
		return "identical_signatures"
	}
	return "no_total_order"
}

// AmbiguousDispatch is the structured record of spec.md §4.H for an
// ambiguous call.
type AmbiguousDispatch struct {
	Schema              string              `json:"schema"`
	Code                string              `json:"code"`
	SignatureName       string              `json:"signature_name"`
	ArgTypes            []registry.TypeId   `json:"arg_types"`
	CallSite            ast.Span            `json:"call_site"`
	ConflictingImpls    []signature.FunctionId `json:"conflicting_impls"`
	SpecificityAnalysis []PairwiseAnalysis  `json:"specificity_analysis"`
	SuggestedFixes      []Fix               `json:"suggested_fixes"`
}

// NoMatchingImplementation is the structured record of spec.md §4.H for
// an unresolvable call.
type NoMatchingImplementation struct {
	Schema            string                  `json:"schema"`
	Code              string                  `json:"code"`
	SignatureName     string                  `json:"signature_name"`
	ArgTypes          []registry.TypeId       `json:"arg_types"`
	CallSite          ast.Span                `json:"call_site"`
	AvailableImpls    []signature.FunctionId  `json:"available_impls"`
	RejectionAnalysis []RejectionRecord       `json:"rejection_analysis"`
	SuggestedFixes    []Fix                   `json:"suggested_fixes"`
}

// RejectionRecord is the per-implementation rejection detail named in
// spec.md §4.H.
type RejectionRecord struct {
	Impl           signature.FunctionId      `json:"impl"`
	Reason         specificity.RejectionReason `json:"reason"`
	ParameterIndex int                       `json:"parameter_index"`
	Expected       registry.TypeId           `json:"expected"`
	Actual         registry.TypeId           `json:"actual"`
}

// Reporter renders diagnostic records from a specificity.Result. It is
// stateless aside from the registry it shares for type-name resolution.
type Reporter struct {
	reg *registry.Registry
}

// New creates a Reporter sharing reg for type-name resolution.
func New(reg *registry.Registry) *Reporter {
	return &Reporter{reg: reg}
}

// ReportAmbiguous builds an AmbiguousDispatch record from an Ambiguous
// specificity.Result. Pure function of its inputs: no I/O coupling.
func (r *Reporter) ReportAmbiguous(signatureName string, argTypes []registry.TypeId, callSite ast.Span, result specificity.Result) *AmbiguousDispatch {
	conflicting := make([]signature.FunctionId, len(result.Ambiguous))
	for i, impl := range result.Ambiguous {
		conflicting[i] = impl.Function
	}

	var pairwise []PairwiseAnalysis
	for i := 0; i < len(result.Ambiguous); i++ {
		for j := i + 1; j < len(result.Ambiguous); j++ {
			pairwise = append(pairwise, analyzePair(r.reg, result.Ambiguous[i], result.Ambiguous[j]))
		}
	}

	return &AmbiguousDispatch{
		Schema:              Schema,
		Code:                CodeAmbiguousDispatch,
		SignatureName:       signatureName,
		ArgTypes:            argTypes,
		CallSite:            callSite,
		ConflictingImpls:    conflicting,
		SpecificityAnalysis: pairwise,
		SuggestedFixes: []Fix{
			{Suggestion: "make one implementation strictly more specific"},
			{Suggestion: "use qualified call module::name"},
			{Suggestion: fmt.Sprintf("add explicit type annotation on argument %d", ambiguousParamIndex(pairwise))},
		},
	}
}

func ambiguousParamIndex(pairwise []PairwiseAnalysis) int {
	for _, p := range pairwise {
		for i, rel := range p.PerParam {
			if rel == Unrelated {
				return i
			}
		}
	}
	return 0
}

// ReportNoMatch builds a NoMatchingImplementation record from a NoMatch
// specificity.Result.
func (r *Reporter) ReportNoMatch(signatureName string, argTypes []registry.TypeId, callSite ast.Span, impls []*signature.Implementation, result specificity.Result) *NoMatchingImplementation {
	available := make([]signature.FunctionId, len(impls))
	for i, impl := range impls {
		available[i] = impl.Function
	}

	rejections := make([]RejectionRecord, len(result.Rejections))
	for i, rej := range result.Rejections {
		rejections[i] = RejectionRecord{
			Impl:           rej.Impl.Function,
			Reason:         rej.Reason,
			ParameterIndex: rej.ParameterIndex,
			Expected:       rej.Expected,
			Actual:         rej.Actual,
		}
	}

	return &NoMatchingImplementation{
		Schema:            Schema,
		Code:              CodeNoMatchingImplementation,
		SignatureName:     signatureName,
		ArgTypes:          argTypes,
		CallSite:          callSite,
		AvailableImpls:    available,
		RejectionAnalysis: rejections,
		SuggestedFixes: []Fix{
			{Suggestion: "add implementation matching these types"},
			{Suggestion: "use explicit conversion"},
			{Suggestion: "verify imports"},
		},
	}
}

// ToJSON renders any diagnostic record as indented, deterministic JSON.
func ToJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
