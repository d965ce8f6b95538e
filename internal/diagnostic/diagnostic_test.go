package diagnostic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
	"github.com/janus-lang/janus-sub003/internal/specificity"
)

func span(n int) ast.Span {
	return ast.Span{Start: ast.Pos{File: "t.src", Offset: n}, End: ast.Pos{File: "t.src", Offset: n + 1}}
}

func TestReportAmbiguousIncludesPairwiseAnalysisForEachConflict(t *testing.T) {
	r := registry.New()
	mammal, _ := r.Register("Mammal", registry.TableOpen, nil)
	bird, _ := r.Register("Bird", registry.TableOpen, nil)
	platypus, _ := r.Register("Platypus", registry.TableSealed, []string{"Mammal", "Bird"})

	a := signature.NewAnalyzer(r)
	a.AddImplementation("classify", "zoo", []registry.TypeId{mammal}, mammal, nil, span(1))
	a.AddImplementation("classify", "zoo", []registry.TypeId{bird}, bird, nil, span(2))
	group, _ := a.Group("classify", 1)

	result := specificity.AnalyzeCall(r, group.Implementations, []registry.TypeId{platypus}, specificity.Policy{})
	require.Equal(t, specificity.Ambiguous, result.Outcome)

	report := New(r).ReportAmbiguous("classify", []registry.TypeId{platypus}, span(3), result)
	if report.Code != CodeAmbiguousDispatch {
		t.Errorf("expected code %s, got %s", CodeAmbiguousDispatch, report.Code)
	}
	if len(report.ConflictingImpls) != 2 {
		t.Fatalf("expected 2 conflicting impls, got %d", len(report.ConflictingImpls))
	}
	if len(report.SpecificityAnalysis) != 1 {
		t.Fatalf("expected 1 pairwise analysis for 2 conflicts, got %d", len(report.SpecificityAnalysis))
	}
	if len(report.SuggestedFixes) != 3 {
		t.Errorf("expected 3 suggested fixes, got %d", len(report.SuggestedFixes))
	}
}

func TestReportNoMatchCarriesRejectionDetail(t *testing.T) {
	r := registry.New()
	float, _ := r.Register("Float", registry.Primitive, nil)
	str, _ := r.Register("String", registry.Primitive, nil)
	a := signature.NewAnalyzer(r)
	a.AddImplementation("sqrt", "math", []registry.TypeId{float}, float, nil, span(1))
	group, _ := a.Group("sqrt", 1)

	result := specificity.AnalyzeCall(r, group.Implementations, []registry.TypeId{str}, specificity.Policy{})
	require.Equal(t, specificity.NoMatch, result.Outcome)

	report := New(r).ReportNoMatch("sqrt", []registry.TypeId{str}, span(2), group.Implementations, result)
	require.Equal(t, CodeNoMatchingImplementation, report.Code)
	require.Len(t, report.RejectionAnalysis, 1)

	want := RejectionRecord{
		Impl:           group.Implementations[0].Function,
		Reason:         result.Rejections[0].Reason,
		ParameterIndex: 0,
		Expected:       float,
		Actual:         str,
	}
	if diff := cmp.Diff(want, report.RejectionAnalysis[0]); diff != "" {
		t.Errorf("rejection record mismatch (-want +got):\n%s", diff)
	}
}

func TestToJSONRendersDeterministically(t *testing.T) {
	r := registry.New()
	float, _ := r.Register("Float", registry.Primitive, nil)
	a := signature.NewAnalyzer(r)
	a.AddImplementation("sqrt", "math", []registry.TypeId{float}, float, nil, span(1))
	group, _ := a.Group("sqrt", 1)

	report := New(r).ReportNoMatch("sqrt", nil, span(2), group.Implementations, specificity.Result{Outcome: specificity.NoMatch})
	first, err := ToJSON(report)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := ToJSON(report)
	if first != second {
		t.Error("expected identical JSON across repeated renders")
	}
}
