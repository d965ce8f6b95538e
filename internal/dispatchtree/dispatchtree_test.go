package dispatchtree

import (
	"testing"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
	"github.com/janus-lang/janus-sub003/internal/specificity"
)

func span(n int) ast.Span {
	return ast.Span{Start: ast.Pos{File: "t.src", Offset: n}, End: ast.Pos{File: "t.src", Offset: n + 1}}
}

func buildGroup(t *testing.T) (*registry.Registry, *signature.SignatureGroup) {
	t.Helper()
	r := registry.New()
	dog, err := r.Register("Dog", registry.TableSealed, nil)
	if err != nil {
		t.Fatal(err)
	}
	cat, err := r.Register("Cat", registry.TableSealed, nil)
	if err != nil {
		t.Fatal(err)
	}
	bird, err := r.Register("Bird", registry.TableSealed, nil)
	if err != nil {
		t.Fatal(err)
	}

	a := signature.NewAnalyzer(r)
	a.AddImplementation("speak", "zoo", []registry.TypeId{dog}, dog, nil, span(1))
	a.AddImplementation("speak", "zoo", []registry.TypeId{cat}, cat, nil, span(2))
	a.AddImplementation("speak", "zoo", []registry.TypeId{bird}, bird, nil, span(3))
	group, ok := a.Group("speak", 1)
	if !ok {
		t.Fatal("expected group speak/1")
	}
	return r, group
}

func TestGenerateProducesExactMatchPerImplementation(t *testing.T) {
	r, group := buildGroup(t)
	table := New(r).Generate(group, specificity.Policy{})

	if len(table.Exact) != 3 {
		t.Fatalf("expected 3 exact matches, got %d", len(table.Exact))
	}
	for i := 1; i < len(table.Exact); i++ {
		if table.Exact[i-1].TypeCombinationHash > table.Exact[i].TypeCombinationHash {
			t.Fatalf("exact matches not sorted ascending by hash at index %d", i)
		}
	}
	if table.Metadata.ExactMatchCoverage != 1.0 {
		t.Errorf("expected full exact-match coverage for 3 disjoint sealed types, got %f", table.Metadata.ExactMatchCoverage)
	}
}

func TestGenerateRespectsMaxExactMatchesCap(t *testing.T) {
	r, group := buildGroup(t)
	table := New(r).WithMaxExactMatches(1).Generate(group, specificity.Policy{})
	if len(table.Exact) != 1 {
		t.Fatalf("expected capped exact match table of 1, got %d", len(table.Exact))
	}
}

func TestCompileNodeLeafForSingleImplementation(t *testing.T) {
	r := registry.New()
	dog, _ := r.Register("Dog", registry.TableSealed, nil)
	a := signature.NewAnalyzer(r)
	a.AddImplementation("bark", "zoo", []registry.TypeId{dog}, dog, nil, span(1))
	group, _ := a.Group("bark", 1)

	table := New(r).Generate(group, specificity.Policy{})
	if _, ok := table.Tree.(*LeafNode); !ok {
		t.Fatalf("expected leaf node for single implementation, got %T", table.Tree)
	}
}

func TestBranchNodePredicateSplitsImplementations(t *testing.T) {
	r, group := buildGroup(t)
	table := New(r).Generate(group, specificity.Policy{})

	branch, ok := table.Tree.(*BranchNode)
	if !ok {
		t.Fatalf("expected branch node for 3 disjoint implementations, got %T", table.Tree)
	}
	if branch.Predicate.Kind != TypeSubtypeOfPredicate {
		t.Errorf("expected type_subtype_of predicate for a 3-way closed enumeration, got %s", branch.Predicate.Kind)
	}
	if branch.TrueBranch == nil || branch.FalseBranch == nil {
		t.Fatal("expected both branches populated")
	}
}

func TestCompileNodeOrdersBranchesByDescendingSpecificity(t *testing.T) {
	r := registry.New()
	animal, _ := r.Register("Animal", registry.TableOpen, nil)
	dog, _ := r.Register("Dog", registry.TableOpen, []string{"Animal"})
	puppy, _ := r.Register("Puppy", registry.TableSealed, []string{"Dog"})

	a := signature.NewAnalyzer(r)
	// Registered in increasing specificity order, so a naive "first seen"
	// or "most implementations" heuristic would pick Animal as dominant.
	a.AddImplementation("speak", "zoo", []registry.TypeId{animal}, animal, nil, span(1))
	a.AddImplementation("speak", "zoo", []registry.TypeId{dog}, dog, nil, span(2))
	group, _ := a.Group("speak", 1)

	table := New(r).Generate(group, specificity.Policy{})
	branch, ok := table.Tree.(*BranchNode)
	if !ok {
		t.Fatalf("expected branch node, got %T", table.Tree)
	}
	if branch.Predicate.Kind != TypeSubtypeOfPredicate {
		t.Fatalf("expected type_subtype_of predicate, got %s", branch.Predicate.Kind)
	}
	if branch.Predicate.Type != dog {
		t.Errorf("expected the more specific Dog to be tested first, got %s", r.Name(branch.Predicate.Type))
	}
	if !branch.Predicate.Evaluate(r, []registry.TypeId{puppy}) {
		t.Error("expected Puppy, a subtype of Dog, to satisfy the Dog branch predicate")
	}
}
