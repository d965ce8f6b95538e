package signature

import (
	"testing"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/registry"
)

func newTestRegistry(t *testing.T) (*registry.Registry, registry.TypeId, registry.TypeId, registry.TypeId) {
	t.Helper()
	r := registry.New()
	animal, err := r.Register("Animal", registry.TableOpen, nil)
	if err != nil {
		t.Fatal(err)
	}
	dog, err := r.Register("Dog", registry.TableSealed, []string{"Animal"})
	if err != nil {
		t.Fatal(err)
	}
	cat, err := r.Register("Cat", registry.TableSealed, []string{"Animal"})
	if err != nil {
		t.Fatal(err)
	}
	return r, animal, dog, cat
}

func span(n int) ast.Span {
	return ast.Span{Start: ast.Pos{File: "t.src", Offset: n}, End: ast.Pos{File: "t.src", Offset: n + 1}}
}

func TestAddImplementationOrdersBySpecificity(t *testing.T) {
	r, animal, dog, _ := newTestRegistry(t)
	a := NewAnalyzer(r)

	if _, err := a.AddImplementation("speak", "zoo", []registry.TypeId{animal}, animal, nil, span(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddImplementation("speak", "zoo", []registry.TypeId{dog}, dog, nil, span(2)); err != nil {
		t.Fatal(err)
	}

	group, ok := a.Group("speak", 1)
	if !ok {
		t.Fatal("expected group speak/1")
	}
	if len(group.Implementations) != 2 {
		t.Fatalf("expected 2 implementations, got %d", len(group.Implementations))
	}
	if group.Implementations[0].ParamTypes[0] != dog {
		t.Errorf("expected Dog implementation first (more specific), got %v", group.Implementations[0].ParamTypes)
	}
}

func TestDuplicateImplementationRejected(t *testing.T) {
	r, _, dog, _ := newTestRegistry(t)
	a := NewAnalyzer(r)

	sp := span(5)
	if _, err := a.AddImplementation("bark", "zoo", []registry.TypeId{dog}, dog, nil, sp); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddImplementation("bark", "zoo", []registry.TypeId{dog}, dog, nil, sp); err == nil {
		t.Fatal("expected duplicate implementation error")
	}
}

func TestDistinctModulesAllowedSameSignature(t *testing.T) {
	r, _, dog, _ := newTestRegistry(t)
	a := NewAnalyzer(r)

	if _, err := a.AddImplementation("bark", "zoo", []registry.TypeId{dog}, dog, nil, span(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddImplementation("bark", "farm", []registry.TypeId{dog}, dog, nil, span(2)); err != nil {
		t.Fatalf("expected cross-module duplicate signatures to be allowed, got %v", err)
	}

	group, _ := a.Group("bark", 1)
	if len(group.Implementations) != 2 {
		t.Fatalf("expected 2 implementations across modules, got %d", len(group.Implementations))
	}
}

func TestGroupSealedWhenAllParamsSealed(t *testing.T) {
	r, animal, dog, _ := newTestRegistry(t)
	a := NewAnalyzer(r)

	a.AddImplementation("speak", "zoo", []registry.TypeId{dog}, dog, nil, span(1))
	group, _ := a.Group("speak", 1)
	if !group.IsSealed {
		t.Error("group with only sealed (Dog) implementations should be sealed")
	}

	a.AddImplementation("speak", "zoo", []registry.TypeId{animal}, animal, nil, span(2))
	group, _ = a.Group("speak", 1)
	if group.IsSealed {
		t.Error("group with an open (Animal) implementation should not be sealed")
	}
}

func TestSealGroupForcesSealed(t *testing.T) {
	r, animal, _, _ := newTestRegistry(t)
	a := NewAnalyzer(r)
	a.AddImplementation("roam", "zoo", []registry.TypeId{animal}, animal, nil, span(1))
	a.SealGroup("roam", 1)
	group, _ := a.Group("roam", 1)
	if !group.IsSealed {
		t.Error("explicit SealGroup should seal the group")
	}
}

func TestStats(t *testing.T) {
	r, _, dog, cat := newTestRegistry(t)
	a := NewAnalyzer(r)
	a.AddImplementation("speak", "zoo", []registry.TypeId{dog}, dog, nil, span(1))
	a.AddImplementation("speak", "zoo", []registry.TypeId{cat}, cat, nil, span(2))
	a.AddImplementation("roam", "zoo", []registry.TypeId{dog}, dog, nil, span(3))

	stats := a.Stats()
	if stats.TotalGroups != 2 {
		t.Errorf("expected 2 groups, got %d", stats.TotalGroups)
	}
	if stats.MaxImplsPerGroup != 2 {
		t.Errorf("expected max 2 impls per group, got %d", stats.MaxImplsPerGroup)
	}
	if stats.SealedGroups != 2 {
		t.Errorf("expected both groups sealed, got %d", stats.SealedGroups)
	}
}
