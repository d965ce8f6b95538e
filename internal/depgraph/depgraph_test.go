package depgraph

import "testing"

func TestTopologicalOrderIsLeafFirst(t *testing.T) {
	g := New()
	g.AddUnit("app")
	g.AddUnit("lib")
	g.AddUnit("core")
	g.AddDependency(Edge{From: "app", To: "lib", Strength: Critical})
	g.AddDependency(Edge{From: "lib", To: "core", Strength: Critical})

	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[string]int, len(order))
	for i, u := range order {
		pos[u] = i
	}
	if pos["core"] > pos["lib"] || pos["lib"] > pos["app"] {
		t.Errorf("expected core before lib before app, got %v", order)
	}
}

func TestTopologicalOrderDetectsCycle(t *testing.T) {
	g := New()
	g.AddUnit("a")
	g.AddUnit("b")
	g.AddDependency(Edge{From: "a", To: "b"})
	g.AddDependency(Edge{From: "b", To: "a"})

	_, err := g.TopologicalOrder()
	if err == nil {
		t.Fatal("expected CircularDependency error")
	}
	var cycleErr *CircularDependency
	if !asCircular(err, &cycleErr) {
		t.Fatalf("expected *CircularDependency, got %T", err)
	}
}

func asCircular(err error, target **CircularDependency) bool {
	if c, ok := err.(*CircularDependency); ok {
		*target = c
		return true
	}
	return false
}

func TestDependentsAndDependenciesAreInverse(t *testing.T) {
	g := New()
	g.AddDependency(Edge{From: "app", To: "lib"})

	deps := g.Dependencies("app")
	if len(deps) != 1 || deps[0] != "lib" {
		t.Errorf("expected app to depend on lib, got %v", deps)
	}
	dependents := g.Dependents("lib")
	if len(dependents) != 1 || dependents[0] != "app" {
		t.Errorf("expected lib to have dependent app, got %v", dependents)
	}
}

func TestClassifyStrength(t *testing.T) {
	if ClassifyStrength(true, false, false) != Critical {
		t.Error("expected public-interface reference to be critical")
	}
	if ClassifyStrength(false, true, false) != Moderate {
		t.Error("expected direct implementation reference to be moderate")
	}
	if ClassifyStrength(false, false, true) != Weak {
		t.Error("expected transitive-only reference to be weak")
	}
	if ClassifyStrength(false, false, false) != Optional {
		t.Error("expected no reference to be optional")
	}
}
