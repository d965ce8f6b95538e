package iface

import (
	"testing"

	"github.com/janus-lang/janus-sub003/internal/registry"
)

func buildSample(returnType string) *Interface {
	e := NewExtractor("zoo")
	e.AddFunction(Function{DeclID: "2", Name: "speak", Exported: true, Params: []Param{{Name: "a", Type: "Dog"}}, ReturnType: returnType})
	e.AddFunction(Function{DeclID: "1", Name: "roam", Exported: true, Params: nil, ReturnType: "Unit"})
	e.AddConst(Const{DeclID: "3", Name: "MaxAge", Exported: true, Type: "Int", Value: "20"})
	e.AddType(TypeDecl{DeclID: "4", Name: "Dog", Kind: registry.TableSealed, Exported: true})
	return e.Build()
}

func TestBuildSortsFunctionsByDeclID(t *testing.T) {
	iface := buildSample("Dog")
	if len(iface.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(iface.Functions))
	}
	if iface.Functions[0].Name != "roam" || iface.Functions[1].Name != "speak" {
		t.Errorf("expected functions sorted by decl id (roam, speak), got %s, %s", iface.Functions[0].Name, iface.Functions[1].Name)
	}
}

func TestBuildSortsExportedSymbols(t *testing.T) {
	iface := buildSample("Dog")
	want := []string{"Dog", "MaxAge", "roam", "speak"}
	if len(iface.Module.ExportedSymbols) != len(want) {
		t.Fatalf("expected %d symbols, got %d", len(want), len(iface.Module.ExportedSymbols))
	}
	for i, name := range want {
		if iface.Module.ExportedSymbols[i] != name {
			t.Errorf("symbol %d: expected %s, got %s", i, name, iface.Module.ExportedSymbols[i])
		}
	}
}

func TestUnexportedDeclarationsExcluded(t *testing.T) {
	e := NewExtractor("zoo")
	e.AddFunction(Function{DeclID: "1", Name: "private", Exported: false})
	iface := e.Build()
	if len(iface.Functions) != 0 {
		t.Errorf("expected private function excluded, got %d functions", len(iface.Functions))
	}
}

func TestCIDStableAcrossRebuildsWithSameContent(t *testing.T) {
	a := buildSample("Dog")
	b := buildSample("Dog")
	if a.CID != b.CID {
		t.Errorf("expected identical CID for identical interfaces, got %s != %s", a.CID, b.CID)
	}
}

func TestCIDChangesWithReturnType(t *testing.T) {
	a := buildSample("Dog")
	b := buildSample("Cat")
	if a.CID == b.CID {
		t.Error("expected CID to change when a function's return type changes")
	}
}

func TestAggregateCIDIndependentOfInputOrder(t *testing.T) {
	cids := []string{"bbb", "aaa", "ccc"}
	reordered := []string{"ccc", "aaa", "bbb"}
	if AggregateCID(cids) != AggregateCID(reordered) {
		t.Error("expected AggregateCID to be independent of input order")
	}
}
