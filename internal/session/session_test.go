package session

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `
schema: janus.dispatch.session/v1
types:
  - name: Animal
    kind: table_open
  - name: Dog
    kind: table_sealed
    supertypes: [Animal]
implementations:
  - name: speak
    module: zoo
    params: [Dog]
    return: Animal
call_sites:
  - name: speak
    args: [Dog]
    location: "zoo.jan:1:1"
units: [zoo, core]
dependencies:
  - from: zoo
    to: core
    strength: critical
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMaterializesRegistryAndAnalyzer(t *testing.T) {
	s, err := Load(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Registry.Lookup("Dog"); !ok {
		t.Error("expected Dog to be registered")
	}
	group, ok := s.Analyzer.Group("speak", 1)
	if !ok || len(group.Implementations) != 1 {
		t.Errorf("expected one speak/1 implementation, got ok=%v group=%+v", ok, group)
	}
}

func TestLoadMaterializesCallSitesAndGraph(t *testing.T) {
	s, err := Load(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.CallSites) != 1 || s.CallSites[0].Name != "speak" {
		t.Errorf("expected one speak call site, got %+v", s.CallSites)
	}
	order, err := s.Graph.TopologicalOrder()
	if err != nil {
		t.Fatal(err)
	}
	if order[0] != "core" || order[1] != "zoo" {
		t.Errorf("expected core before zoo (zoo depends on core), got %v", order)
	}
}

func TestLoadRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte(`
types:
  - name: Dog
    kind: table_sealed
implementations:
  - name: speak
    module: zoo
    params: [Cat]
`), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unknown parameter type")
	}
}
