// Package session loads the declarative YAML document the dispatchc CLI
// operates on: a type registry, a set of signature implementations, the
// call sites to classify, and a compilation-unit dependency graph.
//
// The dispatch core runs downstream of elaboration (spec.md's Non-goals
// exclude parsing and type inference), so the CLI has no source-language
// front end to drive it from. Grounded on the teacher's
// internal/manifest/manifest.go, which loads a schema-versioned document
// describing a compilation unit rather than source text; this package
// carries the same schema-versioning convention over gopkg.in/yaml.v3.
package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/classify"
	"github.com/janus-lang/janus-sub003/internal/depgraph"
	"github.com/janus-lang/janus-sub003/internal/registry"
	"github.com/janus-lang/janus-sub003/internal/signature"
)

// SchemaVersion tags a session document.
const SchemaVersion = "janus.dispatch.session/v1"

type typeDecl struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Supertypes []string `yaml:"supertypes"`
}

type implDecl struct {
	Name    string   `yaml:"name"`
	Module  string   `yaml:"module"`
	Params  []string `yaml:"params"`
	Return  string   `yaml:"return"`
	Effects []string `yaml:"effects"`
}

type callSiteDecl struct {
	Name     string   `yaml:"name"`
	Args     []string `yaml:"args"`
	Location string   `yaml:"location"`
}

type dependencyDecl struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Strength string `yaml:"strength"`
}

type document struct {
	Schema          string           `yaml:"schema"`
	Types           []typeDecl       `yaml:"types"`
	Implementations []implDecl       `yaml:"implementations"`
	CallSites       []callSiteDecl   `yaml:"call_sites"`
	Units           []string         `yaml:"units"`
	Dependencies    []dependencyDecl `yaml:"dependencies"`
}

// Session is a fully materialized compilation session: a populated type
// registry, a signature analyzer with every implementation registered,
// the call sites named in the document ready for classify.Classifier, and
// the compilation-unit dependency graph.
type Session struct {
	Registry  *registry.Registry
	Analyzer  *signature.Analyzer
	CallSites []classify.CallSite
	Graph     *depgraph.Graph
}

func parseKind(s string) (registry.Kind, error) {
	switch s {
	case "primitive":
		return registry.Primitive, nil
	case "table_sealed":
		return registry.TableSealed, nil
	case "table_open":
		return registry.TableOpen, nil
	case "variant":
		return registry.Variant, nil
	case "generic":
		return registry.Generic, nil
	default:
		return 0, fmt.Errorf("unknown type kind %q", s)
	}
}

func parseStrength(s string) depgraph.Strength {
	switch s {
	case "critical":
		return depgraph.Critical
	case "strong":
		return depgraph.Strong
	case "moderate":
		return depgraph.Moderate
	case "weak":
		return depgraph.Weak
	default:
		return depgraph.Optional
	}
}

// Load reads and materializes a session document from path.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if doc.Schema != "" && doc.Schema != SchemaVersion {
		return nil, fmt.Errorf("unsupported session schema %q, expected %q", doc.Schema, SchemaVersion)
	}

	reg := registry.New()
	for _, td := range doc.Types {
		kind, err := parseKind(td.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", td.Name, err)
		}
		if _, err := reg.Register(td.Name, kind, td.Supertypes); err != nil {
			return nil, fmt.Errorf("register type %s: %w", td.Name, err)
		}
	}

	resolveTypes := func(names []string) ([]registry.TypeId, error) {
		ids := make([]registry.TypeId, len(names))
		for i, n := range names {
			id, ok := reg.Lookup(n)
			if !ok {
				return nil, fmt.Errorf("unknown type %q", n)
			}
			ids[i] = id
		}
		return ids, nil
	}

	analyzer := signature.NewAnalyzer(reg)
	for i, id := range doc.Implementations {
		paramTypes, err := resolveTypes(id.Params)
		if err != nil {
			return nil, fmt.Errorf("implementation %s: %w", id.Name, err)
		}
		var returnType registry.TypeId
		if id.Return != "" {
			rt, ok := reg.Lookup(id.Return)
			if !ok {
				return nil, fmt.Errorf("implementation %s: unknown return type %q", id.Name, id.Return)
			}
			returnType = rt
		}
		effects := make([]signature.Effect, len(id.Effects))
		for j, e := range id.Effects {
			effects[j] = signature.Effect(e)
		}
		span := ast.Span{Start: ast.Pos{File: "session.yaml", Line: i + 1}}
		if _, err := analyzer.AddImplementation(id.Name, id.Module, paramTypes, returnType, effects, span); err != nil {
			return nil, fmt.Errorf("implementation %s: %w", id.Name, err)
		}
	}

	callSites := make([]classify.CallSite, len(doc.CallSites))
	for i, cs := range doc.CallSites {
		argTypes, err := resolveTypes(cs.Args)
		if err != nil {
			return nil, fmt.Errorf("call site %s: %w", cs.Name, err)
		}
		callSites[i] = classify.CallSite{Name: cs.Name, ArgTypes: argTypes, Location: cs.Location}
	}

	graph := depgraph.New()
	for _, u := range doc.Units {
		graph.AddUnit(u)
	}
	for _, d := range doc.Dependencies {
		graph.AddDependency(depgraph.Edge{From: d.From, To: d.To, Strength: parseStrength(d.Strength)})
	}

	return &Session{Registry: reg, Analyzer: analyzer, CallSites: callSites, Graph: graph}, nil
}
