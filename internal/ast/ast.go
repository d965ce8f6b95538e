// Package ast defines the minimal source-location vocabulary the dispatch
// core shares with its external collaborators (tokenizer, parser, AST
// storage backend). The core never constructs or walks a full syntax tree;
// it only carries positions far enough to annotate implementations, call
// sites, and diagnostics.
package ast

import "fmt"

// Pos is a single point in a source file.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a half-open range in source text, used as the source_span field
// on Implementation, DependencyRelationship, and diagnostic records.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	if s.Start.File == "" {
		return "<unknown>"
	}
	return s.Start.String()
}

// IsZero reports whether the span carries no location information, which
// is legal for synthesized implementations (e.g. derived instances).
func (s Span) IsZero() bool {
	return s.Start == Pos{} && s.End == Pos{}
}
